// Package deps clones and builds the third-party libraries listed in an INI manifest
// and collects their artifacts.
package deps

import (
	"gopkg.in/ini.v1"
)

const (
	keyBuildDynamically = "build_dynamically"
	keyGitHub           = "github"
	keyBranch           = "branch"
	keyForceClone       = "force_clone"
	keyBuildCommand     = "build_command"
	keyArtifacts        = "artifacts"
)

// Dependency is one section of the manifest
type Dependency struct {
	Name             string
	BuildDynamically bool
	GitHub           string
	Branch           string
	ForceClone       bool
	// BuildCommand and Artifacts are empty when the builder's defaults apply
	BuildCommand string
	Artifacts    string
}

// Manifest lists the dependencies in file order
type Manifest struct {
	Path         string
	Dependencies []Dependency
}

// LoadManifest reads an INI manifest from path
func LoadManifest(path string) (*Manifest, error) {
	file, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return nil, &ManifestError{Path: path, Reason: "failed to read file", Err: err}
	}

	return parseManifest(path, file)
}

// ParseManifest reads a manifest from memory. name is only used in error messages.
func ParseManifest(name string, data []byte) (*Manifest, error) {
	file, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, data)
	if err != nil {
		return nil, &ManifestError{Path: name, Reason: "failed to parse", Err: err}
	}

	return parseManifest(name, file)
}

// lookup returns the key from the section or, failing that, from [DEFAULT]
func lookup(file *ini.File, section *ini.Section, key string) (*ini.Key, bool) {
	if section.HasKey(key) {
		return section.Key(key), true
	}

	defaults := file.Section(ini.DefaultSection)
	if defaults.HasKey(key) {
		return defaults.Key(key), true
	}

	return nil, false
}

func parseManifest(path string, file *ini.File) (*Manifest, error) {
	manifest := &Manifest{Path: path}

	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}

		dep := Dependency{Name: section.Name()}
		key, ok := lookup(file, section, keyBuildDynamically)
		if !ok {
			return nil, &ManifestError{Path: path, Section: dep.Name, Key: keyBuildDynamically, Reason: "missing required option"}
		}

		var err error
		dep.BuildDynamically, err = key.Bool()
		if err != nil {
			return nil, &ManifestError{Path: path, Section: dep.Name, Key: keyBuildDynamically, Reason: "not a boolean", Err: err}
		}

		if key, ok := lookup(file, section, keyForceClone); ok {
			dep.ForceClone, err = key.Bool()
			if err != nil {
				return nil, &ManifestError{Path: path, Section: dep.Name, Key: keyForceClone, Reason: "not a boolean", Err: err}
			}
		}

		if key, ok := lookup(file, section, keyGitHub); ok {
			dep.GitHub = key.String()
		}
		if key, ok := lookup(file, section, keyBranch); ok {
			dep.Branch = key.String()
		}
		if key, ok := lookup(file, section, keyBuildCommand); ok {
			dep.BuildCommand = key.String()
		}
		if key, ok := lookup(file, section, keyArtifacts); ok {
			dep.Artifacts = key.String()
		}

		if dep.BuildDynamically && dep.GitHub == "" {
			return nil, &ManifestError{Path: path, Section: dep.Name, Key: keyGitHub, Reason: "missing required option"}
		}

		manifest.Dependencies = append(manifest.Dependencies, dep)
	}

	return manifest, nil
}
