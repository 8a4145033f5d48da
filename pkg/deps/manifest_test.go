package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
[DEFAULT]
build_dynamically = false

[wpilib-extras]
build_dynamically = true
github = https://github.com/example/wpilib-extras.git
branch = release

[vendored]

[Custom]
BUILD_DYNAMICALLY = yes
GitHub = https://github.com/example/custom.git
force_clone = true
build_command = make jar
artifacts = out/*.jar
`

func TestParseManifest(t *testing.T) {
	manifest, err := ParseManifest("dependencies.ini", []byte(sampleManifest))
	require.NoError(t, err)
	require.Len(t, manifest.Dependencies, 3)

	assert.Equal(t, Dependency{
		Name:             "wpilib-extras",
		BuildDynamically: true,
		GitHub:           "https://github.com/example/wpilib-extras.git",
		Branch:           "release",
	}, manifest.Dependencies[0])

	// inherits build_dynamically from [DEFAULT]
	assert.Equal(t, Dependency{Name: "vendored"}, manifest.Dependencies[1])

	assert.Equal(t, Dependency{
		Name:             "Custom",
		BuildDynamically: true,
		GitHub:           "https://github.com/example/custom.git",
		ForceClone:       true,
		BuildCommand:     "make jar",
		Artifacts:        "out/*.jar",
	}, manifest.Dependencies[2])
}

func TestParseManifestEmptyBranch(t *testing.T) {
	manifest, err := ParseManifest("deps.ini", []byte("[a]\nbuild_dynamically = true\ngithub = url\nbranch =\n"))
	require.NoError(t, err)
	assert.Empty(t, manifest.Dependencies[0].Branch)
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		section string
		key     string
	}{
		{"missing build flag", "[a]\ngithub = url\n", "a", "build_dynamically"},
		{"bad build flag", "[a]\nbuild_dynamically = maybe\ngithub = url\n", "a", "build_dynamically"},
		{"bad force clone", "[a]\nbuild_dynamically = true\ngithub = url\nforce_clone = often\n", "a", "force_clone"},
		{"missing github", "[a]\nbuild_dynamically = true\n", "a", "github"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest("deps.ini", []byte(tt.data))
			require.Error(t, err)

			var manifestErr *ManifestError
			require.ErrorAs(t, err, &manifestErr)
			assert.Equal(t, tt.section, manifestErr.Section)
			assert.Equal(t, tt.key, manifestErr.Key)
			assert.Contains(t, err.Error(), "deps.ini [a]")
		})
	}
}

func TestParseManifestSkippedWithoutGitHub(t *testing.T) {
	manifest, err := ParseManifest("deps.ini", []byte("[local]\nbuild_dynamically = false\n"))
	require.NoError(t, err)
	assert.Equal(t, []Dependency{{Name: "local"}}, manifest.Dependencies)
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependencies.ini")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0600))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, path, manifest.Path)
	assert.Len(t, manifest.Dependencies, 3)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.ini"))
	var manifestErr *ManifestError
	assert.ErrorAs(t, err, &manifestErr)
}
