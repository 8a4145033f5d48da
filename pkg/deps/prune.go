package deps

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// matches "name-1.2.3.jar", "name-v2.0.0-beta.1.jar", ...
var versionedArtifact = regexp.MustCompile(`^(.+?)-(v?[0-9]+(?:\.[0-9]+){0,2}(?:-[0-9A-Za-z.-]+)?)(\.[A-Za-z]+)$`)

type artifactVersion struct {
	base string
	// classifier is a suffix like "sources" or "all"; it is part of the identity
	classifier string
	version    *semver.Version
	ext        string
}

func (a artifactVersion) sameArtifact(other artifactVersion) bool {
	return a.base == other.base && a.classifier == other.classifier && a.ext == other.ext
}

func parseArtifact(filename string) (artifactVersion, bool) {
	parts := versionedArtifact.FindStringSubmatch(filename)
	if parts == nil {
		return artifactVersion{}, false
	}

	version, err := semver.NewVersion(parts[2])
	if err != nil {
		return artifactVersion{}, false
	}

	result := artifactVersion{base: parts[1], version: version, ext: parts[3]}
	if pre := version.Prerelease(); pre != "" && !strings.ContainsAny(pre, "0123456789") {
		result.classifier = pre
		plain, err := version.SetPrerelease("")
		if err != nil {
			return artifactVersion{}, false
		}
		result.version = &plain
	}

	return result, true
}

// pruneStale deletes every artifact in dir that has the same name as current but an
// older version. Newer versions are left alone.
func pruneStale(dir, current string) ([]string, error) {
	cur, ok := parseArtifact(current)
	if !ok {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to list %s", dir)
	}

	var pruned []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == current {
			continue
		}

		other, ok := parseArtifact(entry.Name())
		if !ok || !cur.sameArtifact(other) {
			continue
		}

		if other.version.LessThan(cur.version) {
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				return pruned, eris.Wrapf(err, "Failed to remove %s", path)
			}
			pruned = append(pruned, entry.Name())
		}
	}

	return pruned, nil
}
