package deps

import (
	"fmt"
	"strings"
)

// ManifestError points at the manifest entry that couldn't be used
type ManifestError struct {
	Path    string
	Section string
	Key     string
	Reason  string
	Err     error
}

var _ error = (*ManifestError)(nil)

func (e *ManifestError) Error() string {
	location := e.Path
	if e.Section != "" {
		location += fmt.Sprintf(" [%s]", e.Section)
	}
	if e.Key != "" {
		location += " " + e.Key
	}

	if e.Err != nil {
		return fmt.Sprintf("invalid manifest %s: %s: %s", location, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid manifest %s: %s", location, e.Reason)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// BuildError is returned when a step of a dependency build fails
type BuildError struct {
	Dependency string
	// Step is one of "clone", "build", "artifacts"
	Step       string
	ExitStatus int
	Stderr     string
	Err        error
}

var _ error = (*BuildError)(nil)

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("failed to %s %s", e.Step, e.Dependency)
	if e.ExitStatus != 0 {
		msg += fmt.Sprintf(" (exit status %d)", e.ExitStatus)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
