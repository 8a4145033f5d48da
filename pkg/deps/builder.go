package deps

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"

	"github.com/godbrigero/napoleon/pkg/buildsys"
	"github.com/godbrigero/napoleon/pkg/fsutil"
	"github.com/godbrigero/napoleon/pkg/nplog"
	"github.com/godbrigero/napoleon/pkg/storage"
)

// Options configures a Builder. Root contains VendorDir (checkouts) and BuildDir
// (collected artifacts).
type Options struct {
	Root                string
	VendorDir           string
	BuildDir            string
	GitExe              string
	DefaultBuildCommand string
	DefaultArtifacts    string
	DryRun              bool
	PruneStale          bool
	ShowProgress        bool
	// Echo receives the build output while it runs
	Echo io.Writer
}

// StampStore records finished builds
type StampStore interface {
	SaveStamp(ctx context.Context, stamp *storage.Stamp) error
}

// Report summarizes what happened to a single dependency
type Report struct {
	Name      string
	Skipped   bool
	Cloned    bool
	Artifacts []string
	Pruned    []string
	Commit    string
}

type Builder struct {
	opts   Options
	stamps StampStore

	// Clone checks out dep into dest. Defaults to git clone.
	Clone func(ctx context.Context, dep Dependency, dest string) error
	// Revision returns the commit of the checkout or an empty string
	Revision func(ctx context.Context, checkout string) string
}

// NewBuilder creates a builder; stamps may be nil
func NewBuilder(opts Options, stamps StampStore) *Builder {
	if opts.Root == "" {
		opts.Root = "lib"
	}
	if opts.VendorDir == "" {
		opts.VendorDir = "vendor"
	}
	if opts.BuildDir == "" {
		opts.BuildDir = "build"
	}
	if opts.GitExe == "" {
		opts.GitExe = "git"
	}
	if opts.DefaultBuildCommand == "" {
		opts.DefaultBuildCommand = "./gradlew build"
	}
	if opts.DefaultArtifacts == "" {
		opts.DefaultArtifacts = filepath.Join("build", "libs", "*.jar")
	}

	b := &Builder{opts: opts, stamps: stamps}
	b.Clone = b.gitClone
	b.Revision = b.gitRevision
	return b
}

func (b *Builder) vendorPath() string {
	return filepath.Join(b.opts.Root, b.opts.VendorDir)
}

func (b *Builder) buildPath() string {
	return filepath.Join(b.opts.Root, b.opts.BuildDir)
}

// CloneArgs returns the git command used to check out dep
func (b *Builder) CloneArgs(dep Dependency) []string {
	args := []string{b.opts.GitExe, "clone", dep.GitHub, "--single-branch", dep.Name}
	if dep.Branch != "" {
		args = append(args, "--branch", dep.Branch)
	}

	return args
}

func (b *Builder) gitClone(ctx context.Context, dep Dependency, dest string) error {
	runner := &buildsys.Runner{Dir: filepath.Dir(dest), Task: dep.Name, DryRun: b.opts.DryRun, Echo: b.opts.Echo}
	result, err := runner.Command(ctx, b.CloneArgs(dep)...)
	if err != nil {
		return err
	}

	if !result.Success() {
		return &BuildError{Dependency: dep.Name, Step: "clone", ExitStatus: result.ExitStatus, Stderr: result.Stderr}
	}
	return nil
}

func (b *Builder) gitRevision(ctx context.Context, checkout string) string {
	if b.opts.DryRun {
		return ""
	}

	runner := &buildsys.Runner{Dir: checkout, Task: filepath.Base(checkout)}
	result, err := runner.Command(ctx, b.opts.GitExe, "rev-parse", "HEAD")
	if err != nil || !result.Success() {
		nplog.Log(ctx).Debug().Str("task", runner.Task).Msg("Could not determine the checked out commit")
		return ""
	}

	return strings.TrimSpace(result.Stdout)
}

func (b *Builder) ensureFolders(ctx context.Context) error {
	folders := []string{b.buildPath(), b.vendorPath()}
	if b.opts.DryRun {
		for _, folder := range folders {
			nplog.Log(ctx).Info().Bool("command", true).Msg(buildsys.FormatCommand("mkdir", "-p", folder))
		}
		return nil
	}

	return fsutil.Mkdir(folders, true)
}

// Run builds every dependency of the manifest in order and stops at the first failure
func (b *Builder) Run(ctx context.Context, manifest *Manifest) error {
	ctx, runID := nplog.WithRunID(ctx)
	if err := b.ensureFolders(ctx); err != nil {
		return err
	}

	for _, dep := range manifest.Dependencies {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := b.BuildDependency(ctx, dep)
		if report.Skipped {
			continue
		}

		b.saveStamp(ctx, runID, dep, report, err)
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) saveStamp(ctx context.Context, runID string, dep Dependency, report *Report, buildErr error) {
	if b.stamps == nil || b.opts.DryRun {
		return
	}

	stamp := &storage.Stamp{
		Name:      dep.Name,
		URL:       dep.GitHub,
		Branch:    dep.Branch,
		Commit:    report.Commit,
		Artifacts: report.Artifacts,
		RunID:     runID,
		BuiltAt:   time.Now(),
		Success:   buildErr == nil,
	}
	if buildErr != nil {
		stamp.Message = buildErr.Error()
	}

	if err := b.stamps.SaveStamp(ctx, stamp); err != nil {
		nplog.Log(ctx).Warn().Err(err).Str("task", dep.Name).Msg("Failed to record build stamp")
	}
}

// BuildDependency runs the clone, build and collect steps for a single dependency and
// creates the vendor and build folders if necessary. The returned report is never nil.
func (b *Builder) BuildDependency(ctx context.Context, dep Dependency) (*Report, error) {
	report := &Report{Name: dep.Name}
	logger := nplog.Log(ctx)

	if !dep.BuildDynamically {
		logger.Info().Str("task", dep.Name).Msgf("Skipping %s", dep.Name)
		report.Skipped = true
		return report, nil
	}
	logger.Info().Str("task", dep.Name).Msgf("Building %s", dep.Name)

	if !b.opts.DryRun {
		if err := fsutil.Mkdir([]string{b.buildPath(), b.vendorPath()}, true); err != nil {
			return report, err
		}
	}

	checkout := filepath.Join(b.vendorPath(), dep.Name)
	_, err := os.Stat(checkout)
	exists := err == nil
	if err != nil && !eris.Is(err, os.ErrNotExist) {
		return report, eris.Wrapf(err, "Failed to check %s", checkout)
	}

	if dep.ForceClone && exists {
		logger.Info().Str("task", dep.Name).Msgf("Removing %s", checkout)
		if !b.opts.DryRun {
			if err := fsutil.Remove([]string{checkout}, true, true); err != nil {
				return report, err
			}
		}
		exists = false
	}

	if !exists {
		logger.Info().Str("task", dep.Name).Msgf("Cloning %s", dep.Name)
		if err := b.Clone(ctx, dep, checkout); err != nil {
			var buildErr *BuildError
			if errors.As(err, &buildErr) {
				return report, buildErr
			}
			return report, &BuildError{Dependency: dep.Name, Step: "clone", Err: err}
		}
		report.Cloned = true
	} else {
		logger.Info().Str("task", dep.Name).Msgf("%s already exists. Building from existing repo.", dep.Name)
	}

	command := dep.BuildCommand
	if command == "" {
		command = b.opts.DefaultBuildCommand
	}

	runner := &buildsys.Runner{Dir: checkout, Task: dep.Name, DryRun: b.opts.DryRun, Echo: b.opts.Echo}
	result, err := runner.Script(ctx, command)
	if err != nil {
		return report, &BuildError{Dependency: dep.Name, Step: "build", Err: err}
	}

	if !result.Success() {
		logger.Error().Str("task", dep.Name).Msgf("Failed to build %s:\n%s", dep.Name, result.Stderr)
		return report, &BuildError{Dependency: dep.Name, Step: "build", ExitStatus: result.ExitStatus, Stderr: result.Stderr}
	}
	logger.Info().Str("task", dep.Name).Msgf("Successfully built %s", dep.Name)

	if b.opts.DryRun {
		return report, nil
	}

	report.Commit = b.Revision(ctx, checkout)
	if err := b.collectArtifacts(ctx, dep, checkout, report); err != nil {
		return report, &BuildError{Dependency: dep.Name, Step: "artifacts", Err: err}
	}

	return report, nil
}

func (b *Builder) getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if !b.opts.ShowProgress || os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

func (b *Builder) collectArtifacts(ctx context.Context, dep Dependency, checkout string, report *Report) error {
	pattern := dep.Artifacts
	if pattern == "" {
		pattern = b.opts.DefaultArtifacts
	}

	matches, err := filepath.Glob(filepath.Join(checkout, filepath.FromSlash(pattern)))
	if err != nil {
		return eris.Wrapf(err, "Invalid artifact pattern %s", pattern)
	}

	if len(matches) == 0 {
		nplog.Log(ctx).Warn().Str("task", dep.Name).Msgf("No artifacts matched %s", pattern)
	}

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return eris.Wrapf(err, "Failed to check artifact %s", match)
		}
		if info.IsDir() {
			continue
		}

		name := filepath.Base(match)
		dest := filepath.Join(b.buildPath(), name)

		bar := b.getProgressBar(info.Size(), "     "+name)
		_, err = fsutil.CopyFile(match, dest, bar)
		bar.Finish()
		if err != nil {
			return err
		}

		report.Artifacts = append(report.Artifacts, name)
		nplog.Log(ctx).Debug().Str("task", dep.Name).Str("path", dest).Msgf("Copied %s", name)

		if b.opts.PruneStale {
			pruned, err := pruneStale(b.buildPath(), name)
			if err != nil {
				return err
			}

			for _, item := range pruned {
				nplog.Log(ctx).Info().Str("task", dep.Name).Msgf("Removed outdated artifact %s", item)
			}
			report.Pruned = append(report.Pruned, pruned...)
		}
	}

	return nil
}
