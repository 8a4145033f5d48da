package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godbrigero/napoleon/pkg/deps"
	"github.com/godbrigero/napoleon/pkg/grid"
	"github.com/godbrigero/napoleon/pkg/trajectory"
)

const testGrid = `{
  "square_size_meters": 0.25,
  "grid_width_squares": 8,
  "grid_height_squares": 4,
  "walls": [[2, 0], [2, 1], [2, 2]]
}`

// resetFlags restores the defaults so flags set by an earlier run don't leak into
// the next one
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			_ = slice.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}

	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, logs bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&logs)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func writeGrid(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "field.json")
	require.NoError(t, os.WriteFile(path, []byte(testGrid), 0600))
	return path
}

func TestConsoleWriter(t *testing.T) {
	var buffer bytes.Buffer
	logger := zerolog.New(NewConsoleWriter(&buffer))

	logger.Info().Str("task", "extras").Msg("Cloning extras")
	assert.Contains(t, buffer.String(), "extras: Cloning extras")

	buffer.Reset()
	logger.Info().Bool("command", true).Msg("git clone url")
	assert.Contains(t, buffer.String(), "$ git clone url")

	buffer.Reset()
	logger.Error().Err(eris.New("boom")).Msg("Build failed")
	assert.Contains(t, buffer.String(), "Error: Build failed")
	assert.Contains(t, buffer.String(), "boom")
}

func TestConsoleWriterRejectsGarbage(t *testing.T) {
	_, err := NewConsoleWriter(&bytes.Buffer{}).Write([]byte("not json"))
	assert.Error(t, err)
}

func TestGridConvert(t *testing.T) {
	in := writeGrid(t)
	out := filepath.Join(t.TempDir(), "field.yaml.xz")

	_, err := execute(t, "grid", "convert", in, out)
	require.NoError(t, err)

	converted, err := grid.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 8, converted.Width)
	assert.Equal(t, [][]int{{2, 0}, {2, 1}, {2, 2}}, converted.Walls)
}

func TestGridInfoStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"square_size_meters": 0, "grid_width_squares": 4, "grid_height_squares": 4, "walls": []}`), 0600))

	_, err := execute(t, "grid", "info", path, "--strict")
	assert.ErrorIs(t, err, grid.ErrInvalidInput)
}

func TestPathFlat(t *testing.T) {
	path := writeGrid(t)

	out, err := execute(t, "path", path, "--from", "0,0", "--to", "5,0", "--flat")
	require.NoError(t, err)

	fields := strings.Fields(out)
	require.NotEmpty(t, fields)

	values := make([]float64, len(fields))
	for idx, field := range fields {
		values[idx], err = strconv.ParseFloat(field, 64)
		require.NoError(t, err)
	}

	poses, err := trajectory.ParsePoses(values)
	require.NoError(t, err)
	assert.Greater(t, len(poses), 1)
}

func TestPathUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "square_size_meters": 0.25,
  "grid_width_squares": 4,
  "grid_height_squares": 4,
  "walls": [[1, 0], [1, 1], [1, 2], [1, 3]]
}`), 0600))

	_, err := execute(t, "path", path, "--from", "0,0", "--to", "3,3", "--flat=false")
	assert.Error(t, err)
}

func TestPosixHelpers(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b")

	_, err := execute(t, "mkdir", "-p", target)
	require.NoError(t, err)
	assert.DirExists(t, target)

	_, err = execute(t, "rm", "-rf", filepath.Join(dir, "a"), filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "a"))
}

const jarScript = "mkdir -p build/libs && echo jar > build/libs/extras-1.2.0.jar"

// depsWorkspace points the workspace and stamp database into a temp dir and pre-creates
// the checkout of "extras" so no clone is needed
func depsWorkspace(t *testing.T, buildCommand string) (string, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "lib")
	t.Setenv("NAPOLEON_WORKSPACE_ROOT", root)
	t.Setenv("NAPOLEON_STAMPS", filepath.Join(root, "stamps.db"))
	t.Setenv("NAPOLEON_CI", "true")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "extras"), 0770))

	manifest := filepath.Join(t.TempDir(), "dependencies.ini")
	content := "[extras]\nbuild_dynamically = true\ngithub = https://github.com/example/extras.git\nbuild_command = " + buildCommand + "\n\n[local]\nbuild_dynamically = false\n"
	require.NoError(t, os.WriteFile(manifest, []byte(content), 0600))
	return root, manifest
}

func TestBuildDeps(t *testing.T) {
	root, manifest := depsWorkspace(t, jarScript)

	_, err := execute(t, "build-deps", "--config-file-path", manifest)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "build", "extras-1.2.0.jar"))
	assert.FileExists(t, filepath.Join(root, "stamps.db"))

	out, err := execute(t, "deps-status")
	require.NoError(t, err)
	assert.Contains(t, out, "extras")
	assert.Contains(t, out, "extras-1.2.0.jar")
}

func TestBuildDepsFailure(t *testing.T) {
	root, manifest := depsWorkspace(t, "exit 3")

	_, err := execute(t, "build-deps", "--config-file-path", manifest)
	require.Error(t, err)

	var buildErr *deps.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, 3, buildErr.ExitStatus)
	assert.NoFileExists(t, filepath.Join(root, "build", "extras-1.2.0.jar"))
}

func TestBuildDepsDryRun(t *testing.T) {
	root, manifest := depsWorkspace(t, jarScript)

	_, err := execute(t, "build-deps", "--config-file-path", manifest, "--dry")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "build", "extras-1.2.0.jar"))
	assert.NoFileExists(t, filepath.Join(root, "stamps.db"))
}

func TestBuildDepsRequiresManifest(t *testing.T) {
	depsWorkspace(t, jarScript)

	_, err := execute(t, "build-deps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config-file-path")

	_, err = execute(t, "build-deps", "--config-file-path", filepath.Join(t.TempDir(), "missing.ini"))
	var manifestErr *deps.ManifestError
	assert.ErrorAs(t, err, &manifestErr)
}

func TestPathSameCell(t *testing.T) {
	path := writeGrid(t)

	out, err := execute(t, "path", path, "--from", "1,1", "--to", "1,1", "--flat")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 6)
}
