package buildsys

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptCapturesOutput(t *testing.T) {
	var echo bytes.Buffer
	r := &Runner{Dir: t.TempDir(), Echo: &echo, Env: map[string]string{"GREETING": "hello"}}

	result, err := r.Script(context.Background(), "echo $GREETING; echo oops >&2; echo discarded > /dev/null")
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, "oops\n", result.Stderr)
	assert.Equal(t, "hello\n", echo.String())
}

func TestScriptStopsAtFailure(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{Dir: dir}

	result, err := r.Script(context.Background(), "echo first\nexit 3\nmkdir never")
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitStatus)
	assert.False(t, result.Success())
	assert.Equal(t, "first\n", result.Stdout)
	assert.NoDirExists(t, filepath.Join(dir, "never"))

	result, err = r.Script(context.Background(), "false\necho after")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitStatus)
	assert.Empty(t, result.Stdout)
}

func TestBuiltinFileCommands(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{Dir: dir}

	result, err := r.Command(context.Background(), "mkdir", "-p", "with space/inner")
	require.NoError(t, err)
	require.True(t, result.Success())
	assert.DirExists(t, filepath.Join(dir, "with space", "inner"))

	result, err = r.Script(context.Background(), "mv 'with space' moved && rm -r moved")
	require.NoError(t, err)
	require.True(t, result.Success(), result.Stderr)
	assert.NoDirExists(t, filepath.Join(dir, "moved"))

	result, err = r.Command(context.Background(), "rm", "missing")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitStatus)
	assert.Contains(t, result.Stderr, "rm:")
}

func TestDryRun(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{Dir: dir, DryRun: true}

	result, err := r.Command(context.Background(), "mkdir", "created")
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.NoDirExists(t, filepath.Join(dir, "created"))
}

func TestArgumentsAreNotExpanded(t *testing.T) {
	r := &Runner{Dir: t.TempDir(), Env: map[string]string{"SECRET": "x"}}

	result, err := r.Command(context.Background(), "echo", "$SECRET", "*", "a;b")
	require.NoError(t, err)
	assert.Equal(t, "$SECRET * a;b\n", result.Stdout)
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "git clone https://example.com/repo.git --single-branch 'my repo'",
		FormatCommand("git", "clone", "https://example.com/repo.git", "--single-branch", "my repo"))
}

func TestParseError(t *testing.T) {
	_, err := (&Runner{}).Script(context.Background(), "echo 'unterminated")
	assert.Error(t, err)

	_, err = (&Runner{}).Command(context.Background())
	assert.Error(t, err)
}
