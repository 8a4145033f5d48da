// Package buildsys runs the shell commands of the dependency build (git, the build
// tool and the file helpers) through an embedded POSIX shell.
package buildsys

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/godbrigero/napoleon/pkg/fsutil"
	"github.com/godbrigero/napoleon/pkg/nplog"
)

// Result holds the captured output of a command
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Success reports whether the command exited with status 0
func (r *Result) Success() bool {
	return r.ExitStatus == 0
}

// Runner executes commands in Dir. Output is captured; Echo additionally receives
// stdout while the command runs.
type Runner struct {
	Dir    string
	Env    map[string]string
	DryRun bool
	Echo   io.Writer
	// Task labels the log lines of this runner
	Task string
}

func (r *Runner) environ() expand.Environ {
	osEnv := os.Environ()
	envVars := make([]string, 0, len(osEnv)+len(r.Env))
	for _, item := range osEnv {
		parts := strings.SplitN(item, "=", 2)
		name := parts[0]
		if runtime.GOOS == "windows" {
			name = strings.ToUpper(name)
		}

		// skip overriden entries to avoid conflicts
		if _, present := r.Env[name]; !present {
			envVars = append(envVars, item)
		}
	}

	for name, value := range r.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}

	return expand.ListEnviron(envVars...)
}

var defaultExecHandler = interp.DefaultExecHandler(2)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 && fsutil.IsBuiltin(args[0]) {
		// always use our cross-platform implementation for these operations to make sure
		// they behave consistently
		hc := interp.HandlerCtx(ctx)
		err := fsutil.Exec(hc.Dir, args)
		if err != nil {
			fmt.Fprintf(hc.Stderr, "%s: %s\n", args[0], err)
			return interp.NewExitStatus(1)
		}
		return nil
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// Script parses and runs a shell script. The script stops at the first failing command.
func (r *Runner) Script(ctx context.Context, script string) (*Result, error) {
	parsed, err := syntax.NewParser().Parse(strings.NewReader(script), r.Task)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", script)
	}

	nodes := make([]syntax.Node, len(parsed.Stmts))
	for idx, stmt := range parsed.Stmts {
		nodes[idx] = stmt
	}

	return r.run(ctx, nodes)
}

// Command runs a single command. The arguments are passed verbatim and never
// expanded by the shell.
func (r *Runner) Command(ctx context.Context, args ...string) (*Result, error) {
	if len(args) == 0 {
		return nil, eris.New("no command given")
	}

	return r.run(ctx, []syntax.Node{commandExpr(args)})
}

func commandExpr(args []string) *syntax.CallExpr {
	cmd := new(syntax.CallExpr)
	cmd.Args = make([]*syntax.Word, len(args))
	for idx, value := range args {
		var wordPart syntax.WordPart
		if value == "" || strings.ContainsAny(value, " \t\n$'\"*?[]{}~;&|<>()`\\#") {
			wordPart = &syntax.SglQuoted{Value: value}
		} else {
			wordPart = &syntax.Lit{Value: value}
		}

		cmd.Args[idx] = &syntax.Word{Parts: []syntax.WordPart{wordPart}}
	}

	return cmd
}

// FormatCommand renders args the way Command logs them
func FormatCommand(args ...string) string {
	buffer := strings.Builder{}
	syntax.NewPrinter(syntax.Minify(true)).Print(&buffer, commandExpr(args))
	return buffer.String()
}

func (r *Runner) logCommand(ctx context.Context, cmd string) {
	nplog.Log(ctx).Info().
		Str("task", r.Task).
		Str("dir", r.Dir).
		Bool("command", true).
		Msg(cmd)
}

func (r *Runner) run(ctx context.Context, nodes []syntax.Node) (*Result, error) {
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	// Dry runs never touch the file system; Dir doesn't even have to exist yet.
	if r.DryRun {
		for _, node := range nodes {
			strBuffer.Reset()
			printer.Print(&strBuffer, node)
			r.logCommand(ctx, strBuffer.String())
		}
		return &Result{}, nil
	}

	var stdout, stderr bytes.Buffer
	var out io.Writer = &stdout
	if r.Echo != nil {
		out = io.MultiWriter(&stdout, r.Echo)
	}

	runner, err := interp.New(
		interp.Dir(r.Dir),
		interp.Env(r.environ()),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, out, &stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return nil, eris.Wrap(err, "Failed to initialize runner")
	}

	result := &Result{}
	for _, node := range nodes {
		strBuffer.Reset()
		printer.Print(&strBuffer, node)
		r.logCommand(ctx, strBuffer.String())

		err = runner.Run(ctx, node)
		if err != nil {
			status, ok := interp.IsExitStatus(err)
			if !ok {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, eris.Wrap(ctxErr, "command cancelled")
				}
				return nil, eris.Wrapf(err, "failed to run %s", strBuffer.String())
			}

			result.ExitStatus = int(status)
			break
		}

		if runner.Exited() {
			break
		}
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	return result, nil
}
