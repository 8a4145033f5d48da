// Package fsutil contains portable versions of the few POSIX file commands the build
// scripts rely on (mv, rm and mkdir).
package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"
)

// expandPatterns resolves glob patterns on Windows where the shell doesn't do it for us
func expandPatterns(args []string, allowEmpty bool) ([]string, error) {
	if runtime.GOOS != "windows" {
		return args, nil
	}

	items := []string{}
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to resolve pattern %s", arg)
		}

		if matches == nil {
			if allowEmpty {
				continue
			}
			return nil, eris.Errorf("Pattern %s produced no matches", arg)
		}

		items = append(items, matches...)
	}

	return items, nil
}

// Move moves items into dest. With a single item dest may also be the new name.
func Move(items []string, dest string) error {
	if len(items) == 0 {
		return eris.New("Not enough parameters")
	}

	dest = filepath.Clean(dest)
	destParent := filepath.Dir(dest)
	info, err := os.Stat(destParent)
	if err != nil {
		return eris.Wrapf(err, "Could not find destination directory %s", destParent)
	}

	if !info.IsDir() {
		return eris.Errorf("%s is not a directory!", destParent)
	}

	destIsDir := false
	info, err = os.Stat(dest)
	if err != nil && !eris.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "Failed to retrieve info about destination %s", dest)
	}
	if err == nil {
		destIsDir = info.IsDir()
	}

	items, err = expandPatterns(items, false)
	if err != nil {
		return err
	}

	if len(items) > 1 && !destIsDir {
		return eris.Errorf("Can't move multiple items to %s because it is not a directory!", dest)
	}

	for _, item := range items {
		itemDest := dest
		if destIsDir {
			itemDest = filepath.Join(dest, filepath.Base(item))
		}

		err = os.Rename(item, itemDest)
		if err != nil {
			return eris.Wrapf(err, "Failed to move %s to %s", item, itemDest)
		}
	}

	return nil
}

// Remove deletes items. Directories require recursive, missing items are ignored with force.
func Remove(items []string, recursive, force bool) error {
	items, err := expandPatterns(items, force)
	if err != nil {
		return err
	}

	for _, item := range items {
		info, err := os.Stat(item)
		if err != nil {
			if force && eris.Is(err, os.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "Could not stat %s", item)
		}

		if info.IsDir() && !recursive {
			return eris.Errorf("%s is a directory but -r wasn't passed", item)
		}
	}

	for _, item := range items {
		err := os.RemoveAll(item)
		if err != nil && (!force || !eris.Is(err, os.ErrNotExist)) {
			return eris.Wrapf(err, "Could not delete %s", item)
		}
	}

	return nil
}

func Mkdir(items []string, parents bool) error {
	for _, item := range items {
		var err error
		if parents {
			err = os.MkdirAll(item, 0770)
		} else {
			err = os.Mkdir(item, 0770)
		}

		if err != nil {
			return eris.Wrapf(err, "Failed to create %s", item)
		}
	}

	return nil
}

// IsBuiltin reports whether Exec handles the named command
func IsBuiltin(name string) bool {
	switch name {
	case "mv", "rm", "mkdir":
		return true
	}
	return false
}

func resolve(dir string, items []string) []string {
	result := make([]string, len(items))
	for idx, item := range items {
		if filepath.IsAbs(item) || dir == "" {
			result[idx] = item
		} else {
			result[idx] = filepath.Join(dir, item)
		}
	}

	return result
}

// Exec runs one of the builtin commands with POSIX style arguments (e.g. "rm -rf a b").
// Relative paths are resolved against dir.
func Exec(dir string, args []string) error {
	if len(args) == 0 || !IsBuiltin(args[0]) {
		return eris.Errorf("%v is not a builtin command", args)
	}

	flags := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	recursive := flags.BoolP("recursive", "r", false, "")
	flags.BoolVarP(recursive, "Recursive", "R", false, "")
	force := flags.BoolP("force", "f", false, "")
	parents := flags.BoolP("parents", "p", false, "")

	if err := flags.Parse(args[1:]); err != nil {
		return eris.Wrapf(err, "Invalid arguments for %s", args[0])
	}

	items := resolve(dir, flags.Args())
	switch args[0] {
	case "mv":
		if len(items) < 2 {
			return eris.New("Not enough parameters")
		}
		return Move(items[:len(items)-1], items[len(items)-1])
	case "rm":
		return Remove(items, *recursive, *force)
	default:
		return Mkdir(items, *parents)
	}
}

// CopyFile copies src to dest. Every written chunk is mirrored to progress when it's
// not nil.
func CopyFile(src, dest string, progress io.Writer) (int64, error) {
	input, err := os.Open(src)
	if err != nil {
		return 0, eris.Wrapf(err, "Failed to open %s", src)
	}
	defer input.Close()

	output, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrapf(err, "Failed to create %s", dest)
	}

	var writer io.Writer = output
	if progress != nil {
		writer = io.MultiWriter(output, progress)
	}

	written, err := io.Copy(writer, input)
	if err != nil {
		output.Close()
		return written, eris.Wrapf(err, "Failed to copy %s to %s", src, dest)
	}

	if err = output.Close(); err != nil {
		return written, eris.Wrapf(err, "Failed to write %s", dest)
	}
	return written, nil
}
