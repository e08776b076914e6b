// Package fsops performs the filesystem mutations the assistant's tools
// request: moving and renaming entries, creating directories, and reading or
// changing the working directory.
package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// OperationError reports a filesystem operation that failed after its input
// was accepted.
type OperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// ErrDestinationExists is wrapped when a move or rename would overwrite an
// existing entry.
var ErrDestinationExists = errors.New("destination already exists")

var errNotDirectory = errors.New("not a directory")

// Operator is the filesystem collaborator behind the tools. Every method
// returns a one-line status suitable for a tool result.
type Operator interface {
	Move(sources []string, destination string) (string, error)
	Rename(oldPath, newName string) (string, error)
	MakeDirectory(path string, parents bool) (string, error)
	CurrentDirectory() (string, error)
	ChangeDirectory(dir string) (string, error)
}

// Local operates on the real filesystem. ChangeDirectory changes the working
// directory of the whole process.
type Local struct{}

// NewLocal returns the real-filesystem Operator.
func NewLocal() *Local { return &Local{} }

// Move relocates sources. With several sources, or when destination is an
// existing directory, each source keeps its base name inside destination.
// Otherwise the single source is moved to the destination path itself.
// Existing entries are never overwritten.
func (l *Local) Move(sources []string, destination string) (string, error) {
	steps, err := planMove(sources, destination)
	if err != nil {
		return "", err
	}
	moved := make([]string, 0, len(steps))
	for _, st := range steps {
		if err := renameNoClobber(st.src, st.dst); err != nil {
			return "", &OperationError{Op: "move", Path: st.src, Err: err}
		}
		slog.Debug("fsops: moved", "from", st.src, "to", st.dst)
		moved = append(moved, st.src)
	}
	return fmt.Sprintf("Moved %s to '%s'", quoteList(moved), destination), nil
}

type moveStep struct{ src, dst string }

// planMove resolves the target of every source and rejects the move before
// anything is renamed. A destination with a trailing separator must be an
// existing directory.
func planMove(sources []string, destination string) ([]moveStep, error) {
	into, err := isDir(destination)
	if err != nil {
		return nil, &OperationError{Op: "move", Path: destination, Err: err}
	}
	if !into && strings.HasSuffix(destination, string(filepath.Separator)) {
		return nil, &OperationError{Op: "move", Path: destination, Err: errNotDirectory}
	}
	if len(sources) > 1 && !into {
		return nil, &OperationError{Op: "move", Path: destination, Err: errNotDirectory}
	}

	steps := make([]moveStep, 0, len(sources))
	for _, src := range sources {
		target := filepath.Clean(destination)
		if into {
			target = filepath.Join(target, filepath.Base(filepath.Clean(src)))
		}
		if _, err := os.Lstat(src); err != nil {
			return nil, &OperationError{Op: "move", Path: src, Err: err}
		}
		if err := checkFree(target); err != nil {
			return nil, &OperationError{Op: "move", Path: src, Err: err}
		}
		steps = append(steps, moveStep{src: src, dst: target})
	}
	return steps, nil
}

// Rename gives oldPath a new base name in the same directory.
func (l *Local) Rename(oldPath, newName string) (string, error) {
	target := filepath.Join(filepath.Dir(filepath.Clean(oldPath)), newName)
	if err := renameNoClobber(oldPath, target); err != nil {
		return "", &OperationError{Op: "rename", Path: oldPath, Err: err}
	}
	slog.Debug("fsops: renamed", "from", oldPath, "to", target)
	return fmt.Sprintf("Renamed '%s' to '%s'", oldPath, newName), nil
}

// MakeDirectory creates path, and its missing parents when parents is set.
func (l *Local) MakeDirectory(path string, parents bool) (string, error) {
	mkdir := os.Mkdir
	if parents {
		mkdir = os.MkdirAll
	}
	if err := mkdir(path, 0o755); err != nil {
		return "", &OperationError{Op: "mkdir", Path: path, Err: err}
	}
	return fmt.Sprintf("Created directory '%s'", path), nil
}

// CurrentDirectory reports the process working directory.
func (l *Local) CurrentDirectory() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", &OperationError{Op: "getwd", Path: ".", Err: err}
	}
	return "Current directory: " + wd, nil
}

// ChangeDirectory changes the process working directory.
func (l *Local) ChangeDirectory(dir string) (string, error) {
	if err := os.Chdir(dir); err != nil {
		return "", &OperationError{Op: "chdir", Path: dir, Err: err}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", &OperationError{Op: "getwd", Path: dir, Err: err}
	}
	return "Changed directory to: " + wd, nil
}

func isDir(path string) (bool, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

func renameNoClobber(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return err
	}
	if err := checkFree(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// checkFree fails unless nothing exists at path.
func checkFree(path string) error {
	_, err := os.Lstat(path)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func quoteList(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + p + "'"
	}
	return strings.Join(quoted, ", ")
}

var _ Operator = (*Local)(nil)
