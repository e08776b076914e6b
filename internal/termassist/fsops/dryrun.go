package fsops

import (
	"fmt"
	"log/slog"
	"os"
)

// DryRun reports the mutations it would perform without touching the
// filesystem. Reads are delegated to the real filesystem so the model still
// sees accurate state.
type DryRun struct {
	local *Local
}

// NewDryRun returns a non-mutating Operator.
func NewDryRun() *DryRun { return &DryRun{local: NewLocal()} }

func (d *DryRun) Move(sources []string, destination string) (string, error) {
	if _, err := planMove(sources, destination); err != nil {
		return "", err
	}
	slog.Info("fsops: dry run move", "sources", sources, "destination", destination)
	return fmt.Sprintf("[dry run] would move %s to '%s'", quoteList(sources), destination), nil
}

func (d *DryRun) Rename(oldPath, newName string) (string, error) {
	if _, err := os.Lstat(oldPath); err != nil {
		return "", &OperationError{Op: "rename", Path: oldPath, Err: err}
	}
	slog.Info("fsops: dry run rename", "path", oldPath, "new_name", newName)
	return fmt.Sprintf("[dry run] would rename '%s' to '%s'", oldPath, newName), nil
}

func (d *DryRun) MakeDirectory(path string, parents bool) (string, error) {
	slog.Info("fsops: dry run mkdir", "path", path, "parents", parents)
	return fmt.Sprintf("[dry run] would create directory '%s'", path), nil
}

func (d *DryRun) CurrentDirectory() (string, error) {
	return d.local.CurrentDirectory()
}

func (d *DryRun) ChangeDirectory(dir string) (string, error) {
	ok, err := isDir(dir)
	if err != nil || !ok {
		if err == nil {
			err = errNotDirectory
		}
		return "", &OperationError{Op: "chdir", Path: dir, Err: err}
	}
	return fmt.Sprintf("[dry run] would change directory to '%s'", dir), nil
}

var _ Operator = (*DryRun)(nil)
