package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestMove_SeveralSourcesIntoDirectory(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "archive")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	a, b := filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")
	touch(t, a)
	touch(t, b)

	msg, err := NewLocal().Move([]string{a, b}, dest+"/")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !exists(filepath.Join(dest, "a.txt")) || !exists(filepath.Join(dest, "b.txt")) {
		t.Error("sources not found in destination")
	}
	if exists(a) || exists(b) {
		t.Error("sources still present")
	}
	if !strings.HasPrefix(msg, "Moved ") {
		t.Errorf("status = %q", msg)
	}
}

func TestMove_SingleSourceToNewPath(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "old.txt")
	touch(t, src)
	dst := filepath.Join(root, "new.txt")

	if _, err := NewLocal().Move([]string{src}, dst); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !exists(dst) {
		t.Error("destination missing")
	}
}

func TestMove_RefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	src, dst := filepath.Join(root, "a"), filepath.Join(root, "b")
	touch(t, src)
	touch(t, dst)

	_, err := NewLocal().Move([]string{src}, dst)
	var opErr *OperationError
	if !errors.As(err, &opErr) || !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("expected OperationError wrapping ErrDestinationExists, got %v", err)
	}
	if !exists(src) {
		t.Error("source should be untouched")
	}
}

func TestMove_SeveralSourcesNeedDirectory(t *testing.T) {
	root := t.TempDir()
	a, b := filepath.Join(root, "a"), filepath.Join(root, "b")
	touch(t, a)
	touch(t, b)

	_, err := NewLocal().Move([]string{a, b}, filepath.Join(root, "missing")+"/")
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OperationError, got %v", err)
	}
}

func TestMove_TrailingSlashNeedsDirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "report.txt")
	touch(t, src)
	archive := filepath.Join(root, "archive")

	_, err := NewLocal().Move([]string{src}, archive+"/")
	var opErr *OperationError
	if !errors.As(err, &opErr) || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected not-a-directory OperationError, got %v", err)
	}
	if !exists(src) || exists(archive) {
		t.Error("failed move must leave the filesystem untouched")
	}
}

func TestMove_PartialConflictMovesNothing(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "dest")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	a, b := filepath.Join(root, "a"), filepath.Join(root, "b")
	touch(t, a)
	touch(t, b)
	touch(t, filepath.Join(dest, "b"))

	if _, err := NewLocal().Move([]string{a, b}, dest+"/"); !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", err)
	}
	if !exists(a) || exists(filepath.Join(dest, "a")) {
		t.Error("no source should move when one target is taken")
	}
}

func TestDryRun_MoveMatchesLocalChecks(t *testing.T) {
	root := t.TempDir()
	a, b := filepath.Join(root, "a"), filepath.Join(root, "b")
	touch(t, a)
	touch(t, b)
	taken := filepath.Join(root, "taken")
	touch(t, taken)

	tests := []struct {
		name    string
		sources []string
		dest    string
	}{
		{"trailing slash on missing dir", []string{a}, filepath.Join(root, "archive") + "/"},
		{"several sources into a file", []string{a, b}, taken},
		{"overwrite", []string{a}, taken},
		{"missing source", []string{filepath.Join(root, "ghost")}, root + "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDryRun().Move(tt.sources, tt.dest); err == nil {
				t.Error("dry run accepted a move the real operator rejects")
			}
			if _, err := NewLocal().Move(tt.sources, tt.dest); err == nil {
				t.Error("real operator accepted the move")
			}
		})
	}
}

func TestRename_StaysInDirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	old := filepath.Join(sub, "draft.md")
	touch(t, old)

	if _, err := NewLocal().Rename(old, "final.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if !exists(filepath.Join(sub, "final.md")) {
		t.Error("renamed file not in original directory")
	}
}

func TestRename_MissingSource(t *testing.T) {
	_, err := NewLocal().Rename(filepath.Join(t.TempDir(), "ghost"), "x")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestMakeDirectory(t *testing.T) {
	root := t.TempDir()
	l := NewLocal()

	nested := filepath.Join(root, "a", "b", "c")
	if _, err := l.MakeDirectory(nested, false); err == nil {
		t.Error("expected failure without parents")
	}
	if _, err := l.MakeDirectory(nested, true); err != nil {
		t.Fatalf("MakeDirectory(parents): %v", err)
	}
	if ok, _ := isDir(nested); !ok {
		t.Error("nested directory not created")
	}
	_, err := l.MakeDirectory(nested, false)
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "mkdir" {
		t.Errorf("existing directory: got %v", err)
	}
}

func TestChangeDirectory(t *testing.T) {
	root := t.TempDir()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	l := NewLocal()
	msg, err := l.ChangeDirectory(root)
	if err != nil {
		t.Fatalf("ChangeDirectory: %v", err)
	}
	wd, _ := l.CurrentDirectory()
	resolved, _ := filepath.EvalSymlinks(root)
	if !strings.HasSuffix(wd, resolved) && !strings.HasSuffix(wd, root) {
		t.Errorf("CurrentDirectory = %q, want suffix %q", wd, root)
	}
	if !strings.HasPrefix(msg, "Changed directory to: ") {
		t.Errorf("status = %q", msg)
	}
}

func TestDryRun_DoesNotMutate(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "keep.txt")
	touch(t, src)
	dest := filepath.Join(root, "elsewhere")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	d := NewDryRun()

	if _, err := d.Move([]string{src}, dest+"/"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := d.Rename(src, "other.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	msg, err := d.MakeDirectory(filepath.Join(root, "new"), true)
	if err != nil {
		t.Fatalf("MakeDirectory: %v", err)
	}
	if !strings.HasPrefix(msg, "[dry run]") {
		t.Errorf("status = %q", msg)
	}
	if !exists(src) || exists(filepath.Join(dest, "keep.txt")) || exists(filepath.Join(root, "new")) || exists(filepath.Join(root, "other.txt")) {
		t.Error("dry run touched the filesystem")
	}
	if _, err := d.Move([]string{filepath.Join(root, "ghost")}, root+"/"); err == nil {
		t.Error("dry run should still report missing sources")
	}
}
