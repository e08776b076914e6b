package entry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ScanError reports a directory that could not be enumerated, or a child
// whose metadata could not be read. A scan that fails yields no entries.
type ScanError struct {
	Dir  string
	Name string // child name; empty when the directory itself failed
	Err  error
}

func (e *ScanError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("scan %s: stat %s: %v", e.Dir, e.Name, e.Err)
	}
	return fmt.Sprintf("scan %s: %v", e.Dir, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scanner enumerates the immediate children of one directory.
type Scanner struct {
	// readDir lists a directory; overridden in tests to inject failures.
	readDir func(string) ([]fs.DirEntry, error)
}

// NewScanner returns a Scanner backed by the local filesystem.
func NewScanner() *Scanner {
	return &Scanner{readDir: os.ReadDir}
}

// Scan returns the non-symlink children of dir, all directories first and
// then all files, each group in enumeration order. Any per-child metadata
// failure fails the whole scan.
func (s *Scanner) Scan(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &ScanError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	children, err := s.readDir(dir)
	if err != nil {
		return nil, &ScanError{Dir: dir, Err: err}
	}

	var folders, files []Entry
	for _, child := range children {
		if child.Type()&fs.ModeSymlink != 0 {
			continue
		}
		fi, err := child.Info()
		if err != nil {
			return nil, &ScanError{Dir: dir, Name: child.Name(), Err: err}
		}
		// The child may have been replaced by a symlink after enumeration.
		if fi.Mode()&fs.ModeSymlink != 0 {
			continue
		}

		path := joinPath(dir, child.Name())
		e := Entry{
			Name:      child.Name(),
			Path:      path,
			Size:      fi.Size(),
			CreatedAt: birthTime(path, fi),
		}
		if mod := fi.ModTime(); !mod.IsZero() {
			e.ModifiedAt = &mod
		}
		if fi.IsDir() {
			e.Kind = KindDirectory
			folders = append(folders, e)
		} else {
			e.Kind = KindFile
			files = append(files, e)
		}
	}

	slog.Debug("scanned directory", "dir", dir, "folders", len(folders), "files", len(files))
	return append(folders, files...), nil
}

// joinPath builds parentDir + "/" + name without doubling a trailing slash.
func joinPath(dir, name string) string {
	trimmed := strings.TrimRight(dir, "/")
	if trimmed == "" && strings.HasPrefix(dir, "/") {
		return "/" + name
	}
	return trimmed + "/" + name
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
