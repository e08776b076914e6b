// Package entry defines the directory-entry record shared by the scanner, the
// entry queue, and the batch reader, along with its JSON wire form.
package entry

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind classifies a directory child.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
)

// String returns the human-readable kind used in listings.
func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// code returns the single-letter wire code.
func (k Kind) code() string {
	if k == KindDirectory {
		return "d"
	}
	return "f"
}

func kindFromCode(c string) (Kind, error) {
	switch c {
	case "f":
		return KindFile, nil
	case "d":
		return KindDirectory, nil
	default:
		return 0, fmt.Errorf("unknown entry type %q", c)
	}
}

// Entry is the metadata record for one immediate child of a directory.
type Entry struct {
	Name       string
	Path       string
	Kind       Kind
	Size       int64
	ModifiedAt *time.Time // nil when the filesystem does not report it
	CreatedAt  *time.Time // nil when the filesystem does not report it
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Kind == KindDirectory }

// wireEntry is the serialized queue form. Timestamps are RFC 3339 strings so
// a round trip preserves at least second precision.
type wireEntry struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Type     string  `json:"type"`
	Size     int64   `json:"size"`
	Modified *string `json:"modified,omitempty"`
	Created  *string `json:"created,omitempty"`
}

// MarshalJSON encodes the entry in its queue wire form.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		Name:     e.Name,
		Path:     e.Path,
		Type:     e.Kind.code(),
		Size:     e.Size,
		Modified: formatTime(e.ModifiedAt),
		Created:  formatTime(e.CreatedAt),
	})
}

// UnmarshalJSON decodes the queue wire form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Name == "" {
		return fmt.Errorf("entry has empty name")
	}
	kind, err := kindFromCode(w.Type)
	if err != nil {
		return err
	}
	if w.Size < 0 {
		return fmt.Errorf("entry %q has negative size %d", w.Name, w.Size)
	}
	modified, err := parseTime(w.Modified)
	if err != nil {
		return fmt.Errorf("entry %q modified: %w", w.Name, err)
	}
	created, err := parseTime(w.Created)
	if err != nil {
		return fmt.Errorf("entry %q created: %w", w.Name, err)
	}
	*e = Entry{
		Name:       w.Name,
		Path:       w.Path,
		Kind:       kind,
		Size:       w.Size,
		ModifiedAt: modified,
		CreatedAt:  created,
	}
	return nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func parseTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
