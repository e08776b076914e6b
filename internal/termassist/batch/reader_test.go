package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/termassist/internal/termassist/entry"
	"github.com/bdobrica/termassist/internal/termassist/queue"
)

type countingPopper struct {
	calls int
	q     *queue.Queue
}

func (c *countingPopper) PopBatch(ctx context.Context, dir string, size int) (*queue.Batch, error) {
	c.calls++
	return c.q.PopBatch(ctx, dir, size)
}

type staticScanner []entry.Entry

func (s staticScanner) Scan(string) ([]entry.Entry, error) { return s, nil }

func newPopper(entries []entry.Entry) *countingPopper {
	return &countingPopper{q: queue.New(queue.NewMemoryStore(), staticScanner(entries))}
}

func TestListAttribute_Sections(t *testing.T) {
	mod := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	p := newPopper([]entry.Entry{
		{Name: "docs", Path: "/w/docs", Kind: entry.KindDirectory, Size: 4096, ModifiedAt: &mod},
		{Name: "a.txt", Path: "/w/a.txt", Kind: entry.KindFile, Size: 12, ModifiedAt: &mod},
		{Name: "b.txt", Path: "/w/b.txt", Kind: entry.KindFile, Size: 0},
	})
	r := NewReader(p, 0)

	tests := []struct {
		attr string
		want string
	}{
		{"name", "Total: 3\nRemaining: 0\n\nFiles:\na.txt\nb.txt\n\nFolders:\ndocs"},
		{"size", "Total: 3\nRemaining: 0\n\nFiles:\na.txt = 12\nb.txt = 0\n\nFolders:\ndocs = 4096"},
		{"type", "Total: 3\nRemaining: 0\n\nFiles:\na.txt = file\nb.txt = file\n\nFolders:\ndocs = directory"},
		{"modified", "Total: 3\nRemaining: 0\n\nFiles:\na.txt = 2024-05-01T08:30:00Z\nb.txt = unknown\n\nFolders:\ndocs = 2024-05-01T08:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			// Each listing drains the queue, so reset between attributes.
			if err := p.q.Reset(context.Background(), "/w"); err != nil {
				t.Fatal(err)
			}
			got, err := r.ListAttribute(context.Background(), "/w", tt.attr)
			if err != nil {
				t.Fatalf("ListAttribute: %v", err)
			}
			if got.Text != tt.want {
				t.Errorf("text =\n%s\nwant\n%s", got.Text, tt.want)
			}
			if got.Remaining != 0 {
				t.Errorf("Remaining = %d", got.Remaining)
			}
		})
	}
}

func TestListAttribute_Pages(t *testing.T) {
	var entries []entry.Entry
	for i := 0; i < 150; i++ {
		name := fmt.Sprintf("f%03d", i)
		entries = append(entries, entry.Entry{Name: name, Path: "/big/" + name, Kind: entry.KindFile})
	}
	r := NewReader(newPopper(entries), 0)

	first, err := r.ListAttribute(context.Background(), "/big", "name")
	if err != nil {
		t.Fatal(err)
	}
	if first.Remaining != 50 || !strings.HasPrefix(first.Text, "Total: 100\nRemaining: 50\n") {
		t.Errorf("first page: remaining=%d text=%.40q", first.Remaining, first.Text)
	}
	if !strings.HasSuffix(first.Text, "Folders:\n(none)") {
		t.Errorf("empty folders section not rendered: %q", first.Text[len(first.Text)-30:])
	}

	second, err := r.ListAttribute(context.Background(), "/big", "name")
	if err != nil {
		t.Fatal(err)
	}
	if second.Remaining != 0 || !strings.Contains(second.Text, "f100\n") {
		t.Errorf("second page: remaining=%d", second.Remaining)
	}
}

func TestListAttribute_UnknownAttributeLeavesQueueAlone(t *testing.T) {
	p := newPopper([]entry.Entry{{Name: "a", Path: "/w/a", Kind: entry.KindFile}})
	_, err := NewReader(p, 0).ListAttribute(context.Background(), "/w", "owner")
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("queue touched %d times for an invalid attribute", p.calls)
	}
}

func TestParseAttribute(t *testing.T) {
	for _, a := range Attributes {
		got, err := ParseAttribute(strings.ToUpper(string(a)))
		if err != nil || got != a {
			t.Errorf("ParseAttribute(%q) = %q, %v", a, got, err)
		}
	}
	if _, err := ParseAttribute(""); err == nil {
		t.Error("empty attribute should be rejected")
	}
}
