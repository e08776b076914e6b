// Package batch renders one queue batch as the fixed two-section listing
// returned to the model.
package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdobrica/termassist/internal/termassist/entry"
	"github.com/bdobrica/termassist/internal/termassist/queue"
)

// DefaultSize is the number of entries consumed per listing.
const DefaultSize = 100

// Popper is the part of the entry queue the reader consumes.
type Popper interface {
	PopBatch(ctx context.Context, dir string, size int) (*queue.Batch, error)
}

// Listing is the rendered result of one ListAttribute call.
type Listing struct {
	Text      string
	Remaining int
}

// Reader turns queue batches into listings.
type Reader struct {
	queue Popper
	size  int
}

// NewReader returns a Reader that pops size entries per call; size <= 0
// selects DefaultSize.
func NewReader(q Popper, size int) *Reader {
	if size <= 0 {
		size = DefaultSize
	}
	return &Reader{queue: q, size: size}
}

// ListAttribute consumes the next batch of dir and renders attr for each
// entry. It advances the queue, so repeated calls page through the directory.
// An unknown attribute is rejected before the queue is touched.
func (r *Reader) ListAttribute(ctx context.Context, dir, attr string) (*Listing, error) {
	a, err := ParseAttribute(attr)
	if err != nil {
		return nil, err
	}
	b, err := r.queue.PopBatch(ctx, dir, r.size)
	if err != nil {
		return nil, err
	}
	return &Listing{Text: Render(b, a), Remaining: b.Remaining}, nil
}

// Render formats a batch:
//
//	Total: <n>
//	Remaining: <r>
//
//	Files:
//	<line per file>
//
//	Folders:
//	<line per folder>
//
// An empty section is rendered as "(none)".
func Render(b *queue.Batch, a Attribute) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total: %d\nRemaining: %d\n", b.Len(), b.Remaining)
	writeSection(&sb, "Files", b.Files, a)
	writeSection(&sb, "Folders", b.Folders, a)
	return strings.TrimRight(sb.String(), "\n")
}

func writeSection(sb *strings.Builder, title string, entries []entry.Entry, a Attribute) {
	fmt.Fprintf(sb, "\n%s:\n", title)
	if len(entries) == 0 {
		sb.WriteString("(none)\n")
		return
	}
	for _, e := range entries {
		sb.WriteString(a.line(e))
		sb.WriteByte('\n')
	}
}
