package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bdobrica/termassist/internal/termassist/batch"
	"github.com/bdobrica/termassist/internal/termassist/fsops"
	"github.com/bdobrica/termassist/internal/termassist/llm"
	"github.com/bdobrica/termassist/internal/termassist/queue"
)

// Loader populates a directory's queue.
type Loader interface {
	EnsureLoaded(ctx context.Context, dir string) (queue.LoadStatus, error)
}

// Lister renders the next batch of a directory.
type Lister interface {
	ListAttribute(ctx context.Context, dir, attr string) (*batch.Listing, error)
}

// Outcome is the result of one tool call, ready to be appended to the
// conversation as a tool message.
type Outcome struct {
	Content string
	// Remaining is set only by calls that consumed a batch.
	Remaining *int
	// Err is the failure behind an "error: ..." Content, kept for logging.
	Err error
}

// listResult is the tool-result body of listAttributeInDirectory.
type listResult struct {
	Result         string `json:"result"`
	RemainingCount int    `json:"remainingCount"`
}

// Executor runs decoded commands.
type Executor struct {
	registry *Registry
	loader   Loader
	lister   Lister
	fs       fsops.Operator
}

// NewExecutor wires the registry to its collaborators.
func NewExecutor(r *Registry, loader Loader, lister Lister, fs fsops.Operator) *Executor {
	return &Executor{registry: r, loader: loader, lister: lister, fs: fs}
}

// Definitions returns the model-facing definitions of the registry.
func (e *Executor) Definitions() []llm.ToolDefinition {
	return e.registry.Definitions()
}

// Run decodes and executes call. Failures never escape as errors: they are
// rendered into Content so the model can react to them.
func (e *Executor) Run(ctx context.Context, call llm.ToolCall) Outcome {
	cmd, err := e.registry.Decode(call)
	if err != nil {
		return failed(err)
	}
	out, err := e.Execute(ctx, cmd)
	if err != nil {
		return failed(err)
	}
	return out
}

// Execute runs an already decoded command.
func (e *Executor) Execute(ctx context.Context, cmd Command) (Outcome, error) {
	slog.Debug("tools: executing", "tool", cmd.ToolName())

	var (
		text string
		err  error
	)
	switch c := cmd.(type) {
	case LoadEntries:
		var st queue.LoadStatus
		st, err = e.loader.EnsureLoaded(ctx, c.Directory)
		text = st.String()
	case ListAttribute:
		var l *batch.Listing
		l, err = e.lister.ListAttribute(ctx, c.Directory, string(c.Attribute))
		if err != nil {
			return Outcome{}, err
		}
		data, err := json.Marshal(listResult{Result: l.Text, RemainingCount: l.Remaining})
		if err != nil {
			return Outcome{}, fmt.Errorf("encode listing: %w", err)
		}
		remaining := l.Remaining
		return Outcome{Content: string(data), Remaining: &remaining}, nil
	case MoveEntries:
		text, err = e.fs.Move(c.Sources, c.Destination)
	case MakeDirectory:
		text, err = e.fs.MakeDirectory(c.Path, c.Parents)
	case RenameEntry:
		text, err = e.fs.Rename(c.OldName, c.NewName)
	case CurrentDirectory:
		text, err = e.fs.CurrentDirectory()
	case ChangeDirectory:
		text, err = e.fs.ChangeDirectory(c.Directory)
	default:
		return Outcome{}, fmt.Errorf("unhandled command %T", cmd)
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Content: text}, nil
}

func failed(err error) Outcome {
	return Outcome{Content: "error: " + err.Error(), Err: err}
}
