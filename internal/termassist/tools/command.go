package tools

import "github.com/bdobrica/termassist/internal/termassist/batch"

// Command is a decoded, validated tool call. The concrete types below are the
// only implementations.
type Command interface {
	ToolName() string
	isCommand()
}

// LoadEntries snapshots a directory into its queue.
type LoadEntries struct {
	Directory string
}

// ListAttribute consumes the next batch of a directory's queue.
type ListAttribute struct {
	Directory string
	Attribute batch.Attribute
}

// MoveEntries moves one or more paths to a destination.
type MoveEntries struct {
	Sources     []string
	Destination string
}

// MakeDirectory creates a directory.
type MakeDirectory struct {
	Path    string
	Parents bool
}

// RenameEntry renames an entry within its directory.
type RenameEntry struct {
	OldName string
	NewName string
}

// CurrentDirectory reports the working directory.
type CurrentDirectory struct{}

// ChangeDirectory changes the working directory.
type ChangeDirectory struct {
	Directory string
}

func (LoadEntries) ToolName() string      { return NameLoadEntries }
func (ListAttribute) ToolName() string    { return NameListAttribute }
func (MoveEntries) ToolName() string      { return NameMoveEntries }
func (MakeDirectory) ToolName() string    { return NameMakeDirectory }
func (RenameEntry) ToolName() string      { return NameRenameEntry }
func (CurrentDirectory) ToolName() string { return NameCurrentDirectory }
func (ChangeDirectory) ToolName() string  { return NameChangeDirectory }

func (LoadEntries) isCommand()      {}
func (ListAttribute) isCommand()    {}
func (MoveEntries) isCommand()      {}
func (MakeDirectory) isCommand()    {}
func (RenameEntry) isCommand()      {}
func (CurrentDirectory) isCommand() {}
func (ChangeDirectory) isCommand()  {}
