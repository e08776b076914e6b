// Package tools defines the tool surface offered to the model: the JSON
// Schema of every tool, the decoding of raw tool calls into typed commands,
// and their execution against the entry queue and the filesystem.
//
// Arguments are validated and decoded exactly once, in Registry.Decode. The
// executor only ever sees well-formed Command values.
package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bdobrica/termassist/internal/termassist/batch"
	"github.com/bdobrica/termassist/internal/termassist/llm"
)

// Tool names as advertised to the model.
const (
	NameLoadEntries      = "loadEntriesInDirectory"
	NameListAttribute    = "listAttributeInDirectory"
	NameMoveEntries      = "moveEntries"
	NameMakeDirectory    = "makeDirectory"
	NameRenameEntry      = "renameEntry"
	NameCurrentDirectory = "getCurrentDirectory"
	NameChangeDirectory  = "changeDirectory"
)

// InputError rejects a tool call whose arguments are malformed. Nothing has
// been executed when it is returned.
type InputError struct {
	Tool string
	Msg  string
	Err  error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tool, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Msg)
}

func (e *InputError) Unwrap() error { return e.Err }

type toolDef struct {
	name        string
	description string
	schema      string
	decode      func(raw []byte) (Command, error)
}

type tool struct {
	toolDef
	params   map[string]interface{}
	compiled *jsonschema.Schema
}

// Registry holds the tool set. It is immutable after NewRegistry and safe for
// concurrent use.
type Registry struct {
	tools map[string]*tool
}

// NewRegistry compiles the schemas of every tool. It fails only on a broken
// built-in schema.
func NewRegistry() (*Registry, error) {
	r := &Registry{tools: make(map[string]*tool)}
	for _, s := range builtinTools {
		compiled, err := jsonschema.CompileString(s.name+".json", s.schema)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", s.name, err)
		}
		var params map[string]interface{}
		if err := json.Unmarshal([]byte(s.schema), &params); err != nil {
			return nil, fmt.Errorf("parse schema for %s: %w", s.name, err)
		}
		if _, dup := r.tools[s.name]; dup {
			return nil, fmt.Errorf("duplicate tool %s", s.name)
		}
		r.tools[s.name] = &tool{toolDef: s, params: params, compiled: compiled}
	}
	return r, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the model-facing definitions, sorted by name so that
// requests are reproducible.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, n := range r.Names() {
		t := r.tools[n]
		defs = append(defs, llm.ToolDefinition{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        t.name,
				Description: t.description,
				Parameters:  t.params,
			},
		})
	}
	return defs
}

// Decode validates the call's arguments against the tool's schema and turns
// them into a Command.
func (r *Registry) Decode(call llm.ToolCall) (Command, error) {
	t, ok := r.tools[call.Function.Name]
	if !ok {
		return nil, &InputError{Tool: call.Function.Name, Msg: "unknown tool"}
	}

	raw := []byte(strings.TrimSpace(call.Function.Arguments))
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, &InputError{Tool: t.name, Msg: "arguments are not valid JSON", Err: err}
	}
	if err := t.compiled.Validate(doc); err != nil {
		return nil, &InputError{Tool: t.name, Msg: "arguments do not match schema", Err: err}
	}

	cmd, err := t.decode(raw)
	if err != nil {
		return nil, &InputError{Tool: t.name, Msg: err.Error()}
	}
	return cmd, nil
}

var builtinTools = []toolDef{
	{
		name:        NameLoadEntries,
		description: "Loads the entries of a directory into the listing queue. Call this before listing a directory. Reloading an already loaded directory is a no-op.",
		schema: `{
			"type": "object",
			"properties": {
				"directory": {"type": "string", "minLength": 1, "description": "Directory to load."}
			},
			"required": ["directory"]
		}`,
		decode: func(raw []byte) (Command, error) {
			var a struct {
				Directory string `json:"directory"`
			}
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			return LoadEntries{Directory: a.Directory}, nil
		},
	},
	{
		name: NameListAttribute,
		description: "Lists the next batch of up to 100 entries of a directory with one attribute each. " +
			"Each call consumes the batch it returns; call again while remainingCount is above zero.",
		schema: `{
			"type": "object",
			"properties": {
				"directory": {"type": "string", "minLength": 1},
				"attribute": {"type": "string", "enum": ["name", "type", "size", "modified", "created"]}
			},
			"required": ["directory", "attribute"]
		}`,
		decode: func(raw []byte) (Command, error) {
			var a struct {
				Directory string `json:"directory"`
				Attribute string `json:"attribute"`
			}
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			attr, err := batch.ParseAttribute(a.Attribute)
			if err != nil {
				return nil, err
			}
			return ListAttribute{Directory: a.Directory, Attribute: attr}, nil
		},
	},
	{
		name:        NameMoveEntries,
		description: "Moves files or directories to a destination path. The destination must be a path containing '/', e.g. 'archive/'. Several sources require an existing destination directory.",
		schema: `{
			"type": "object",
			"properties": {
				"sourcePaths": {"type": "array", "items": {"type": "string"}, "minItems": 1},
				"destinationPath": {"type": "string"}
			},
			"required": ["sourcePaths", "destinationPath"]
		}`,
		decode: func(raw []byte) (Command, error) {
			var a struct {
				SourcePaths     []string `json:"sourcePaths"`
				DestinationPath string   `json:"destinationPath"`
			}
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			for _, s := range a.SourcePaths {
				if strings.TrimSpace(s) == "" {
					return nil, fmt.Errorf("source path must not be blank")
				}
			}
			if strings.TrimSpace(a.DestinationPath) == "" || !strings.Contains(a.DestinationPath, "/") {
				return nil, fmt.Errorf("destination must be a path (e.g. 'path/to/destination'), got %q", a.DestinationPath)
			}
			return MoveEntries{Sources: a.SourcePaths, Destination: a.DestinationPath}, nil
		},
	},
	{
		name:        NameMakeDirectory,
		description: "Creates a directory. Set parents to create missing parent directories.",
		schema: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "minLength": 1},
				"parents": {"type": "boolean"}
			},
			"required": ["path"]
		}`,
		decode: func(raw []byte) (Command, error) {
			var a struct {
				Path    string `json:"path"`
				Parents bool   `json:"parents"`
			}
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			return MakeDirectory{Path: a.Path, Parents: a.Parents}, nil
		},
	},
	{
		name:        NameRenameEntry,
		description: "Renames a file or directory in place. The new name must not contain '/'; use moveEntries to relocate.",
		schema: `{
			"type": "object",
			"properties": {
				"oldName": {"type": "string", "minLength": 1},
				"newName": {"type": "string", "minLength": 1}
			},
			"required": ["oldName", "newName"]
		}`,
		decode: func(raw []byte) (Command, error) {
			var a struct {
				OldName string `json:"oldName"`
				NewName string `json:"newName"`
			}
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			if strings.Contains(a.NewName, "/") {
				return nil, fmt.Errorf("new name cannot include path separators, use %s to move entries", NameMoveEntries)
			}
			if a.NewName == "." || a.NewName == ".." {
				return nil, fmt.Errorf("invalid new name %q", a.NewName)
			}
			return RenameEntry{OldName: a.OldName, NewName: a.NewName}, nil
		},
	},
	{
		name:        NameCurrentDirectory,
		description: "Returns the current working directory.",
		schema:      `{"type": "object", "properties": {}}`,
		decode: func([]byte) (Command, error) {
			return CurrentDirectory{}, nil
		},
	},
	{
		name:        NameChangeDirectory,
		description: "Changes the current working directory.",
		schema: `{
			"type": "object",
			"properties": {
				"directory": {"type": "string", "minLength": 1}
			},
			"required": ["directory"]
		}`,
		decode: func(raw []byte) (Command, error) {
			var a struct {
				Directory string `json:"directory"`
			}
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			return ChangeDirectory{Directory: a.Directory}, nil
		},
	},
}
