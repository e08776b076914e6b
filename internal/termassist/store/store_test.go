package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bdobrica/termassist/internal/termassist/agent"
	"github.com/bdobrica/termassist/internal/termassist/entry"
	"github.com/bdobrica/termassist/internal/termassist/llm"
	"github.com/bdobrica/termassist/internal/termassist/queue"
	"github.com/bdobrica/termassist/internal/termassist/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "termassist-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db file: %v", err)
	}
	f.Close()

	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrations_Applied(t *testing.T) {
	s := newTestStore(t)
	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 3 {
		t.Errorf("schema version = %d, want 3", v)
	}
}

func TestMigrations_ReopenIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := store.New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PushTail(context.Background(), "k", "v"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = store.New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if n, _ := s.Len(context.Background(), "k"); n != 1 {
		t.Errorf("Len after reopen = %d, want 1", n)
	}
}

func TestListProtocol(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if kind, err := s.KeyType(ctx, "q"); err != nil || kind != queue.KeyNone {
		t.Fatalf("KeyType(missing) = %s, %v", kind, err)
	}
	if err := s.PushTail(ctx, "q", "one", "two", "three"); err != nil {
		t.Fatalf("PushTail: %v", err)
	}
	if err := s.PushTail(ctx, "other", "x"); err != nil {
		t.Fatal(err)
	}
	if kind, _ := s.KeyType(ctx, "q"); kind != queue.KeyList {
		t.Errorf("KeyType = %s, want list", kind)
	}

	for _, want := range []string{"one", "two"} {
		got, ok, err := s.PopHead(ctx, "q")
		if err != nil || !ok || got != want {
			t.Fatalf("PopHead = %q, %v, %v; want %q", got, ok, err, want)
		}
	}
	if n, _ := s.Len(ctx, "q"); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
	if _, _, err := s.PopHead(ctx, "q"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.PopHead(ctx, "q"); ok {
		t.Error("PopHead on empty list returned a value")
	}
	if kind, _ := s.KeyType(ctx, "q"); kind != queue.KeyNone {
		t.Errorf("drained key type = %s, want none", kind)
	}
	if n, _ := s.Len(ctx, "other"); n != 1 {
		t.Errorf("unrelated key disturbed: Len = %d", n)
	}
}

func TestPutValue_WrongType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.PushTail(ctx, "k", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.PutValue(ctx, "k", "scalar"); err != nil {
		t.Fatalf("PutValue: %v", err)
	}
	if kind, _ := s.KeyType(ctx, "k"); kind != queue.KeyOther {
		t.Errorf("KeyType = %s, want other", kind)
	}
	if err := s.PushTail(ctx, "k", "b"); !errors.Is(err, store.ErrWrongType) {
		t.Errorf("PushTail on scalar: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if kind, _ := s.KeyType(ctx, "k"); kind != queue.KeyNone {
		t.Errorf("KeyType after Delete = %s", kind)
	}
}

type fixedScanner []entry.Entry

func (f fixedScanner) Scan(string) ([]entry.Entry, error) { return f, nil }

func TestQueueOverSQLite_Recovery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	q := queue.New(s, fixedScanner{
		{Name: "d", Path: "/x/d", Kind: entry.KindDirectory},
		{Name: "f", Path: "/x/f", Kind: entry.KindFile, Size: 1},
		{Name: "g", Path: "/x/g", Kind: entry.KindFile, Size: 2},
	})
	if err := s.PutValue(ctx, q.Key("/x"), "legacy"); err != nil {
		t.Fatal(err)
	}

	st, err := q.EnsureLoaded(ctx, "/x")
	if err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	if st.AlreadyLoaded || st.Count != 3 {
		t.Errorf("status = %+v", st)
	}
	b, err := q.PopBatch(ctx, "/x", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Folders) != 1 || len(b.Files) != 1 || b.Remaining != 1 {
		t.Errorf("batch = %d/%d remaining %d", len(b.Folders), len(b.Files), b.Remaining)
	}
}

func TestConversationCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, found, err := s.LoadConversation(ctx, "missing"); err != nil || found {
		t.Fatalf("LoadConversation(missing) found=%v err=%v", found, err)
	}

	conv := &agent.Conversation{
		ThreadID: "th-1",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: "list ."},
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Type: "function",
				Function: llm.FunctionCall{Name: "listAttributeInDirectory", Arguments: `{"directory":"."}`}}}},
			{Role: llm.RoleTool, ToolCallID: "c1", Name: "listAttributeInDirectory", Content: `{"result":"...","remainingCount":50}`},
		},
		Remaining: 50,
	}
	if err := s.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	conv.Remaining = 20
	conv.Summary = "listed ."
	if err := s.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("SaveConversation (update): %v", err)
	}

	got, found, err := s.LoadConversation(ctx, "th-1")
	if err != nil || !found {
		t.Fatalf("LoadConversation: found=%v err=%v", found, err)
	}
	if got.Remaining != 20 || got.Summary != "listed ." {
		t.Errorf("remaining=%d summary=%q", got.Remaining, got.Summary)
	}
	if len(got.Messages) != 4 || got.Messages[2].ToolCalls[0].Function.Name != "listAttributeInDirectory" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Messages[3].ToolCallID != "c1" {
		t.Errorf("tool call id lost: %+v", got.Messages[3])
	}

	threads, err := s.ListThreads(ctx, 10)
	if err != nil || len(threads) != 1 || threads[0].ThreadID != "th-1" {
		t.Errorf("ListThreads = %+v, %v", threads, err)
	}
}

func TestTurnLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.LogTurn(ctx, "t_abc", "th-1", "list .")
	if err != nil {
		t.Fatalf("LogTurn: %v", err)
	}
	if err := s.FinishTurn(ctx, id, 3, 1200, "success", ""); err != nil {
		t.Fatalf("FinishTurn: %v", err)
	}
	id2, _ := s.LogTurn(ctx, "t_def", "th-1", "move a to b")
	if err := s.FinishTurn(ctx, id2, 0, 40, "error", "LLM call failed"); err != nil {
		t.Fatal(err)
	}

	turns, err := s.RecentTurns(ctx, "th-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].TraceID != "t_def" || turns[0].ErrorMsg != "LLM call failed" {
		t.Errorf("newest turn = %+v", turns[0])
	}
	if turns[1].ToolCalls != 3 || turns[1].Result != "success" || turns[1].DurationMS != 1200 {
		t.Errorf("older turn = %+v", turns[1])
	}
}
