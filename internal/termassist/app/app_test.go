package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bdobrica/termassist/internal/termassist/agent"
	"github.com/bdobrica/termassist/internal/termassist/config"
	"github.com/bdobrica/termassist/internal/termassist/llm"
	"github.com/bdobrica/termassist/internal/termassist/tools"
)

// stubProvider replays canned assistant messages in order.
type stubProvider struct {
	mu       sync.Mutex
	replies  []llm.Message
	err      error
	requests int
}

func (p *stubProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.requests
	p.requests++
	if p.err != nil {
		return nil, p.err
	}
	if i >= len(p.replies) {
		return nil, errors.New("script exhausted")
	}
	return &llm.CompletionResponse{Message: p.replies[i]}, nil
}

func call(id, name string, args map[string]any) llm.ToolCall {
	raw, _ := json.Marshal(args)
	return llm.ToolCall{ID: id, Type: "function", Function: llm.FunctionCall{Name: name, Arguments: string(raw)}}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "state", "termassist.db")
	cfg.Summary.Enabled = false
	cfg.LLM.MaxAttempts = 1
	return cfg
}

func fixtureDir(t *testing.T, files int) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < files; i++ {
		name := filepath.Join(dir, fmt.Sprintf("f%03d.txt", i))
		if err := os.WriteFile(name, []byte(strings.Repeat("x", i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestLoadListReset(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t)
			cfg.Queue.Backend = backend
			cfg.Queue.BatchSize = 4
			a := newTestApp(t, cfg)
			dir := fixtureDir(t, 5)

			st, err := a.Load(ctx, dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if st.AlreadyLoaded || st.Count != 6 {
				t.Fatalf("status = %+v", st)
			}
			if st, _ := a.Load(ctx, dir); !st.AlreadyLoaded {
				t.Fatalf("second Load should be a no-op: %+v", st)
			}

			l, err := a.List(ctx, dir, "size")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if l.Remaining != 2 || !strings.Contains(l.Text, "sub = ") {
				t.Errorf("first listing remaining=%d text=%q", l.Remaining, l.Text)
			}

			if err := a.Reset(ctx, dir); err != nil {
				t.Fatalf("Reset: %v", err)
			}
			if st, _ := a.Load(ctx, dir); st.AlreadyLoaded || st.Count != 6 {
				t.Errorf("after reset: %+v", st)
			}
		})
	}
}

func TestNew_UnreachableRedisFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Queue.Backend = config.BackendRedis
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = 1
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected redis connection error")
	}
}

func TestTurn_RequiresAPIKey(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	_, err := a.Turn(context.Background(), "th", "hello")
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestTurn_ToolsAndTurnLog(t *testing.T) {
	ctx := context.Background()
	dir := fixtureDir(t, 3)
	p := &stubProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			call("c1", tools.NameLoadEntries, map[string]any{"directory": dir}),
			call("c2", tools.NameListAttribute, map[string]any{"directory": dir, "attribute": "name"}),
		}},
		{Role: llm.RoleAssistant, Content: "You have 3 files and 1 folder.\nRemaining: 0"},
	}}
	a := newTestApp(t, testConfig(t), WithProvider(p))

	res, err := a.Turn(ctx, "th-1", "what is in "+dir)
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if res.ToolCalls != 2 || res.Remaining != 0 || !res.NewThread {
		t.Errorf("result = %+v", res)
	}

	conv, found, err := a.db.LoadConversation(ctx, "th-1")
	if err != nil || !found {
		t.Fatalf("conversation not saved: %v", err)
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Content != "You have 3 files and 1 folder.\nRemaining: 0" {
		t.Errorf("last message = %+v", last)
	}

	turns, err := a.db.RecentTurns(ctx, "th-1", 5)
	if err != nil || len(turns) != 1 {
		t.Fatalf("turns = %+v, %v", turns, err)
	}
	if turns[0].Result != "success" || turns[0].ToolCalls != 2 || !strings.HasPrefix(turns[0].TraceID, "t_") {
		t.Errorf("turn record = %+v", turns[0])
	}
}

func TestTurn_FailureIsLogged(t *testing.T) {
	ctx := context.Background()
	p := &stubProvider{err: &llm.APIError{Provider: "anthropic", Status: 400, Message: "bad request"}}
	a := newTestApp(t, testConfig(t), WithProvider(p))

	if _, err := a.Turn(ctx, "th-2", "hi"); err == nil {
		t.Fatal("expected error")
	}
	turns, _ := a.db.RecentTurns(ctx, "th-2", 5)
	if len(turns) != 1 || turns[0].Result != "error" || !strings.Contains(turns[0].ErrorMsg, "LLM call failed") {
		t.Errorf("turn record = %+v", turns)
	}
	if p.requests != 1 {
		t.Errorf("non-retryable error retried: %d requests", p.requests)
	}
}

func TestChat_Session(t *testing.T) {
	p := &stubProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, Content: "Hello there."},
		{Role: llm.RoleAssistant, Content: "Still here."},
	}}
	in := strings.NewReader("hi\n\n   \nagain\nquit\nnever sent\n")
	var out, errOut bytes.Buffer
	a := newTestApp(t, testConfig(t), WithProvider(p), WithIO(in, &out, &errOut))

	if err := a.Chat(context.Background(), "th-chat"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	got := out.String()
	for _, want := range []string{"thread th-chat", "Hello there.", "Still here.", "Thank you for using termassist."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if p.requests != 2 {
		t.Errorf("provider called %d times, want 2 (blank lines re-prompt, quit stops)", p.requests)
	}
	if errOut.Len() != 0 {
		t.Errorf("unexpected stderr: %s", errOut.String())
	}
}

func TestChat_ErrorsDoNotEndSession(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	in := strings.NewReader("one\ntwo\n")
	var out, errOut bytes.Buffer
	a := newTestApp(t, testConfig(t), WithProvider(p), WithIO(in, &out, &errOut))

	if err := a.Chat(context.Background(), ""); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if n := strings.Count(errOut.String(), "An error occurred"); n != 2 {
		t.Errorf("errors reported %d times, want 2:\n%s", n, errOut.String())
	}
}

func TestSummaryPolicy_KeepsDefaultsForZeroThresholds(t *testing.T) {
	def := agent.DefaultSummaryPolicy()
	got := summaryPolicy(config.SummaryConfig{Enabled: true, MinMessages: 40})
	if !got.Enabled || got.MinMessages != 40 || got.MaxTokens != def.MaxTokens {
		t.Errorf("policy = %+v, default %+v", got, def)
	}
}

func TestIsExit(t *testing.T) {
	for _, s := range []string{"exit", "quit", "q"} {
		if !isExit(s) {
			t.Errorf("isExit(%q) = false", s)
		}
	}
	if isExit("quit please") {
		t.Error("isExit matched a longer line")
	}
}
