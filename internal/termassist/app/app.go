// Package app wires the termassist subsystems together: entry queue backend,
// batch reader, filesystem operator, tool executor, LLM provider, and the
// agent loop with its SQLite checkpoints and turn log.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bdobrica/termassist/common/retry"
	"github.com/bdobrica/termassist/common/trace"
	"github.com/bdobrica/termassist/internal/termassist/agent"
	"github.com/bdobrica/termassist/internal/termassist/batch"
	"github.com/bdobrica/termassist/internal/termassist/config"
	"github.com/bdobrica/termassist/internal/termassist/entry"
	"github.com/bdobrica/termassist/internal/termassist/fsops"
	"github.com/bdobrica/termassist/internal/termassist/llm"
	"github.com/bdobrica/termassist/internal/termassist/observability"
	"github.com/bdobrica/termassist/internal/termassist/queue"
	"github.com/bdobrica/termassist/internal/termassist/queue/redisstore"
	"github.com/bdobrica/termassist/internal/termassist/store"
	"github.com/bdobrica/termassist/internal/termassist/tools"
)

// App is a fully wired termassist instance.
type App struct {
	cfg      *config.Config
	db       *store.Store
	closers  []io.Closer
	queue    *queue.Queue
	reader   *batch.Reader
	executor *tools.Executor

	provider llm.Provider
	loop     *agent.Loop

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// Option customises New.
type Option func(*App)

// WithProvider injects an LLM provider instead of building one from the
// configuration.
func WithProvider(p llm.Provider) Option { return func(a *App) { a.provider = p } }

// WithIO sets the REPL streams. Defaults are stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.in, a.out, a.errOut = in, out, errOut
	}
}

// New opens the database and the configured queue backend and builds the
// tool executor. The LLM side is built on first use so offline commands
// work without an API key.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	for _, o := range opts {
		o(a)
	}

	if cfg.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)

	backend, err := a.openQueueBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = queue.New(backend, entry.NewScanner(), queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
	a.reader = batch.NewReader(a.queue, cfg.Queue.BatchSize)

	var fs fsops.Operator = fsops.NewLocal()
	if cfg.DryRun {
		fs = fsops.NewDryRun()
	}
	reg, err := tools.NewRegistry()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	a.executor = tools.NewExecutor(reg, a.queue, a.reader, fs)

	slog.Debug("termassist initialised",
		"db", cfg.DatabasePath, "queue_backend", cfg.Queue.Backend,
		"batch_size", cfg.Queue.BatchSize, "dry_run", cfg.DryRun)
	return a, nil
}

func (a *App) openQueueBackend(ctx context.Context) (queue.ListStore, error) {
	switch a.cfg.Queue.Backend {
	case config.BackendRedis:
		rs, err := redisstore.New(ctx, redisstore.Options{
			Host:     a.cfg.Redis.Host,
			Port:     a.cfg.Redis.Port,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rs)
		return rs, nil
	case config.BackendMemory:
		return queue.NewMemoryStore(), nil
	default:
		return a.db, nil
	}
}

// Close releases the queue backend and the database.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Load fills the queue of dir unless it is already populated.
func (a *App) Load(ctx context.Context, dir string) (queue.LoadStatus, error) {
	return a.queue.EnsureLoaded(ctx, dir)
}

// List pops the next batch of dir and renders attr for each entry.
func (a *App) List(ctx context.Context, dir, attr string) (*batch.Listing, error) {
	return a.reader.ListAttribute(ctx, dir, attr)
}

// Reset drops the queue of dir.
func (a *App) Reset(ctx context.Context, dir string) error {
	return a.queue.Reset(ctx, dir)
}

// Threads lists stored conversations, newest first.
func (a *App) Threads(ctx context.Context, limit int) ([]store.ThreadInfo, error) {
	return a.db.ListThreads(ctx, limit)
}

// Turns returns the turn log of threadID, newest first.
func (a *App) Turns(ctx context.Context, threadID string, limit int) ([]store.TurnRecord, error) {
	return a.db.RecentTurns(ctx, threadID, limit)
}

// agentLoop builds the LLM provider and agent loop on first use.
func (a *App) agentLoop() (*agent.Loop, error) {
	if a.loop != nil {
		return a.loop, nil
	}
	if a.provider == nil {
		if err := a.cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		a.provider = buildLLMProvider(a.cfg.LLM)
	}

	rc := retry.DefaultConfig
	rc.MaxAttempts = a.cfg.LLM.MaxAttempts

	opts := []agent.Option{
		agent.WithModel(a.cfg.LLM.Model),
		agent.WithMaxTokens(a.cfg.LLM.MaxTokens),
		agent.WithMaxToolRounds(a.cfg.Agent.MaxToolRounds),
		agent.WithRetry(rc),
	}
	if a.cfg.Summary.Enabled {
		opts = append(opts, agent.WithSummariser(
			agent.NewLLMSummariser(a.provider, a.cfg.LLM.Model),
			summaryPolicy(a.cfg.Summary),
		))
	}
	a.loop = agent.New(a.provider, a.executor, a.db, opts...)
	return a.loop, nil
}

// summaryPolicy overlays the configured thresholds on the agent defaults.
// Zero thresholds keep the default.
func summaryPolicy(cfg config.SummaryConfig) agent.SummaryPolicy {
	p := agent.DefaultSummaryPolicy()
	if cfg.MinMessages > 0 {
		p.MinMessages = cfg.MinMessages
	}
	if cfg.MaxTokens > 0 {
		p.MaxTokens = cfg.MaxTokens
	}
	return p
}

func buildLLMProvider(cfg config.LLMConfig) llm.Provider {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	default:
		return llm.NewAnthropic(llm.AnthropicConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	}
}

// Turn runs one user message through the agent under a fresh trace ID and
// records it in the turn log.
func (a *App) Turn(ctx context.Context, threadID, text string) (*agent.TurnResult, error) {
	loop, err := a.agentLoop()
	if err != nil {
		return nil, err
	}
	traceID := trace.GenerateID()
	ctx = trace.WithThreadID(trace.WithTraceID(ctx, traceID), threadID)
	log := observability.WithTrace(ctx)

	start := time.Now()
	turnID, logErr := a.db.LogTurn(ctx, traceID, threadID, text)
	if logErr != nil {
		log.Warn("turn log: insert failed", "err", logErr)
	}

	res, err := loop.RunTurn(ctx, threadID, text)

	if logErr == nil {
		outcome, errMsg, calls := "success", "", 0
		if res != nil {
			calls = res.ToolCalls
		}
		if err != nil {
			outcome, errMsg = "error", observability.Scrub(err)
		}
		// The turn context may already be cancelled; the record still matters.
		finishCtx := context.WithoutCancel(ctx)
		if ferr := a.db.FinishTurn(finishCtx, turnID, calls, time.Since(start).Milliseconds(), outcome, errMsg); ferr != nil {
			log.Warn("turn log: update failed", "err", ferr)
		}
	}
	return res, err
}
