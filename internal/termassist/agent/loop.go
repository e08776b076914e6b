// Package agent runs the per-thread turn loop: the model reasons over the
// conversation, requested tools are executed and their results appended, and
// the loop repeats until the model answers without tool calls.
//
// Turns of one thread must run sequentially. The loop keeps no per-thread
// state in memory between turns; everything lives in the Checkpointer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/termassist/common/retry"
	"github.com/bdobrica/termassist/common/trace"
	"github.com/bdobrica/termassist/internal/termassist/llm"
	"github.com/bdobrica/termassist/internal/termassist/observability"
	"github.com/bdobrica/termassist/internal/termassist/tools"
)

// DefaultMaxToolRounds bounds the model calls of one turn that still request
// tools.
const DefaultMaxToolRounds = 10

// ErrTooManyToolRounds is wrapped when a turn hits its round limit.
var ErrTooManyToolRounds = errors.New("exceeded maximum tool call rounds")

// ToolRunner executes tool calls and advertises their definitions.
type ToolRunner interface {
	Definitions() []llm.ToolDefinition
	Run(ctx context.Context, call llm.ToolCall) tools.Outcome
}

// TurnResult describes a completed (or partially completed) turn.
type TurnResult struct {
	ThreadID string
	// NewThread is true when this turn created the conversation.
	NewThread bool
	Reply     string
	// Remaining is the conversation's counter after the turn.
	Remaining int
	// Reported is the count the model stated on its closing line. It is
	// informational and never written to the counter.
	Reported   int
	ToolCalls  int
	Rounds     int
	Summarised bool
	Duration   time.Duration
}

// Loop is the agent turn loop.
type Loop struct {
	provider     llm.Provider
	tools        ToolRunner
	checkpoints  Checkpointer
	summariser   Summariser
	summary      SummaryPolicy
	retry        retry.Config
	model        string
	maxTokens    int
	maxRounds    int
	systemPrompt string
}

// Option configures a Loop.
type Option func(*Loop)

// WithModel overrides the provider's default model.
func WithModel(model string) Option { return func(l *Loop) { l.model = model } }

// WithMaxTokens caps each model response.
func WithMaxTokens(n int) Option { return func(l *Loop) { l.maxTokens = n } }

// WithMaxToolRounds overrides DefaultMaxToolRounds.
func WithMaxToolRounds(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxRounds = n
		}
	}
}

// WithRetry sets the retry policy for model calls. Errors that llm.Retryable
// rejects are never retried, whatever cfg.ShouldRetry says.
func WithRetry(cfg retry.Config) Option { return func(l *Loop) { l.retry = cfg } }

// WithSummariser enables history compaction under policy.
func WithSummariser(s Summariser, policy SummaryPolicy) Option {
	return func(l *Loop) {
		l.summariser = s
		l.summary = policy
	}
}

// New returns a Loop. Without WithSummariser no compaction happens.
func New(p llm.Provider, runner ToolRunner, cp Checkpointer, opts ...Option) *Loop {
	l := &Loop{
		provider:    p,
		tools:       runner,
		checkpoints: cp,
		retry:       retry.DefaultConfig,
		maxRounds:   DefaultMaxToolRounds,
	}
	for _, o := range opts {
		o(l)
	}
	if l.systemPrompt == "" {
		l.systemPrompt = BuildSystemPrompt(runner.Definitions())
	}
	return l
}

// LoadOrInitConversation returns the stored conversation of threadID, or a
// fresh one holding only the system prompt. isNew is true exactly when the
// prompt was just prepended.
func (l *Loop) LoadOrInitConversation(ctx context.Context, threadID string) (conv *Conversation, isNew bool, err error) {
	conv, found, err := l.checkpoints.LoadConversation(ctx, threadID)
	if err != nil {
		return nil, false, fmt.Errorf("load conversation %s: %w", threadID, err)
	}
	if found && len(conv.Messages) > 0 {
		return conv, false, nil
	}
	return &Conversation{
		ThreadID: threadID,
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: l.systemPrompt}},
	}, true, nil
}

// RunTurn feeds userText to the thread and drives the model until it stops
// requesting tools. The conversation is saved whether or not the turn
// succeeds, so completed tool rounds are never lost. A model failure aborts
// the turn; tool failures are reported to the model as tool results.
func (l *Loop) RunTurn(ctx context.Context, threadID, userText string) (*TurnResult, error) {
	start := time.Now()
	ctx = trace.WithThreadID(ctx, threadID)
	log := observability.WithTrace(ctx)

	conv, isNew, err := l.LoadOrInitConversation(ctx, threadID)
	if err != nil {
		return nil, err
	}
	conv.Messages = append(conv.Messages, llm.Message{Role: llm.RoleUser, Content: userText})

	res := &TurnResult{ThreadID: threadID, NewThread: isNew}
	finish := func(turnErr error) (*TurnResult, error) {
		res.Remaining = conv.Remaining
		res.Duration = time.Since(start)
		conv.UpdatedAt = time.Now().UTC()
		if err := l.checkpoints.SaveConversation(ctx, conv); err != nil {
			return res, errors.Join(turnErr, fmt.Errorf("save conversation %s: %w", threadID, err))
		}
		return res, turnErr
	}

	defs := l.tools.Definitions()
	state := ModelReasoning
	for res.Rounds < l.maxRounds {
		res.Rounds++
		log.Debug("agent: model reasoning", "round", res.Rounds, "messages", len(conv.Messages))

		resp, err := l.complete(ctx, conv.Messages, defs)
		if err != nil {
			return finish(fmt.Errorf("LLM call failed: %w", err))
		}
		conv.Messages = append(conv.Messages, resp.Message)

		state = ShouldContinue(resp.Message)
		if state == AwaitingUserInput {
			res.Reply = resp.Message.Content
			res.Reported = ParseTrailingRemaining(res.Reply)
			res.Summarised = l.maybeSummarise(ctx, conv)
			log.Info("agent: turn complete",
				"rounds", res.Rounds, "tool_calls", res.ToolCalls,
				"remaining", conv.Remaining, "reported", res.Reported)
			return finish(nil)
		}

		for _, tc := range resp.Message.ToolCalls {
			res.ToolCalls++
			out := l.tools.Run(ctx, tc)
			if out.Err != nil {
				log.Warn("agent: tool failed", "tool", tc.Function.Name, "err", out.Err)
			}
			conv.Messages = append(conv.Messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Content:    out.Content,
			})
			if out.Remaining != nil {
				conv.Remaining = *out.Remaining
			}
		}
	}

	log.Warn("agent: round limit reached", "rounds", res.Rounds, "state", state)
	return finish(fmt.Errorf("%w (%d)", ErrTooManyToolRounds, l.maxRounds))
}

func (l *Loop) complete(ctx context.Context, msgs []llm.Message, defs []llm.ToolDefinition) (*llm.CompletionResponse, error) {
	cfg := l.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		observability.WithTrace(ctx).Warn("agent: LLM call failed, retrying",
			"attempt", attempt, "err", err, "delay", delay)
	}

	var resp *llm.CompletionResponse
	err := retry.Do(ctx, cfg, func() error {
		r, err := l.provider.Complete(ctx, llm.CompletionRequest{
			Model:     l.model,
			Messages:  msgs,
			Tools:     defs,
			MaxTokens: l.maxTokens,
		})
		if err != nil {
			if !llm.Retryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// maybeSummarise compacts the history after a turn that ended without tool
// calls. A failed summary leaves the history untouched.
func (l *Loop) maybeSummarise(ctx context.Context, conv *Conversation) bool {
	if l.summariser == nil || len(conv.Messages) < 2 {
		return false
	}
	history := conv.Messages[1:]
	if !l.summary.due(history) {
		return false
	}
	summary, err := l.summariser.Summarise(ctx, history)
	if err != nil || summary == "" {
		slog.Warn("agent: summary skipped", "thread_id", conv.ThreadID, "err", err)
		return false
	}
	compact(conv, summary)
	return true
}
