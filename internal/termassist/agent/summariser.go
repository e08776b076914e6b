package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdobrica/termassist/internal/termassist/llm"
)

const (
	summariserPrompt = "Summarise this terminal-assistant conversation in a few sentences. " +
		"Keep what the user asked for, which directories were loaded or listed, " +
		"which files were moved, renamed or created, and the last reported remaining count."

	summaryPrefix = "Summary of the conversation so far:\n"

	// Tool results can be whole listings; only their head matters for a summary.
	maxTranscriptContent = 500
)

// Summariser condenses a slice of history into a short text.
type Summariser interface {
	Summarise(ctx context.Context, messages []llm.Message) (string, error)
}

// LLMSummariser asks a chat model for the summary.
type LLMSummariser struct {
	provider  llm.Provider
	model     string
	maxTokens int
}

// NewLLMSummariser returns a Summariser backed by p. An empty model selects
// the provider's default.
func NewLLMSummariser(p llm.Provider, model string) *LLMSummariser {
	return &LLMSummariser{provider: p, model: model, maxTokens: 256}
}

// Summarise returns "" for an empty history.
func (s *LLMSummariser) Summarise(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: summariserPrompt},
			{Role: llm.RoleUser, Content: formatTranscript(messages)},
		},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summariser: %w", err)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

func formatTranscript(messages []llm.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case m.Role == llm.RoleTool:
			fmt.Fprintf(&b, "tool %s: %s", m.Name, clip(m.Content, maxTranscriptContent))
		case m.HasToolCalls():
			names := make([]string, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				names[j] = tc.Function.Name + " " + tc.Function.Arguments
			}
			fmt.Fprintf(&b, "%s: %s [calls: %s]", m.Role, m.Content, strings.Join(names, "; "))
		default:
			fmt.Fprintf(&b, "%s: %s", m.Role, clip(m.Content, maxTranscriptContent))
		}
	}
	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// estimateTokens approximates token usage at ~4 characters per token plus a
// fixed per-message overhead.
func estimateTokens(msgs []llm.Message) int {
	const charsPerToken = 4
	const perMessageOverhead = 4

	total := 0
	for _, m := range msgs {
		total += len(m.Content)/charsPerToken + perMessageOverhead
		for _, tc := range m.ToolCalls {
			total += len(tc.Function.Arguments) / charsPerToken
		}
	}
	return total
}

// SummaryPolicy decides when a finished turn compacts the history.
type SummaryPolicy struct {
	Enabled bool
	// MinMessages is the history length (excluding the system prompt) that
	// triggers a summary.
	MinMessages int
	// MaxTokens is the estimated history size that triggers a summary.
	MaxTokens int
}

// DefaultSummaryPolicy returns the policy used when none is configured.
func DefaultSummaryPolicy() SummaryPolicy {
	return SummaryPolicy{Enabled: true, MinMessages: 24, MaxTokens: 6000}
}

func (p SummaryPolicy) due(history []llm.Message) bool {
	if !p.Enabled || len(history) < 2 {
		return false
	}
	if p.MinMessages > 0 && len(history) >= p.MinMessages {
		return true
	}
	return p.MaxTokens > 0 && estimateTokens(history) >= p.MaxTokens
}

// compact replaces everything after the system prompt with one summary
// message.
func compact(conv *Conversation, summary string) {
	conv.Summary = summary
	conv.Messages = []llm.Message{
		conv.Messages[0],
		{Role: llm.RoleSystem, Content: summaryPrefix + summary},
	}
}
