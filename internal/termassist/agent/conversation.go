package agent

import (
	"context"
	"sync"
	"time"

	"github.com/bdobrica/termassist/internal/termassist/llm"
)

// Conversation is the persisted state of one thread.
type Conversation struct {
	ThreadID string
	// Messages always starts with the system prompt. Tool results directly
	// follow the assistant message that requested them.
	Messages []llm.Message
	// Remaining is the queue length reported by the latest batch listing.
	Remaining int
	// Summary is the text of the running summary, empty until the history
	// has been compacted once.
	Summary   string
	UpdatedAt time.Time
}

// Clone returns a deep copy whose message slice can be appended to freely.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = make([]llm.Message, len(c.Messages))
	for i, m := range c.Messages {
		if m.ToolCalls != nil {
			m.ToolCalls = append([]llm.ToolCall(nil), m.ToolCalls...)
		}
		out.Messages[i] = m
	}
	return &out
}

// Checkpointer persists conversations between turns.
type Checkpointer interface {
	// LoadConversation returns the stored conversation; found is false when
	// the thread has never been saved.
	LoadConversation(ctx context.Context, threadID string) (conv *Conversation, found bool, err error)
	SaveConversation(ctx context.Context, conv *Conversation) error
}

// MemoryCheckpointer keeps conversations for the lifetime of the process.
type MemoryCheckpointer struct {
	mu    sync.Mutex
	convs map[string]*Conversation
}

// NewMemoryCheckpointer returns an empty MemoryCheckpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{convs: make(map[string]*Conversation)}
}

func (m *MemoryCheckpointer) LoadConversation(_ context.Context, threadID string) (*Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[threadID]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (m *MemoryCheckpointer) SaveConversation(_ context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[conv.ThreadID] = conv.Clone()
	return nil
}

var _ Checkpointer = (*MemoryCheckpointer)(nil)
