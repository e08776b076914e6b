package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bdobrica/termassist/internal/termassist/agent"
	"github.com/bdobrica/termassist/internal/termassist/llm"
)

// LoadConversation implements agent.Checkpointer.
func (s *Store) LoadConversation(ctx context.Context, threadID string) (*agent.Conversation, bool, error) {
	var (
		raw       string
		remaining int
		summary   sql.NullString
		updatedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT messages_json, remaining, summary, updated_at
		FROM conversations WHERE thread_id = ?`, threadID,
	).Scan(&raw, &remaining, &summary, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var msgs []llm.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, false, fmt.Errorf("decode messages_json for %s: %w", threadID, err)
	}
	conv := &agent.Conversation{
		ThreadID:  threadID,
		Messages:  msgs,
		Remaining: remaining,
		Summary:   summary.String,
	}
	if updatedAt.Valid {
		conv.UpdatedAt = updatedAt.Time
	}
	return conv, true, nil
}

// SaveConversation implements agent.Checkpointer.
func (s *Store) SaveConversation(ctx context.Context, conv *agent.Conversation) error {
	raw, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encode messages_json: %w", err)
	}
	updated := conv.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (thread_id, messages_json, remaining, summary, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			messages_json = excluded.messages_json,
			remaining     = excluded.remaining,
			summary       = excluded.summary,
			updated_at    = excluded.updated_at`,
		conv.ThreadID, string(raw), conv.Remaining, nullableString(conv.Summary), updated,
	)
	return err
}

// ThreadInfo is a row of ListThreads.
type ThreadInfo struct {
	ThreadID  string
	Remaining int
	UpdatedAt time.Time
}

// ListThreads returns stored threads, most recently updated first.
func (s *Store) ListThreads(ctx context.Context, limit int) ([]ThreadInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, remaining, updated_at FROM conversations
		ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ThreadInfo
	for rows.Next() {
		var (
			t       ThreadInfo
			updated sql.NullTime
		)
		if err := rows.Scan(&t.ThreadID, &t.Remaining, &updated); err != nil {
			return nil, err
		}
		if updated.Valid {
			t.UpdatedAt = updated.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var _ agent.Checkpointer = (*Store)(nil)
