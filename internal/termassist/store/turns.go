package store

import "context"

// LogTurn records the start of a turn and returns its row ID.
func (s *Store) LogTurn(ctx context.Context, traceID, threadID, message string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO turn_log (trace_id, thread_id, message)
		VALUES (?, ?, ?)`,
		traceID, threadID, message,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishTurn stores the outcome of a turn started with LogTurn.
func (s *Store) FinishTurn(ctx context.Context, id int64, toolCalls int, durationMS int64, result, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE turn_log
		SET tool_calls = ?, result = ?, error_msg = ?, duration_ms = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		toolCalls, result, nullableString(errMsg), durationMS, id,
	)
	return err
}

// TurnRecord is one row of the turn log.
type TurnRecord struct {
	ID         int64
	TraceID    string
	ThreadID   string
	Message    string
	ToolCalls  int
	Result     string
	ErrorMsg   string
	DurationMS int64
}

// RecentTurns returns the latest turns of threadID, newest first.
func (s *Store) RecentTurns(ctx context.Context, threadID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trace_id, thread_id, message, tool_calls,
		       COALESCE(result, ''), COALESCE(error_msg, ''), COALESCE(duration_ms, 0)
		FROM turn_log WHERE thread_id = ?
		ORDER BY id DESC LIMIT ?`, threadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.TraceID, &r.ThreadID, &r.Message, &r.ToolCalls,
			&r.Result, &r.ErrorMsg, &r.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
