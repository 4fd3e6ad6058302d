package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"leadbot/internal/common/database"
	"leadbot/internal/models"
)

// TurnLog appends every exchanged message to conversation_turns so that
// history outlives the session TTL.
type TurnLog struct {
	db *sql.DB
}

func NewTurnLog(db *sql.DB) *TurnLog {
	return &TurnLog{db: db}
}

// Append writes turns in one transaction.
func (l *TurnLog) Append(ctx context.Context, key string, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	return database.InTx(ctx, l.db, func(tx *sql.Tx) error {
		for _, t := range turns {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO conversation_turns (id, session_key, role, message, intent, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.NewString(), key, t.Role, t.Text, nullIntent(t.Intent), t.At)
			if err != nil {
				return fmt.Errorf("insert turn: %w", err)
			}
		}
		return nil
	})
}

// Recent returns the newest n turns for key, oldest first.
func (l *TurnLog) Recent(ctx context.Context, key string, n int) ([]models.Turn, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT role, message, COALESCE(intent, ''), created_at
		 FROM conversation_turns
		 WHERE session_key = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, key, n)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var (
			t      models.Turn
			intent string
		)
		if err := rows.Scan(&t.Role, &t.Text, &intent, &t.At); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Intent = models.Intent(intent)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func nullIntent(i models.Intent) interface{} {
	if i == "" {
		return nil
	}
	return string(i)
}
