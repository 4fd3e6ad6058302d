package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbot/internal/models"
)

func TestTurnLog_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs(sqlmock.AnyArg(), "k", models.RoleUser, "مرحبا", "greeting", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs(sqlmock.AnyArg(), "k", models.RoleAssistant, "أهلاً", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewTurnLog(db).Append(context.Background(), "k",
		models.Turn{Role: models.RoleUser, Text: "مرحبا", Intent: models.IntentGreeting, At: at},
		models.Turn{Role: models.RoleAssistant, Text: "أهلاً", At: at},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_AppendRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversation_turns").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewTurnLog(db).Append(context.Background(), "k", models.Turn{Role: models.RoleUser, Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_AppendNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewTurnLog(db).Append(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_RecentIsOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)
	mock.ExpectQuery("SELECT role, message").
		WithArgs("k", 2).
		WillReturnRows(sqlmock.NewRows([]string{"role", "message", "intent", "created_at"}).
			AddRow(models.RoleAssistant, "أهلاً", "", t2).
			AddRow(models.RoleUser, "مرحبا", "greeting", t1))

	turns, err := NewTurnLog(db).Recent(context.Background(), "k", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "مرحبا", turns[0].Text)
	assert.Equal(t, models.IntentGreeting, turns[0].Intent)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, models.Intent(""), turns[1].Intent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
