package createleadrecord

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockStarter struct {
	StartProcessFunc func(ctx context.Context, processID string, variables interface{}) (int64, error)
	calls            int
}

func (m *MockStarter) StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error) {
	m.calls++
	return m.StartProcessFunc(ctx, processID, variables)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestLead() models.LeadRequest {
	return models.LeadRequest{
		IdempotencyKey: "201000000000:0",
		SessionKey:     "201000000000",
		CustomerName:   "Ahmed",
		Phone:          "201000000000",
		AreaID:         "a1",
		AreaName:       "Sheikh Zayed",
		ProjectID:      "p5",
		ProjectName:    "Zed West",
		BudgetMax:      5000000,
	}
}

func setup(t *testing.T, starter ProcessStarter) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHandler(LoadConfig(), db, starter, logger.NewTestLogger(t)), mock
}

func expectNoExistingLead(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT id FROM leads").
		WithArgs("201000000000:0").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

func expectInsertPath(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT EXISTS").WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO customers").
		WithArgs(sqlmock.AnyArg(), "201000000000", "Ahmed", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestCreateLead_Success(t *testing.T) {
	var started models.FollowUpVariables
	starter := &MockStarter{StartProcessFunc: func(ctx context.Context, processID string, variables interface{}) (int64, error) {
		assert.Equal(t, "lead-follow-up", processID)
		started = variables.(models.FollowUpVariables)
		return 42, nil
	}}
	h, mock := setup(t, starter)

	mock.ExpectBegin()
	expectNoExistingLead(mock)
	expectInsertPath(mock)
	mock.ExpectExec("INSERT INTO leads").
		WithArgs(sqlmock.AnyArg(), "201000000000:0", "c1", "201000000000", "a1", "p5", nil, sqlmock.AnyArg(), "new").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs(sqlmock.AnyArg(), "lead", sqlmock.AnyArg(), "lead_created", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	out, err := h.Execute(context.Background(), &Input{Lead: createTestLead()})
	require.NoError(t, err)
	assert.NotEmpty(t, out.LeadID)
	assert.False(t, out.Duplicate)
	assert.NotEmpty(t, out.CreatedAt)

	assert.Equal(t, 1, starter.calls)
	assert.Equal(t, out.LeadID, started.LeadID)
	assert.Equal(t, "Zed West", started.ProjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLead_DuplicateKeyReturnsExistingID(t *testing.T) {
	starter := &MockStarter{}
	h, mock := setup(t, starter)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM leads").
		WithArgs("201000000000:0").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lead-9"))
	mock.ExpectCommit()

	id, err := h.CreateLead(context.Background(), createTestLead())
	assert.Equal(t, "lead-9", id)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateLead)
	assert.Zero(t, starter.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLead_UnknownArea(t *testing.T) {
	h, mock := setup(t, nil)

	mock.ExpectBegin()
	expectNoExistingLead(mock)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	id, err := h.CreateLead(context.Background(), createTestLead())
	assert.Empty(t, id)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLead_ConcurrentInsertBecomesDuplicate(t *testing.T) {
	h, mock := setup(t, nil)

	mock.ExpectBegin()
	expectNoExistingLead(mock)
	expectInsertPath(mock)
	mock.ExpectExec("INSERT INTO leads").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT id FROM leads").
		WithArgs("201000000000:0").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lead-7"))

	id, err := h.CreateLead(context.Background(), createTestLead())
	assert.Equal(t, "lead-7", id)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateLead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLead_DatabaseUnavailable(t *testing.T) {
	h, mock := setup(t, nil)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := h.CreateLead(context.Background(), createTestLead())
	assert.ErrorIs(t, err, apperrors.ErrExternalServiceUnavailable)
	assert.ErrorIs(t, err, ErrDatabaseInsertFailed)
}

func TestCreateLead_InvalidPayload(t *testing.T) {
	h, _ := setup(t, nil)
	lead := createTestLead()
	lead.Phone = " "

	_, err := h.CreateLead(context.Background(), lead)
	assert.Equal(t, apperrors.ErrCodeInvalidLeadPayload, apperrors.CodeOf(err))
	assert.Contains(t, err.(*apperrors.StandardError).Details, "phone")
}

func TestCreateLead_FollowUpFailureIsIgnored(t *testing.T) {
	starter := &MockStarter{StartProcessFunc: func(ctx context.Context, processID string, variables interface{}) (int64, error) {
		return 0, errors.New("broker unavailable")
	}}
	h, mock := setup(t, starter)

	mock.ExpectBegin()
	expectNoExistingLead(mock)
	expectInsertPath(mock)
	mock.ExpectExec("INSERT INTO leads").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").WillReturnError(errors.New("audit table locked"))

	id, err := h.CreateLead(context.Background(), createTestLead())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, starter.calls)
}
