package transliteratename

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/llm"
	"leadbot/internal/common/logger"
)

// ==========================
// Mock Implementations
// ==========================

type MockProvider struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (string, error)
	calls        int
}

func (m *MockProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.calls++
	return m.CompleteFunc(ctx, req)
}

func (m *MockProvider) Name() string { return "mock" }

func reply(text string) *MockProvider {
	return &MockProvider{CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
		return text, nil
	}}
}

// ==========================
// Tests
// ==========================

func TestConvert_MemoisedInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	p := reply("Hawaby.\n")
	h := NewHandler(LoadConfig(), p, rdb, logger.NewTestLogger(t))

	got, err := h.Convert(context.Background(), "هاواباي")
	require.NoError(t, err)
	assert.Equal(t, "hawaby", got)

	cached, err := mr.Get("translit:هاواباي")
	require.NoError(t, err)
	assert.Equal(t, "hawaby", cached)
	assert.Equal(t, 7*24*time.Hour, mr.TTL("translit:هاواباي"))

	out, err := h.Execute(context.Background(), &Input{Text: "هاواباي"})
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, 1, p.calls)
}

func TestConvert_EmptyInput(t *testing.T) {
	p := reply("x")
	got, err := NewHandler(LoadConfig(), p, nil, logger.NewTestLogger(t)).Convert(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, p.calls)
}

func TestConvert_ProviderFailure(t *testing.T) {
	p := &MockProvider{CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
		return "", llm.ErrLLMTimeout
	}}
	_, err := NewHandler(LoadConfig(), p, nil, logger.NewTestLogger(t)).Convert(context.Background(), "زيد")
	assert.ErrorIs(t, err, apperrors.ErrExternalServiceUnavailable)
	assert.ErrorIs(t, err, ErrTransliterationFailed)
}

func TestConvert_BlankReply(t *testing.T) {
	_, err := NewHandler(LoadConfig(), reply(" \n"), nil, logger.NewTestLogger(t)).Convert(context.Background(), "زيد")
	assert.ErrorIs(t, err, ErrEmptyTransliteration)
}

func TestConvert_RedisErrorsAreIgnored(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("translit:زيد").SetErr(errors.New("connection refused"))
	mock.ExpectSet("translit:زيد", "zed", 7*24*time.Hour).SetErr(errors.New("connection refused"))

	got, err := NewHandler(LoadConfig(), reply("zed"), rdb, logger.NewTestLogger(t)).Convert(context.Background(), "زيد")
	require.NoError(t, err)
	assert.Equal(t, "zed", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
