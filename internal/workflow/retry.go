package workflow

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/models"
)

// RetryPendingLeads resubmits every request whose lead creation failed.
// It returns how many leads were recorded. Per-key failures are logged and
// left in the pending set.
func (e *Engine) RetryPendingLeads(ctx context.Context) (int, error) {
	if e.deps.Pending == nil {
		return 0, nil
	}
	keys, err := e.deps.Pending.PendingKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var created int64
	g, gctx := errgroup.WithContext(ctx)
	if n := e.config.RetryConcurrency; n > 0 {
		g.SetLimit(n)
	}
	for _, key := range keys {
		key := key
		g.Go(func() error {
			ok, err := e.retryLead(gctx, key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("lead retry failed", map[string]interface{}{
					"sessionKey": key,
					"error":      err.Error(),
				})
				return nil
			}
			if ok {
				atomic.AddInt64(&created, 1)
			}
			return nil
		})
	}
	err = g.Wait()

	e.logger.Info("pending leads retried", map[string]interface{}{
		"pending": len(keys),
		"created": created,
	})
	return int(created), err
}

func (e *Engine) retryLead(ctx context.Context, key string) (bool, error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.config.LockTimeout)
	unlock, err := e.locks.Lock(lockCtx, key)
	cancel()
	if err != nil {
		return false, err
	}
	defer unlock()

	s, err := e.loadSession(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionCorrupted) {
			e.clearPending(ctx, key)
		}
		return false, err
	}
	if !s.Confirmed || s.LeadID != "" || s.LeadStatus != models.LeadStatusPendingRetry {
		e.clearPending(ctx, key)
		return false, nil
	}

	delta, outcome, err := e.submitLead(ctx, s)
	if outcome == leadFailed {
		return false, err
	}
	delta.Apply(s)

	sctx, scancel := context.WithTimeout(ctx, e.config.SessionTimeout)
	defer scancel()
	if err := e.deps.Store.Save(sctx, s); err != nil {
		return false, err
	}
	e.clearPending(ctx, key)
	return outcome == leadCreated, nil
}
