package ingest

import (
	"context"
	"log/slog"
	"time"
)

type compensation struct {
	action string
	undo   func(context.Context) error
}

// saga records an undo action for every external write that succeeded, so a
// later failure can roll them back in reverse order.
type saga struct {
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
	steps    []compensation
}

func newSaga(log *slog.Logger, observer Observer, timeout time.Duration) *saga {
	return &saga{logger: log, observer: observer, timeout: timeout}
}

// Register adds undo for a completed step.
func (s *saga) Register(action string, undo func(context.Context) error) {
	s.steps = append(s.steps, compensation{action: action, undo: undo})
}

// Commit drops every registered undo; nothing will be rolled back.
func (s *saga) Commit() {
	s.steps = nil
}

// Rollback runs each undo once, newest first. It detaches from ctx's
// cancellation so a disconnected caller does not skip cleanup. Failures are
// logged and never returned.
func (s *saga) Rollback(ctx context.Context) {
	if len(s.steps) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		err := step.undo(ctx)
		s.observer.RecordCompensation(step.action, err)
		if err != nil {
			s.logger.Warn("compensation failed", slog.String("action", step.action), slog.Any("error", err))
			continue
		}
		s.logger.Info("compensation applied", slog.String("action", step.action))
	}
	s.steps = nil
}
