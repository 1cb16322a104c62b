// Package autosign confirms custody on behalf of recipients who have not
// signed an outgoing or transfer operation within a fixed window.
package autosign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/notify"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// Defaults for the sweep.
const (
	DefaultInterval = time.Hour
	DefaultWindow   = 24 * time.Hour
)

// Scheduler periodically signs stale custody operations.
type Scheduler struct {
	db       *sqlx.DB
	notifier notify.Notifier
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets how often Run sweeps.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWindow sets how long a recipient has to confirm before the sweep
// signs for them.
func WithWindow(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a Scheduler. A nil notifier drops notifications.
func New(db *sqlx.DB, notifier notify.Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		db:       db,
		notifier: notifier,
		interval: DefaultInterval,
		window:   DefaultWindow,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result counts what one sweep did. Skipped operations were past the
// window when listed but were signed by someone else first.
type Result struct {
	Signed  int `json:"signed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Sweep signs every unsigned outgoing or transfer operation that is at
// least one window old. Each operation is signed by a conditional update,
// so concurrent sweeps and manual confirmations never sign twice. Failures
// on single operations are logged and counted; the error is only set when
// the candidates cannot be listed.
func (s *Scheduler) Sweep(ctx context.Context) (Result, error) {
	var res Result

	now := s.now()
	ops, err := store.ListUnsignedCustody(ctx, s.db, now.Add(-s.window))
	if err != nil {
		return res, fmt.Errorf("sweeping unsigned operations: %w", err)
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		signed, err := store.SignOperation(ctx, s.db, op.ID, *op.ToUserID, true, now)
		if err != nil {
			s.logger.Error("failed to auto-sign operation", "operation_id", op.ID, "error", err)
			res.Failed++
			continue
		}
		if !signed {
			res.Skipped++
			continue
		}

		res.Signed++
		s.logger.Info("operation auto-signed", "operation_id", op.ID, "user_id", *op.ToUserID)
		s.notify(ctx, *op.ToUserID, notify.Message{
			Kind:        notify.KindCustodyAutoSigned,
			Text:        fmt.Sprintf("Receipt of %g x %s was confirmed automatically after %s.", op.Qty, op.AssetName, s.window),
			OperationID: op.ID,
		})
	}

	return res, nil
}

func (s *Scheduler) notify(ctx context.Context, userID int64, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, msg); err != nil {
		s.logger.Error("failed to deliver notification", "user_id", userID, "kind", msg.Kind, "error", err)
	}
}

// Run sweeps immediately and then once per interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("auto-sign scheduler started", "interval", s.interval, "window", s.window)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		res, err := s.Sweep(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
		case err != nil:
			s.logger.Error("auto-sign sweep failed", "error", err)
		case res.Signed > 0 || res.Failed > 0:
			s.logger.Info("auto-sign sweep finished", "signed", res.Signed, "skipped", res.Skipped, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("auto-sign scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
