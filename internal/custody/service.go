// Package custody moves assets between the warehouse and the people holding
// them: receiving stock, issuing it, peer transfers, approved returns,
// write-offs and custody confirmation.
//
// Every state-changing call re-checks the acting user's role and runs in a
// single immediate transaction, so instance selection and reassignment can't
// interleave with another writer. A transaction that loses a race is retried
// once before model.ErrConcurrencyConflict reaches the caller.
package custody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/notify"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// Service runs custody operations against one database.
type Service struct {
	db       *sqlx.DB
	notifier notify.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for operation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service. A nil notifier drops notifications.
func New(db *sqlx.DB, notifier notify.Notifier, opts ...Option) *Service {
	s := &Service{
		db:       db,
		notifier: notifier,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the service's database handle.
func (s *Service) DB() *sqlx.DB {
	return s.db
}

// inTx runs fn in a transaction and retries it once if it lost a race.
// fn must not keep state between attempts.
func (s *Service) inTx(ctx context.Context, what string, fn func(tx *sqlx.Tx) error) error {
	err := store.WithTx(ctx, s.db, fn)
	if errors.Is(err, model.ErrConcurrencyConflict) {
		s.logger.Warn("retrying contested update", "op", what, "error", err)
		err = store.WithTx(ctx, s.db, fn)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// authorize loads the acting user and checks can.
func authorize(ctx context.Context, q store.Queryer, userID int64, can func(*model.User) bool) (*model.User, error) {
	u, err := store.GetUser(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	if !can(u) {
		return nil, fmt.Errorf("user %d (%s, %s): %w", u.ID, u.Role, u.Status, model.ErrUnauthorized)
	}
	return u, nil
}

// recipient loads a user who is about to receive custody.
func recipient(ctx context.Context, q store.Queryer, userID int64) (*model.User, error) {
	u, err := store.GetUser(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	if !model.CanHold(u) {
		return nil, model.Invalid("recipient %d cannot hold assets (%s, %s)", u.ID, u.Role, u.Status)
	}
	return u, nil
}

func positiveQty(qty int) error {
	if qty <= 0 {
		return model.Invalid("qty must be positive, got %d", qty)
	}
	return nil
}

// notify delivers msg after a commit. Delivery failures are logged; the
// committed state stands.
func (s *Service) notify(ctx context.Context, userID int64, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, msg); err != nil {
		s.logger.Error("failed to deliver notification", "user_id", userID, "kind", msg.Kind, "error", err)
	}
}

// SelectReturnApprover returns the user who decides on return requests:
// the active storekeeper with the lowest ID, or failing that the active
// system admin with the lowest ID. It returns nil if there is neither.
func (s *Service) SelectReturnApprover(ctx context.Context) (*model.User, error) {
	return selectReturnApprover(ctx, s.db)
}

func selectReturnApprover(ctx context.Context, q store.Queryer) (*model.User, error) {
	for _, role := range []model.Role{model.RoleStorekeeper, model.RoleSystemAdmin} {
		users, err := store.ListActiveByRole(ctx, q, role)
		if err != nil {
			return nil, fmt.Errorf("selecting return approver: %w", err)
		}
		if len(users) > 0 {
			return &users[0], nil
		}
	}
	return nil, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
