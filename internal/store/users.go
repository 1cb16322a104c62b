package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

const userColumns = `id, external_id, full_name, role, status, created_at, updated_at`

// CreateUser creates a new active user.
func CreateUser(ctx context.Context, db Queryer, externalID int64, fullName string, role model.Role) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, model.Invalid("user name is empty")
	}
	if !role.Valid() {
		return nil, model.Invalid("unknown role %q", role)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO users (external_id, full_name, role, status) VALUES (?, ?, ?, ?)`,
		externalID, fullName, role, model.UserStatusActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %d: %w", externalID, model.ErrDuplicateName)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// EnsureUser returns the user with the given external ID, creating it with
// role unknown if it does not exist yet. New chat participants start without
// any capability until an admin assigns a role.
func EnsureUser(ctx context.Context, db Queryer, externalID int64, fullName string) (*model.User, error) {
	u, err := GetUserByExternalID(ctx, db, externalID)
	if err == nil {
		return u, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	u, err = CreateUser(ctx, db, externalID, fullName, model.RoleUnknown)
	if err != nil && isDuplicate(err) {
		return GetUserByExternalID(ctx, db, externalID)
	}
	return u, err
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db Queryer, id int64) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, db, u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// GetUserByExternalID returns a user by chat identity.
func GetUserByExternalID(ctx context.Context, db Queryer, externalID int64) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, db, u, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
	if err != nil {
		return nil, notFound(err, "user with external id", externalID)
	}
	return u, nil
}

// ListUsers returns all users.
func ListUsers(ctx context.Context, db Queryer) ([]model.User, error) {
	var users []model.User
	if err := sqlx.SelectContext(ctx, db, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// ListActiveByRole returns active users holding role, lowest ID first.
func ListActiveByRole(ctx context.Context, db Queryer, role model.Role) ([]model.User, error) {
	var users []model.User
	err := sqlx.SelectContext(ctx, db, &users,
		`SELECT `+userColumns+` FROM users WHERE role = ? AND status = ? ORDER BY id`,
		role, model.UserStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s users: %w", role, err)
	}
	return users, nil
}

// UpdateUser sets a user's role and status.
func UpdateUser(ctx context.Context, db Queryer, id int64, role model.Role, status model.UserStatus) error {
	if !role.Valid() {
		return model.Invalid("unknown role %q", role)
	}
	if status != model.UserStatusActive && status != model.UserStatusBlocked {
		return model.Invalid("unknown status %q", status)
	}

	res, err := db.ExecContext(ctx,
		`UPDATE users SET role = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		role, status, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	return nil
}
