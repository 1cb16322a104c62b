package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/unicode/norm"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

// NormalizeName trims s and converts it to Unicode NFC, so the same name
// typed on different chat clients compares equal. Case is preserved.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CreateCategory creates a category. Names are matched exactly
// (case-sensitive) after normalization.
func CreateCategory(ctx context.Context, db Queryer, name string) (*model.Category, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, model.Invalid("category name required")
	}

	result, err := db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("category %q: %w", name, model.ErrDuplicateName)
	}
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db Queryer, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := sqlx.GetContext(ctx, db, c, `SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return c, nil
}

// GetCategoryByName returns a category by its exact name.
func GetCategoryByName(ctx context.Context, db Queryer, name string) (*model.Category, error) {
	name = NormalizeName(name)
	c := &model.Category{}
	err := sqlx.GetContext(ctx, db, c, `SELECT id, name, created_at FROM categories WHERE name = ?`, name)
	if err != nil {
		return nil, notFound(err, "category", name)
	}
	return c, nil
}

// GetOrCreateCategory returns the category with the given name, creating it
// on first use.
func GetOrCreateCategory(ctx context.Context, db Queryer, name string) (*model.Category, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, model.Invalid("category name required")
	}
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return GetCategoryByName(ctx, db, name)
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db Queryer) ([]model.Category, error) {
	var categories []model.Category
	err := sqlx.SelectContext(ctx, db, &categories, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// SeedCategories creates any of the given categories that are missing and
// returns how many were added.
func SeedCategories(ctx context.Context, db Queryer, names []string) (int, error) {
	added := 0
	for _, name := range names {
		name = NormalizeName(name)
		if name == "" {
			continue
		}
		res, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, name)
		if err != nil {
			return added, fmt.Errorf("seeding category %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}
