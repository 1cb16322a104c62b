package store

import (
	"context"
	"errors"
	"testing"

	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

func TestCreateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c, err := CreateCategory(ctx, database, " Tools ")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if c.Name != "Tools" {
		t.Errorf("expected trimmed name 'Tools', got %q", c.Name)
	}

	if _, err := CreateCategory(ctx, database, "Tools"); !errors.Is(err, model.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
	// Names compare case-sensitively.
	if _, err := CreateCategory(ctx, database, "tools"); err != nil {
		t.Errorf("expected 'tools' to be distinct from 'Tools', got %v", err)
	}
	if _, err := CreateCategory(ctx, database, "   "); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty name, got %v", err)
	}
}

func TestCategoryNamesAreNormalized(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Precomposed short i vs. i followed by a combining breve.
	if _, err := CreateCategory(ctx, database, "Kra\u0439"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := CreateCategory(ctx, database, "Kra\u0438\u0306"); !errors.Is(err, model.ErrDuplicateName) {
		t.Errorf("expected decomposed name to collide, got %v", err)
	}
}

func TestGetOrCreateAndSeedCategories(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, err := GetOrCreateCategory(ctx, database, "Electrical")
	if err != nil {
		t.Fatalf("GetOrCreateCategory: %v", err)
	}
	b, err := GetOrCreateCategory(ctx, database, "Electrical")
	if err != nil {
		t.Fatalf("GetOrCreateCategory: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("expected same category, got %d and %d", a.ID, b.ID)
	}

	added, err := SeedCategories(ctx, database, []string{"Electrical", "Tools", "", "PPE"})
	if err != nil {
		t.Fatalf("SeedCategories: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 categories added, got %d", added)
	}
	added, _ = SeedCategories(ctx, database, []string{"Tools", "PPE"})
	if added != 0 {
		t.Errorf("expected seeding to be idempotent, added %d", added)
	}

	all, _ := ListCategories(ctx, database)
	if len(all) != 3 {
		t.Errorf("expected 3 categories, got %d", len(all))
	}
}

func TestResolveOrCreateAsset(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	cat, _ := CreateCategory(ctx, database, "Tools")

	drill, created, err := ResolveOrCreateAsset(ctx, database, "QR-1", "Drill", &cat.ID)
	if err != nil {
		t.Fatalf("ResolveOrCreateAsset: %v", err)
	}
	if !created {
		t.Error("expected a new asset")
	}
	if drill.Qty != 0 {
		t.Errorf("expected new asset qty 0, got %g", drill.Qty)
	}
	if drill.CategoryName == nil || *drill.CategoryName != "Tools" {
		t.Errorf("expected category name 'Tools', got %v", drill.CategoryName)
	}

	again, created, err := ResolveOrCreateAsset(ctx, database, "QR-1", "Another name", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreateAsset: %v", err)
	}
	if created || again.ID != drill.ID {
		t.Errorf("expected restock of asset %d, got %d (created=%v)", drill.ID, again.ID, created)
	}

	// Without a code every call creates.
	x, _, _ := ResolveOrCreateAsset(ctx, database, "", "Gloves", nil)
	y, _, _ := ResolveOrCreateAsset(ctx, database, "", "Gloves", nil)
	if x.ID == y.ID {
		t.Error("expected two distinct assets without code")
	}

	if _, _, err := ResolveOrCreateAsset(ctx, database, "", " ", nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty name, got %v", err)
	}
}

func TestAssetQty(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _, _ := ResolveOrCreateAsset(ctx, database, "", "Helmet", nil)

	if err := IncrementAssetQty(ctx, database, a.ID, 3); err != nil {
		t.Fatalf("IncrementAssetQty: %v", err)
	}
	if err := IncrementAssetQty(ctx, database, a.ID, 0); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero delta, got %v", err)
	}
	if err := IncrementAssetQty(ctx, database, 999, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := DecrementAssetQty(ctx, database, a.ID, 2); err != nil {
		t.Fatalf("DecrementAssetQty: %v", err)
	}
	if err := DecrementAssetQty(ctx, database, a.ID, 2); !errors.Is(err, model.ErrConcurrencyConflict) {
		t.Errorf("expected ErrConcurrencyConflict when qty would go negative, got %v", err)
	}

	got, _ := GetAsset(ctx, database, a.ID)
	if got.Qty != 1 {
		t.Errorf("expected qty 1, got %g", got.Qty)
	}

	if _, err := GetAsset(ctx, database, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFirstIncomePhotoIsKept(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _, _ := ResolveOrCreateAsset(ctx, database, "", "Ladder", nil)
	SetFirstIncomePhoto(ctx, database, a.ID, "file-1")
	SetFirstIncomePhoto(ctx, database, a.ID, "file-2")

	got, _ := GetAsset(ctx, database, a.ID)
	if got.FirstIncomePhoto == nil || *got.FirstIncomePhoto != "file-1" {
		t.Errorf("expected first photo 'file-1', got %v", got.FirstIncomePhoto)
	}
}
