package store

import (
	"context"
	"testing"

	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// First call should generate a secret.
	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call should return the same secret.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, ok, err := GetSetting(ctx, database, SettingAdminPasswordHash); err != nil || ok {
		t.Fatalf("expected missing setting, got ok=%v err=%v", ok, err)
	}

	if err := SetSetting(ctx, database, SettingAdminPasswordHash, "one"); err != nil {
		t.Fatal(err)
	}
	if err := SetSetting(ctx, database, SettingAdminPasswordHash, "two"); err != nil {
		t.Fatal(err)
	}

	v, ok, err := GetSetting(ctx, database, SettingAdminPasswordHash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "two" {
		t.Fatalf("expected 'two', got %q (ok=%v)", v, ok)
	}
}
