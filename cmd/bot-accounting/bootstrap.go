package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/auth"
	"github.com/andrew11morozovtwo/bot-accounting/internal/config"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// bootstrap prepares a freshly opened database: default categories, the
// admin password used for elevation and the bootstrap admin. It returns a
// generated password when none was configured and none was stored yet.
func bootstrap(ctx context.Context, database *sqlx.DB, cfg config.Config) (generated string, err error) {
	if n, err := store.SeedCategories(ctx, database, cfg.DefaultCategories); err != nil {
		return "", err
	} else if n > 0 {
		slog.Info("default categories created", "count", n)
	}

	password := cfg.AdminPassword
	if password == "" {
		_, ok, err := store.GetSetting(ctx, database, store.SettingAdminPasswordHash)
		if err != nil {
			return "", err
		}
		if !ok {
			password, err = generatePassword(16)
			if err != nil {
				return "", fmt.Errorf("generating admin password: %w", err)
			}
			generated = password
		}
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return "", err
		}
		if err := store.SetSetting(ctx, database, store.SettingAdminPasswordHash, hash); err != nil {
			return "", err
		}
	}

	if cfg.BootstrapAdminExternalID != 0 {
		u, err := store.EnsureUser(ctx, database, cfg.BootstrapAdminExternalID, cfg.BootstrapAdminName)
		if err != nil {
			return "", fmt.Errorf("creating bootstrap admin: %w", err)
		}
		if u.Role != model.RoleSystemAdmin || u.Status != model.UserStatusActive {
			if err := store.UpdateUser(ctx, database, u.ID, model.RoleSystemAdmin, model.UserStatusActive); err != nil {
				return "", fmt.Errorf("promoting bootstrap admin: %w", err)
			}
			slog.Info("bootstrap admin promoted", "user_id", u.ID, "external_id", u.ExternalID)
		}
	}

	return generated, nil
}

// printGeneratedPassword prints a freshly generated admin password to stdout.
func printGeneratedPassword(dbPath, password string) {
	fmt.Printf("Database: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin elevation password generated:")
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Printf("Set admin_password or %s to replace it.\n", config.AdminPasswordEnv)
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
