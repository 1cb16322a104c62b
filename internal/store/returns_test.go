package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

func TestPendingReturnLifecycle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAsset(t, database, "Drill")
	worker, _ := CreateUser(ctx, database, 1, "worker", model.RoleWorker)
	keeper, _ := CreateUser(ctx, database, 2, "keeper", model.RoleStorekeeper)
	now := time.Now()

	pr, err := CreatePendingReturn(ctx, database, worker.ID, a.ID, a.Name, 2, now)
	if err != nil {
		t.Fatalf("CreatePendingReturn: %v", err)
	}
	if pr.Status != model.ReturnPending {
		t.Errorf("expected pending, got %q", pr.Status)
	}
	if pr.AssetName != "Drill" {
		t.Errorf("expected name snapshot 'Drill', got %q", pr.AssetName)
	}

	pending, _ := ListPendingReturns(ctx, database, model.ReturnPending, 0)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending return, got %d", len(pending))
	}

	if err := ResolvePendingReturn(ctx, database, pr.ID, model.ReturnApproved, keeper.ID, now); err != nil {
		t.Fatalf("ResolvePendingReturn: %v", err)
	}
	err = ResolvePendingReturn(ctx, database, pr.ID, model.ReturnRejected, keeper.ID, now)
	if !errors.Is(err, model.ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed, got %v", err)
	}
	if err := ResolvePendingReturn(ctx, database, pr.ID, model.ReturnPending, keeper.ID, now); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput resolving to pending, got %v", err)
	}

	got, _ := GetPendingReturn(ctx, database, pr.ID)
	if got.Status != model.ReturnApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}
	if got.ResolvedByUserID == nil || *got.ResolvedByUserID != keeper.ID {
		t.Errorf("expected resolver %d, got %v", keeper.ID, got.ResolvedByUserID)
	}

	if _, err := CreatePendingReturn(ctx, database, worker.ID, a.ID, a.Name, 0, now); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero qty, got %v", err)
	}
}

func TestReturnPhotos(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAsset(t, database, "Drill")
	keeper, _ := CreateUser(ctx, database, 2, "keeper", model.RoleStorekeeper)

	if _, err := AddReturnPhoto(ctx, database, a.ID, nil, "file-1", keeper.ID); err != nil {
		t.Fatalf("AddReturnPhoto: %v", err)
	}
	AddReturnPhoto(ctx, database, a.ID, nil, "file-2", keeper.ID)

	photos, err := ListReturnPhotos(ctx, database, a.ID)
	if err != nil {
		t.Fatalf("ListReturnPhotos: %v", err)
	}
	if len(photos) != 2 || photos[0].Photo != "file-1" {
		t.Errorf("unexpected photos: %+v", photos)
	}
}

func TestSaveAndGetPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	data := []byte{0xff, 0xd8, 0xff, 0x00}
	ref, err := SavePhoto(ctx, database, data, "image/jpeg")
	if err != nil {
		t.Fatalf("SavePhoto: %v", err)
	}

	got, mime, err := GetPhoto(ctx, database, ref)
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if !bytes.Equal(got, data) || mime != "image/jpeg" {
		t.Errorf("expected stored photo back, got %v %q", got, mime)
	}

	if _, _, err := GetPhoto(ctx, database, "AgACAgIAAxkBAAI"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for external ref, got %v", err)
	}
	if _, _, err := GetPhoto(ctx, database, StoredPhotoPrefix+"999"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := SavePhoto(ctx, database, nil, "image/jpeg"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty data, got %v", err)
	}
}
