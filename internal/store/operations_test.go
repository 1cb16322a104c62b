package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

func TestAppendAndSignOperation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAsset(t, database, "Drill")
	from, _ := CreateUser(ctx, database, 1, "keeper", model.RoleStorekeeper)
	to, _ := CreateUser(ctx, database, 2, "worker", model.RoleWorker)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	op, err := AppendOperation(ctx, database, &model.Operation{
		Type:       model.OpOutgoing,
		AssetID:    a.ID,
		FromUserID: &from.ID,
		ToUserID:   &to.ID,
		Qty:        2,
		Timestamp:  at,
	})
	if err != nil {
		t.Fatalf("AppendOperation: %v", err)
	}
	if op.Signed() {
		t.Error("expected new operation to be unsigned")
	}
	if op.AssetName != "Drill" {
		t.Errorf("expected asset name 'Drill', got %q", op.AssetName)
	}
	if !op.Timestamp.Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, op.Timestamp)
	}

	unsigned, _ := ListUnsignedCustody(ctx, database, at)
	if len(unsigned) != 1 {
		t.Fatalf("expected 1 unsigned operation, got %d", len(unsigned))
	}

	signed, err := SignOperation(ctx, database, op.ID, to.ID, false, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("SignOperation: %v", err)
	}
	if !signed {
		t.Error("expected first sign to succeed")
	}

	signed, err = SignOperation(ctx, database, op.ID, to.ID, true, at.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("SignOperation: %v", err)
	}
	if signed {
		t.Error("expected second sign to be a no-op")
	}

	got, _ := GetOperation(ctx, database, op.ID)
	if got.AutoSigned {
		t.Error("expected manual signature to be kept")
	}
	if got.SignedByUserID == nil || *got.SignedByUserID != to.ID {
		t.Errorf("expected signer %d, got %v", to.ID, got.SignedByUserID)
	}

	unsigned, _ = ListUnsignedCustody(ctx, database, at.Add(time.Hour))
	if len(unsigned) != 0 {
		t.Errorf("expected no unsigned operations, got %d", len(unsigned))
	}
}

func TestListUnsignedCustodyCutoff(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAsset(t, database, "Drill")
	from, _ := CreateUser(ctx, database, 1, "keeper", model.RoleStorekeeper)
	to, _ := CreateUser(ctx, database, 2, "worker", model.RoleWorker)

	cutoff := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []int64
	for _, at := range []time.Time{
		cutoff.Add(-time.Hour),
		cutoff,
		cutoff.Add(time.Second),
		cutoff.Add(500 * time.Millisecond),
	} {
		op, err := AppendOperation(ctx, database, &model.Operation{
			Type:       model.OpTransfer,
			AssetID:    a.ID,
			FromUserID: &from.ID,
			ToUserID:   &to.ID,
			Qty:        1,
			Timestamp:  at,
		})
		if err != nil {
			t.Fatalf("AppendOperation: %v", err)
		}
		ids = append(ids, op.ID)
	}

	// A cutoff in another zone is the same instant.
	unsigned, err := ListUnsignedCustody(ctx, database, cutoff.In(time.FixedZone("MSK", 3*60*60)))
	if err != nil {
		t.Fatalf("ListUnsignedCustody: %v", err)
	}
	var got []int64
	for _, op := range unsigned {
		got = append(got, op.ID)
	}
	if len(got) != 2 || got[0] != ids[0] || got[1] != ids[1] {
		t.Errorf("expected operations %v, got %v", ids[:2], got)
	}
}

func TestAppendOperationRejectsZeroQty(t *testing.T) {
	database := db.NewTestDB(t)
	a := newAsset(t, database, "Drill")

	_, err := AppendOperation(context.Background(), database, &model.Operation{Type: model.OpIncoming, AssetID: a.ID})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListOperationsFilter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := newAsset(t, database, "Drill")
	b := newAsset(t, database, "Saw")
	u, _ := CreateUser(ctx, database, 1, "keeper", model.RoleStorekeeper)

	AppendOperation(ctx, database, &model.Operation{Type: model.OpIncoming, AssetID: a.ID, ToUserID: &u.ID, Qty: 1})
	AppendOperation(ctx, database, &model.Operation{Type: model.OpIncoming, AssetID: b.ID, Qty: 1})
	AppendOperation(ctx, database, &model.Operation{Type: model.OpWriteOff, AssetID: a.ID, FromUserID: &u.ID, Qty: 1})

	byAsset, _ := ListOperations(ctx, database, OperationFilter{AssetID: a.ID})
	if len(byAsset) != 2 {
		t.Errorf("expected 2 operations for asset, got %d", len(byAsset))
	}
	byUser, _ := ListOperations(ctx, database, OperationFilter{UserID: u.ID})
	if len(byUser) != 2 {
		t.Errorf("expected 2 operations for user, got %d", len(byUser))
	}
	byType, _ := ListOperations(ctx, database, OperationFilter{Type: model.OpWriteOff})
	if len(byType) != 1 {
		t.Errorf("expected 1 writeoff, got %d", len(byType))
	}
	limited, _ := ListOperations(ctx, database, OperationFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}

	if _, err := GetOperation(ctx, database, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
