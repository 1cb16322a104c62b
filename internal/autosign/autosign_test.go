package autosign

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/notify"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

var base = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

type env struct {
	db     *sqlx.DB
	asset  *model.Asset
	keeper *model.User
	worker *model.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _, err := store.ResolveOrCreateAsset(ctx, database, "", "Drill", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreateAsset: %v", err)
	}
	keeper, _ := store.CreateUser(ctx, database, 1, "keeper", model.RoleStorekeeper)
	worker, _ := store.CreateUser(ctx, database, 2, "worker", model.RoleWorker)
	return &env{db: database, asset: a, keeper: keeper, worker: worker}
}

func (e *env) op(t *testing.T, typ model.OperationType, at time.Time) *model.Operation {
	t.Helper()
	op, err := store.AppendOperation(context.Background(), e.db, &model.Operation{
		Type:       typ,
		AssetID:    e.asset.ID,
		FromUserID: &e.keeper.ID,
		ToUserID:   &e.worker.ID,
		Qty:        1,
		Timestamp:  at,
	})
	if err != nil {
		t.Fatalf("AppendOperation: %v", err)
	}
	return op
}

func TestSweepSignsStaleOperationsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := base.Add(48 * time.Hour)

	stale := e.op(t, model.OpOutgoing, base)
	staleTransfer := e.op(t, model.OpTransfer, now.Add(-24*time.Hour))
	fresh := e.op(t, model.OpOutgoing, now.Add(-23*time.Hour))
	e.op(t, model.OpIncoming, base)

	rec := &notify.Recorder{}
	s := New(e.db, rec, WithClock(func() time.Time { return now }))

	res, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if diff := cmp.Diff(Result{Signed: 2}, res); diff != "" {
		t.Errorf("first sweep (-want +got):\n%s", diff)
	}

	res, err = s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if diff := cmp.Diff(Result{}, res); diff != "" {
		t.Errorf("second sweep (-want +got):\n%s", diff)
	}

	for _, id := range []int64{stale.ID, staleTransfer.ID} {
		op, _ := store.GetOperation(ctx, e.db, id)
		if !op.AutoSigned || op.SignedByUserID == nil || *op.SignedByUserID != e.worker.ID {
			t.Errorf("operation %d: expected auto-signed by recipient, got %+v", id, op)
		}
		if !op.SignedAt.Equal(now) {
			t.Errorf("operation %d: expected signed at %v, got %v", id, now, op.SignedAt)
		}
	}
	if op, _ := store.GetOperation(ctx, e.db, fresh.ID); op.Signed() {
		t.Error("expected fresh operation to stay unsigned")
	}

	want := []notify.Kind{notify.KindCustodyAutoSigned, notify.KindCustodyAutoSigned}
	if diff := cmp.Diff(want, rec.To(e.worker.ID)); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
}

func TestSweepKeepsManualSignature(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := base.Add(48 * time.Hour)

	op := e.op(t, model.OpOutgoing, base)
	store.SignOperation(ctx, e.db, op.ID, e.worker.ID, false, base.Add(time.Hour))

	res, err := New(e.db, nil, WithClock(func() time.Time { return now })).Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Signed != 0 {
		t.Errorf("expected nothing signed, got %+v", res)
	}

	got, _ := store.GetOperation(ctx, e.db, op.ID)
	if got.AutoSigned {
		t.Error("expected manual signature to be kept")
	}
}

func TestConcurrentSweepsSignOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := base.Add(48 * time.Hour)

	for i := 0; i < 5; i++ {
		e.op(t, model.OpOutgoing, base)
	}

	rec := &notify.Recorder{}
	s := New(e.db, rec, WithClock(func() time.Time { return now }))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Sweep(ctx)
			if err != nil {
				t.Errorf("Sweep: %v", err)
				return
			}
			mu.Lock()
			total += res.Signed
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 5 {
		t.Errorf("expected 5 signatures across sweeps, got %d", total)
	}
	if n := len(rec.Sent()); n != 5 {
		t.Errorf("expected 5 notifications, got %d", n)
	}
}

func TestWindowOption(t *testing.T) {
	e := newEnv(t)
	now := base.Add(2 * time.Hour)
	e.op(t, model.OpTransfer, base)

	s := New(e.db, nil, WithWindow(time.Hour), WithClock(func() time.Time { return now }))
	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Signed != 1 {
		t.Errorf("expected 1 signed with a 1h window, got %+v", res)
	}
}

func TestSweepIgnoresOperationsInsideWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := base.Add(48 * time.Hour)
	for i := 0; i < 3; i++ {
		e.op(t, model.OpOutgoing, now.Add(-time.Duration(i+1)*time.Hour))
	}

	rec := &notify.Recorder{}
	res, err := New(e.db, rec, WithClock(func() time.Time { return now })).Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if diff := cmp.Diff(Result{}, res); diff != "" {
		t.Errorf("sweep (-want +got):\n%s", diff)
	}
	if n := len(rec.Sent()); n != 0 {
		t.Errorf("expected no notifications, got %d", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := newEnv(t)
	now := base.Add(48 * time.Hour)
	e.op(t, model.OpOutgoing, base)

	rec := &notify.Recorder{}
	s := New(e.db, rec, WithInterval(time.Hour), WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Run sweeps immediately on start.
	deadline := time.After(5 * time.Second)
	for len(rec.Sent()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the first sweep")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
