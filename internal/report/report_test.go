package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/andrew11morozovtwo/bot-accounting/internal/custody"
	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

func TestBuildAndWrite(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	keeper, _ := store.CreateUser(ctx, database, 1, "keeper", model.RoleStorekeeper)
	worker, _ := store.CreateUser(ctx, database, 2, "worker", model.RoleWorker)
	svc := custody.New(database, nil)

	drill, err := svc.Receive(ctx, custody.ReceiveRequest{
		ActorID: keeper.ID, Name: "Drill", Category: "Tools", Qty: 3,
		Photos: []string{"photo"},
		Prices: []decimal.NullDecimal{decimal.NewNullDecimal(decimal.RequireFromString("49.9"))},
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	svc.Receive(ctx, custody.ReceiveRequest{ActorID: keeper.ID, Name: "Apron", Qty: 1})
	svc.Issue(ctx, drill.Asset.ID, 1, worker.ID, keeper.ID)

	r, err := Build(ctx, database)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(r.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(r.Rows))
	}

	apron, d := r.Rows[0], r.Rows[1]
	if apron.Name != "Apron" || apron.Category != nil || apron.LastPrice.Valid {
		t.Errorf("unexpected apron row: %+v", apron)
	}
	if d.InStock != 2 || d.Assigned != 1 || !d.HasIncomePhoto {
		t.Errorf("unexpected drill row: %+v", d)
	}
	if r.TotalInStock != 3 || r.TotalAssigned != 1 {
		t.Errorf("unexpected totals: %d in stock, %d assigned", r.TotalInStock, r.TotalAssigned)
	}

	var buf bytes.Buffer
	if err := Write(&buf, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Drill", "Tools", "49.90", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &Report{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "empty") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
