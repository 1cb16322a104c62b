package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := Log{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := n.Notify(context.Background(), 7, Message{Kind: KindCustodyIssued, Text: "2 x Drill", OperationID: 3})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"user_id=7", "kind=custody_issued", "operation_id=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	r.Notify(ctx, 1, Message{Kind: KindReturnRequested})
	r.Notify(ctx, 2, Message{Kind: KindReturnApproved})
	r.Notify(ctx, 1, Message{Kind: KindReturnRejected})

	if diff := cmp.Diff([]Kind{KindReturnRequested, KindReturnRejected}, r.To(1)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	if len(r.Sent()) != 3 {
		t.Errorf("expected 3 messages, got %d", len(r.Sent()))
	}

	r.Err = errors.New("chat down")
	if err := r.Notify(ctx, 1, Message{}); err == nil {
		t.Error("expected configured error")
	}
}
