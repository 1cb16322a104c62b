// Package notify delivers custody events to users. Delivery transport is up
// to the chat front-end; the daemon logs notifications.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Kind identifies the event a notification is about.
type Kind string

// Notification kinds.
const (
	KindCustodyIssued      Kind = "custody_issued"
	KindCustodyTransferred Kind = "custody_transferred"
	KindCustodyAutoSigned  Kind = "custody_autosigned"
	KindReturnRequested    Kind = "return_requested"
	KindReturnApproved     Kind = "return_approved"
	KindReturnRejected     Kind = "return_rejected"
)

// Message is one notification. OperationID or ReturnID point at the record
// the message is about, when there is one.
type Message struct {
	Kind        Kind   `json:"kind"`
	Text        string `json:"text"`
	OperationID int64  `json:"operation_id,omitempty"`
	ReturnID    int64  `json:"return_id,omitempty"`
}

// Notifier sends a message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, msg Message) error
}

// Log is a Notifier that writes every message to a logger.
type Log struct {
	Logger *slog.Logger
}

// Notify logs msg.
func (l Log) Notify(ctx context.Context, userID int64, msg Message) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"user_id", userID,
		"kind", msg.Kind,
		"text", msg.Text,
		"operation_id", msg.OperationID,
		"return_id", msg.ReturnID,
	)
	return nil
}

// Sent is a message recorded by a Recorder.
type Sent struct {
	UserID int64
	Message
}

// Recorder is a Notifier that keeps every message in memory. Err, if set, is
// returned from every Notify call after recording.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

// Notify records msg.
func (r *Recorder) Notify(_ context.Context, userID int64, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{UserID: userID, Message: msg})
	return r.Err
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// To returns the kinds of messages sent to userID, in order.
func (r *Recorder) To(userID int64) []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []Kind
	for _, s := range r.sent {
		if s.UserID == userID {
			kinds = append(kinds, s.Kind)
		}
	}
	return kinds
}
