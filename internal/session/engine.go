package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andrew11morozovtwo/bot-accounting/internal/custody"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// Input is one answer from the user. Which field is read depends on the
// step: Text for names, codes, prices, decisions and photos, Number for
// quantities, ID for picked records and List for per-unit values. Skip
// leaves an optional step empty.
type Input struct {
	Text   string   `json:"text,omitempty"`
	Number int      `json:"number,omitempty"`
	ID     int64    `json:"id,omitempty"`
	List   []string `json:"list,omitempty"`
	Skip   bool     `json:"skip,omitempty"`
}

// Outcome is what a confirmed session produced.
type Outcome struct {
	Receipt   *custody.Receipt     `json:"receipt,omitempty"`
	Operation *model.Operation     `json:"operation,omitempty"`
	Return    *model.PendingReturn `json:"return,omitempty"`
}

// Engine drives sessions. Only Confirm changes warehouse state.
type Engine struct {
	store   Store
	custody *custody.Service
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(s Store, svc *custody.Service) *Engine {
	return &Engine{store: s, custody: svc, now: time.Now}
}

// Start begins a new form for the user, discarding any form in progress.
func (e *Engine) Start(ctx context.Context, userID int64, flow Flow) (*Session, error) {
	if !flow.Valid() {
		return nil, model.Invalid("unknown flow %q", flow)
	}
	s := newSession(userID, flow, e.now())
	if err := e.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return s, nil
}

// Current returns the user's form in progress.
func (e *Engine) Current(ctx context.Context, userID int64) (*Session, error) {
	return e.store.Get(ctx, userID)
}

// Cancel drops the user's form. Nothing else changes.
func (e *Engine) Cancel(ctx context.Context, userID int64) error {
	return e.store.Delete(ctx, userID)
}

// Advance applies in to the current step and moves on. Invalid input
// returns an error and leaves the session on the same step.
func (e *Engine) Advance(ctx context.Context, userID int64, in Input) (*Session, error) {
	cur, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cur.Step == StepConfirm {
		return cur, model.Invalid("waiting for confirmation")
	}

	s := cur.clone()
	if err := e.apply(ctx, s, in); err != nil {
		return cur, err
	}
	s.UpdatedAt = e.now()
	if err := e.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return s, nil
}

func (e *Engine) apply(ctx context.Context, s *Session, in Input) error {
	var err error
	switch s.Flow {
	case FlowIncome:
		err = e.applyIncome(ctx, s.Income, s.Step, in)
	case FlowOutgoing:
		err = e.applyIssue(ctx, s.Issue, s.Step, in)
	case FlowTransfer:
		err = e.applyTransfer(ctx, s.UserID, s.Transfer, s.Step, in)
	case FlowReturn:
		err = e.applyReturn(ctx, s.UserID, s.Return, s.Step, in)
	case FlowApprove:
		err = e.applyApprove(ctx, s.Approve, s.Step, in)
	default:
		err = model.Invalid("unknown flow %q", s.Flow)
	}
	if err != nil {
		return err
	}

	s.next()
	if s.Flow == FlowApprove && s.Step == StepPhoto && s.Approve.Reject {
		s.next()
	}
	return nil
}

func (e *Engine) applyIncome(ctx context.Context, d *IncomeDraft, step Step, in Input) error {
	switch step {
	case StepName:
		name := store.NormalizeName(in.Text)
		if name == "" {
			return model.Invalid("name required")
		}
		d.Name = name
	case StepQty:
		if in.Number <= 0 {
			return model.Invalid("qty must be positive")
		}
		d.Qty = in.Number
	case StepCategory:
		switch {
		case in.Skip:
		case in.ID > 0:
			if _, err := store.GetCategory(ctx, e.custody.DB(), in.ID); err != nil {
				return err
			}
			d.CategoryID = in.ID
		case store.NormalizeName(in.Text) != "":
			d.Category = store.NormalizeName(in.Text)
		default:
			return model.Invalid("pick a category or skip")
		}
	case StepLabels:
		if in.Skip {
			return nil
		}
		if len(in.List) != d.Qty {
			return model.Invalid("need %d labels, got %d", d.Qty, len(in.List))
		}
		d.Labels = in.List
	case StepPhotos:
		if in.Skip {
			return nil
		}
		if len(in.List) != 1 && len(in.List) != d.Qty {
			return model.Invalid("send one photo for the batch or %d photos", d.Qty)
		}
		d.Photos = in.List
	case StepPrice:
		if in.Skip {
			return nil
		}
		p, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(in.Text), ",", "."))
		if err != nil || p.IsNegative() {
			return model.Invalid("price must be a non-negative number")
		}
		d.Price = decimal.NewNullDecimal(p)
	case StepCode:
		if !in.Skip {
			d.Code = store.NormalizeName(in.Text)
		}
	}
	return nil
}

func (e *Engine) pickAsset(ctx context.Context, id int64) (*model.Asset, error) {
	if id <= 0 {
		return nil, model.Invalid("pick an asset")
	}
	return store.GetAsset(ctx, e.custody.DB(), id)
}

func (e *Engine) pickRecipient(ctx context.Context, self, id int64) error {
	if id <= 0 {
		return model.Invalid("pick a recipient")
	}
	if id == self {
		return model.Invalid("pick someone else")
	}
	u, err := store.GetUser(ctx, e.custody.DB(), id)
	if err != nil {
		return err
	}
	if !model.CanHold(u) {
		return model.Invalid("%s cannot receive assets", u.FullName)
	}
	return nil
}

func (e *Engine) applyIssue(ctx context.Context, d *IssueDraft, step Step, in Input) error {
	switch step {
	case StepAsset:
		a, err := e.pickAsset(ctx, in.ID)
		if err != nil {
			return err
		}
		if a.Qty < 1 {
			return model.Insufficient(a.Qty, 1)
		}
		d.AssetID, d.AssetName = a.ID, a.Name
	case StepRecipient:
		if err := e.pickRecipient(ctx, 0, in.ID); err != nil {
			return err
		}
		d.RecipientID = in.ID
	case StepQty:
		if in.Number <= 0 {
			return model.Invalid("qty must be positive")
		}
		a, err := store.GetAsset(ctx, e.custody.DB(), d.AssetID)
		if err != nil {
			return err
		}
		if float64(in.Number) > a.Qty {
			return model.Insufficient(a.Qty, float64(in.Number))
		}
		d.Qty = in.Number
	}
	return nil
}

func (e *Engine) held(ctx context.Context, userID, assetID int64, want int) error {
	n, err := store.CountHeld(ctx, e.custody.DB(), userID, assetID)
	if err != nil {
		return err
	}
	if n < want {
		return model.Insufficient(float64(n), float64(want))
	}
	return nil
}

func (e *Engine) applyTransfer(ctx context.Context, userID int64, d *TransferDraft, step Step, in Input) error {
	switch step {
	case StepAsset:
		a, err := e.pickAsset(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := e.held(ctx, userID, a.ID, 1); err != nil {
			return err
		}
		d.AssetID, d.AssetName = a.ID, a.Name
	case StepRecipient:
		if err := e.pickRecipient(ctx, userID, in.ID); err != nil {
			return err
		}
		d.RecipientID = in.ID
	case StepQty:
		if in.Number <= 0 {
			return model.Invalid("qty must be positive")
		}
		if err := e.held(ctx, userID, d.AssetID, in.Number); err != nil {
			return err
		}
		d.Qty = in.Number
	}
	return nil
}

func (e *Engine) applyReturn(ctx context.Context, userID int64, d *ReturnDraft, step Step, in Input) error {
	switch step {
	case StepAsset:
		a, err := e.pickAsset(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := e.held(ctx, userID, a.ID, 1); err != nil {
			return err
		}
		d.AssetID, d.AssetName = a.ID, a.Name
	case StepQty:
		if in.Number <= 0 {
			return model.Invalid("qty must be positive")
		}
		if err := e.held(ctx, userID, d.AssetID, in.Number); err != nil {
			return err
		}
		d.Qty = in.Number
	}
	return nil
}

func (e *Engine) applyApprove(ctx context.Context, d *ApproveDraft, step Step, in Input) error {
	switch step {
	case StepReturn:
		if in.ID <= 0 {
			return model.Invalid("pick a return request")
		}
		pr, err := store.GetPendingReturn(ctx, e.custody.DB(), in.ID)
		if err != nil {
			return err
		}
		if pr.Status != model.ReturnPending {
			return fmt.Errorf("return %d is %s: %w", pr.ID, pr.Status, model.ErrAlreadyProcessed)
		}
		d.ReturnID = pr.ID
	case StepDecision:
		switch strings.ToLower(strings.TrimSpace(in.Text)) {
		case "approve":
			d.Reject = false
		case "reject":
			d.Reject = true
		default:
			return model.Invalid("answer approve or reject")
		}
	case StepPhoto:
		if !in.Skip {
			if strings.TrimSpace(in.Text) == "" {
				return model.Invalid("send a photo or skip")
			}
			d.Photo = strings.TrimSpace(in.Text)
		}
	}
	return nil
}

// Confirm executes a completed form and ends the session. If the
// warehouse rejects it the session stays at the confirmation step, so the
// user can cancel or try again.
func (e *Engine) Confirm(ctx context.Context, userID int64) (*Outcome, error) {
	s, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Step != StepConfirm {
		return nil, model.Invalid("form is not complete, waiting for %s", s.Step)
	}

	out, err := e.execute(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := e.store.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("ending session: %w", err)
	}
	return out, nil
}

func (e *Engine) execute(ctx context.Context, s *Session) (*Outcome, error) {
	switch s.Flow {
	case FlowIncome:
		d := s.Income
		req := custody.ReceiveRequest{
			ActorID:    s.UserID,
			Code:       d.Code,
			Name:       d.Name,
			CategoryID: d.CategoryID,
			Category:   d.Category,
			Qty:        d.Qty,
			Labels:     d.Labels,
			Photos:     d.Photos,
		}
		if d.Price.Valid {
			req.Prices = []decimal.NullDecimal{d.Price}
		}
		r, err := e.custody.Receive(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Outcome{Receipt: r, Operation: r.Operation}, nil

	case FlowOutgoing:
		op, err := e.custody.Issue(ctx, s.Issue.AssetID, s.Issue.Qty, s.Issue.RecipientID, s.UserID)
		if err != nil {
			return nil, err
		}
		return &Outcome{Operation: op}, nil

	case FlowTransfer:
		op, err := e.custody.Transfer(ctx, s.Transfer.AssetID, s.Transfer.Qty, s.UserID, s.Transfer.RecipientID)
		if err != nil {
			return nil, err
		}
		return &Outcome{Operation: op}, nil

	case FlowReturn:
		pr, err := e.custody.RequestReturn(ctx, s.Return.AssetID, s.Return.Qty, s.UserID)
		if err != nil {
			return nil, err
		}
		return &Outcome{Return: pr}, nil

	case FlowApprove:
		if s.Approve.Reject {
			if err := e.custody.RejectReturn(ctx, s.Approve.ReturnID, s.UserID); err != nil {
				return nil, err
			}
			return &Outcome{}, nil
		}
		op, err := e.custody.ApproveReturn(ctx, s.Approve.ReturnID, s.UserID, s.Approve.Photo)
		if err != nil {
			// The request was closed as rejected; there is nothing left to retry.
			if errors.Is(err, model.ErrReturnRevalidation) {
				if derr := e.store.Delete(ctx, s.UserID); derr != nil {
					return nil, errors.Join(err, fmt.Errorf("ending session: %w", derr))
				}
			}
			return nil, err
		}
		return &Outcome{Operation: op}, nil
	}
	return nil, model.Invalid("unknown flow %q", s.Flow)
}
