// Package session holds the state of multi-step conversational forms.
//
// A Session belongs to one user and runs one Flow. Each Flow walks a fixed
// sequence of Steps, filling in a typed draft. Nothing touches the
// warehouse until the user confirms the last step; cancelling just drops
// the session.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Flow is the kind of form a session runs.
type Flow string

// Flows.
const (
	FlowIncome   Flow = "income"
	FlowOutgoing Flow = "outgoing"
	FlowTransfer Flow = "transfer"
	FlowReturn   Flow = "return"
	FlowApprove  Flow = "approve"
)

// Valid reports whether f is a known flow.
func (f Flow) Valid() bool {
	_, ok := flowSteps[f]
	return ok
}

// Step is the input a session is waiting for.
type Step string

// Steps.
const (
	StepName      Step = "name"
	StepQty       Step = "qty"
	StepCategory  Step = "category"
	StepLabels    Step = "labels"
	StepPhotos    Step = "photos"
	StepPrice     Step = "price"
	StepCode      Step = "code"
	StepAsset     Step = "asset"
	StepRecipient Step = "recipient"
	StepReturn    Step = "return"
	StepDecision  Step = "decision"
	StepPhoto     Step = "photo"
	StepConfirm   Step = "confirm"
)

var flowSteps = map[Flow][]Step{
	FlowIncome:   {StepName, StepQty, StepCategory, StepLabels, StepPhotos, StepPrice, StepCode, StepConfirm},
	FlowOutgoing: {StepAsset, StepRecipient, StepQty, StepConfirm},
	FlowTransfer: {StepAsset, StepRecipient, StepQty, StepConfirm},
	FlowReturn:   {StepAsset, StepQty, StepConfirm},
	FlowApprove:  {StepReturn, StepDecision, StepPhoto, StepConfirm},
}

// IncomeDraft collects a delivery to the warehouse.
type IncomeDraft struct {
	Name       string              `json:"name"`
	Qty        int                 `json:"qty"`
	CategoryID int64               `json:"category_id,omitempty"`
	Category   string              `json:"category,omitempty"`
	Labels     []string            `json:"labels,omitempty"`
	Photos     []string            `json:"photos,omitempty"`
	Price      decimal.NullDecimal `json:"price"`
	Code       string              `json:"code,omitempty"`
}

// IssueDraft collects an issue from the warehouse.
type IssueDraft struct {
	AssetID     int64  `json:"asset_id"`
	AssetName   string `json:"asset_name"`
	RecipientID int64  `json:"recipient_id"`
	Qty         int    `json:"qty"`
}

// TransferDraft collects a transfer between users.
type TransferDraft struct {
	AssetID     int64  `json:"asset_id"`
	AssetName   string `json:"asset_name"`
	RecipientID int64  `json:"recipient_id"`
	Qty         int    `json:"qty"`
}

// ReturnDraft collects a return request.
type ReturnDraft struct {
	AssetID   int64  `json:"asset_id"`
	AssetName string `json:"asset_name"`
	Qty       int    `json:"qty"`
}

// ApproveDraft collects an approver's decision on a return request.
type ApproveDraft struct {
	ReturnID int64  `json:"return_id"`
	Reject   bool   `json:"reject"`
	Photo    string `json:"photo,omitempty"`
}

// Session is one user's form in progress. Exactly one draft, matching
// Flow, is set.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Flow      Flow      `json:"flow"`
	Step      Step      `json:"step"`
	UpdatedAt time.Time `json:"updated_at"`

	Income   *IncomeDraft   `json:"income,omitempty"`
	Issue    *IssueDraft    `json:"issue,omitempty"`
	Transfer *TransferDraft `json:"transfer,omitempty"`
	Return   *ReturnDraft   `json:"return,omitempty"`
	Approve  *ApproveDraft  `json:"approve,omitempty"`
}

func newSession(userID int64, flow Flow, now time.Time) *Session {
	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Flow:      flow,
		Step:      flowSteps[flow][0],
		UpdatedAt: now,
	}
	switch flow {
	case FlowIncome:
		s.Income = &IncomeDraft{}
	case FlowOutgoing:
		s.Issue = &IssueDraft{}
	case FlowTransfer:
		s.Transfer = &TransferDraft{}
	case FlowReturn:
		s.Return = &ReturnDraft{}
	case FlowApprove:
		s.Approve = &ApproveDraft{}
	}
	return s
}

// next moves the session to the step after the current one.
func (s *Session) next() {
	steps := flowSteps[s.Flow]
	for i, st := range steps {
		if st == s.Step && i+1 < len(steps) {
			s.Step = steps[i+1]
			return
		}
	}
}

// clone returns a deep copy, so a failed step never leaves a half-updated
// draft behind.
func (s *Session) clone() *Session {
	c := *s
	if s.Income != nil {
		d := *s.Income
		d.Labels = append([]string(nil), s.Income.Labels...)
		d.Photos = append([]string(nil), s.Income.Photos...)
		c.Income = &d
	}
	if s.Issue != nil {
		d := *s.Issue
		c.Issue = &d
	}
	if s.Transfer != nil {
		d := *s.Transfer
		c.Transfer = &d
	}
	if s.Return != nil {
		d := *s.Return
		c.Return = &d
	}
	if s.Approve != nil {
		d := *s.Approve
		c.Approve = &d
	}
	return &c
}
