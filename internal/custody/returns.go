package custody

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/notify"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// RequestReturn asks for qty held units of an asset to be taken back into
// the warehouse. Nothing moves until the return approver accepts.
func (s *Service) RequestReturn(ctx context.Context, assetID int64, qty int, fromUserID int64) (*model.PendingReturn, error) {
	if err := positiveQty(qty); err != nil {
		return nil, err
	}

	var (
		pr       *model.PendingReturn
		approver *model.User
	)
	err := s.inTx(ctx, "requesting return", func(tx *sqlx.Tx) error {
		from, err := authorize(ctx, tx, fromUserID, model.CanHold)
		if err != nil {
			return err
		}
		asset, err := store.GetAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}

		held, err := store.CountHeld(ctx, tx, from.ID, assetID)
		if err != nil {
			return err
		}
		if held < qty {
			return model.Insufficient(float64(held), float64(qty))
		}

		pr, err = store.CreatePendingReturn(ctx, tx, from.ID, assetID, asset.Name, float64(qty), s.now())
		if err != nil {
			return err
		}
		approver, err = selectReturnApprover(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("return requested", "return_id", pr.ID, "asset_id", assetID, "qty", qty, "from", fromUserID)
	if approver == nil {
		s.logger.Warn("no return approver available", "return_id", pr.ID)
		return pr, nil
	}
	s.notify(ctx, approver.ID, notify.Message{
		Kind:     notify.KindReturnRequested,
		Text:     fmt.Sprintf("Return request: %g x %s.", pr.Qty, pr.AssetName),
		ReturnID: pr.ID,
	})
	return pr, nil
}

// loadForDecision checks that approverID is the designated return approver
// and that the request is still pending.
func loadForDecision(ctx context.Context, tx *sqlx.Tx, returnID, approverID int64) (*model.User, *model.PendingReturn, error) {
	approver, err := authorize(ctx, tx, approverID, model.CanApproveReturns)
	if err != nil {
		return nil, nil, err
	}
	designated, err := selectReturnApprover(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	if designated == nil || designated.ID != approver.ID {
		return nil, nil, fmt.Errorf("user %d is not the return approver: %w", approver.ID, model.ErrUnauthorized)
	}

	pr, err := store.GetPendingReturn(ctx, tx, returnID)
	if err != nil {
		return nil, nil, err
	}
	if pr.Status != model.ReturnPending {
		return nil, nil, fmt.Errorf("return %d is %s: %w", pr.ID, pr.Status, model.ErrAlreadyProcessed)
	}
	return approver, pr, nil
}

// Upload is an image stored together with the approval it documents.
type Upload struct {
	Data []byte
	MIME string
}

// ApproveReturn accepts a pending return. Storekeepers have to attach a
// photo of the returned units; administrators may omit it.
//
// If the requester no longer holds the requested qty the request is
// rejected instead and the error wraps model.ErrReturnRevalidation together
// with a model.InsufficientStockError; nothing is partially returned.
func (s *Service) ApproveReturn(ctx context.Context, returnID, approverID int64, photo string) (*model.Operation, error) {
	return s.approveReturn(ctx, returnID, approverID, photo, nil)
}

// ApproveReturnWithUpload is ApproveReturn with an image that is stored in
// the approval's transaction. The image is only kept when the return is
// approved.
func (s *Service) ApproveReturnWithUpload(ctx context.Context, returnID, approverID int64, upload Upload) (*model.Operation, error) {
	if len(upload.Data) == 0 {
		return nil, model.Invalid("empty photo")
	}
	return s.approveReturn(ctx, returnID, approverID, "", &upload)
}

func (s *Service) approveReturn(ctx context.Context, returnID, approverID int64, photo string, upload *Upload) (*model.Operation, error) {
	var (
		op      *model.Operation
		pr      *model.PendingReturn
		revalid error
	)
	err := s.inTx(ctx, "approving return", func(tx *sqlx.Tx) error {
		op, revalid = nil, nil
		ref := photo

		approver, p, err := loadForDecision(ctx, tx, returnID, approverID)
		if err != nil {
			return err
		}
		pr = p
		if ref == "" && upload == nil && model.ReturnPhotoRequired(approver) {
			return model.Invalid("photo required")
		}

		need := int(pr.Qty)
		held, err := store.ListAssignedTo(ctx, tx, pr.FromUserID, pr.AssetID)
		if err != nil {
			return err
		}
		if len(held) < need {
			revalid = model.Insufficient(float64(len(held)), pr.Qty)
			return store.ResolvePendingReturn(ctx, tx, pr.ID, model.ReturnRejected, approver.ID, s.now())
		}

		if upload != nil {
			if ref, err = store.SavePhoto(ctx, tx, upload.Data, upload.MIME); err != nil {
				return err
			}
		}

		ids := store.InstanceIDs(held[:need])
		if err := store.ReassignBatch(ctx, tx, ids, &pr.FromUserID, nil, model.AssetStateInStock); err != nil {
			return err
		}
		if err := store.IncrementAssetQty(ctx, tx, pr.AssetID, pr.Qty); err != nil {
			return err
		}
		if err := store.SyncAssetState(ctx, tx, pr.AssetID); err != nil {
			return err
		}

		op, err = store.AppendOperation(ctx, tx, &model.Operation{
			Type:       model.OpReturn,
			AssetID:    pr.AssetID,
			FromUserID: &pr.FromUserID,
			ToUserID:   &approver.ID,
			Qty:        pr.Qty,
			Timestamp:  s.now(),
			Photo:      optional(ref),
		})
		if err != nil {
			return err
		}

		if ref != "" {
			if _, err := store.AddReturnPhoto(ctx, tx, pr.AssetID, &pr.ID, ref, approver.ID); err != nil {
				return err
			}
		}
		return store.ResolvePendingReturn(ctx, tx, pr.ID, model.ReturnApproved, approver.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	if revalid != nil {
		s.logger.Warn("return rejected on revalidation", "return_id", pr.ID, "error", revalid)
		s.notify(ctx, pr.FromUserID, notify.Message{
			Kind:     notify.KindReturnRejected,
			Text:     fmt.Sprintf("Your return of %g x %s was rejected: you no longer hold that many.", pr.Qty, pr.AssetName),
			ReturnID: pr.ID,
		})
		return nil, fmt.Errorf("approving return %d: %w (%w)", pr.ID, model.ErrReturnRevalidation, revalid)
	}

	s.logger.Info("return approved", "return_id", pr.ID, "operation_id", op.ID, "by", approverID)
	s.notify(ctx, pr.FromUserID, notify.Message{
		Kind:        notify.KindReturnApproved,
		Text:        fmt.Sprintf("Your return of %g x %s was accepted.", pr.Qty, pr.AssetName),
		OperationID: op.ID,
		ReturnID:    pr.ID,
	})
	return op, nil
}

// RejectReturn declines a pending return. Nothing moves.
func (s *Service) RejectReturn(ctx context.Context, returnID, approverID int64) error {
	var pr *model.PendingReturn
	err := s.inTx(ctx, "rejecting return", func(tx *sqlx.Tx) error {
		approver, p, err := loadForDecision(ctx, tx, returnID, approverID)
		if err != nil {
			return err
		}
		pr = p
		return store.ResolvePendingReturn(ctx, tx, pr.ID, model.ReturnRejected, approver.ID, s.now())
	})
	if err != nil {
		return err
	}

	s.logger.Info("return rejected", "return_id", pr.ID, "by", approverID)
	s.notify(ctx, pr.FromUserID, notify.Message{
		Kind:     notify.KindReturnRejected,
		Text:     fmt.Sprintf("Your return of %g x %s was rejected.", pr.Qty, pr.AssetName),
		ReturnID: pr.ID,
	})
	return nil
}

// ConfirmCustody records that the recipient of an outgoing or transfer
// operation has the units. Only the recipient may confirm, and only once:
// a signed operation reports model.ErrAlreadyProcessed.
func (s *Service) ConfirmCustody(ctx context.Context, operationID, userID int64) (*model.Operation, error) {
	var op *model.Operation
	err := s.inTx(ctx, "confirming custody", func(tx *sqlx.Tx) error {
		u, err := authorize(ctx, tx, userID, model.CanHold)
		if err != nil {
			return err
		}
		op, err = store.GetOperation(ctx, tx, operationID)
		if err != nil {
			return err
		}
		if !op.Type.NeedsCustodySignature() {
			return model.Invalid("%s operations are not confirmed", op.Type)
		}
		if op.ToUserID == nil || *op.ToUserID != u.ID {
			return fmt.Errorf("user %d is not the recipient of operation %d: %w", u.ID, op.ID, model.ErrUnauthorized)
		}
		if op.Signed() {
			return fmt.Errorf("operation %d: %w", op.ID, model.ErrAlreadyProcessed)
		}

		signed, err := store.SignOperation(ctx, tx, op.ID, u.ID, false, s.now())
		if err != nil {
			return err
		}
		if !signed {
			return fmt.Errorf("operation %d: %w", op.ID, model.ErrAlreadyProcessed)
		}
		op, err = store.GetOperation(ctx, tx, op.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("custody confirmed", "operation_id", op.ID, "user_id", userID)
	return op, nil
}
