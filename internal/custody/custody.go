package custody

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/notify"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// ReceiveRequest describes a delivery to the warehouse.
type ReceiveRequest struct {
	ActorID int64

	// Code identifies an existing asset to restock. When it is empty or
	// unknown a new asset called Name is created.
	Code string
	Name string

	// CategoryID selects an existing category; otherwise Category names
	// one, which is created if needed. Both empty leaves the asset
	// uncategorized.
	CategoryID int64
	Category   string

	Qty int

	// Labels, Photos and Prices describe the units; see
	// store.BatchInstances for the accepted lengths.
	Labels []string
	Photos []string
	Prices []decimal.NullDecimal

	Comment string
}

// Receipt is the outcome of Receive.
type Receipt struct {
	Asset     *model.Asset          `json:"asset"`
	Created   bool                  `json:"created"`
	Instances []model.AssetInstance `json:"instances"`
	Operation *model.Operation      `json:"operation"`
}

// Receive records incoming stock: the asset (and category) are resolved or
// created, one instance is created per unit, the available qty grows by
// the same amount and an incoming operation is logged.
func (s *Service) Receive(ctx context.Context, req ReceiveRequest) (*Receipt, error) {
	if err := positiveQty(req.Qty); err != nil {
		return nil, err
	}
	units, err := store.BatchInstances(req.Qty, req.Labels, req.Photos, req.Prices)
	if err != nil {
		return nil, err
	}

	var r *Receipt
	err = s.inTx(ctx, "receiving stock", func(tx *sqlx.Tx) error {
		actor, err := authorize(ctx, tx, req.ActorID, model.CanReceive)
		if err != nil {
			return err
		}

		var categoryID *int64
		switch {
		case req.CategoryID > 0:
			c, err := store.GetCategory(ctx, tx, req.CategoryID)
			if err != nil {
				return err
			}
			categoryID = &c.ID
		case store.NormalizeName(req.Category) != "":
			c, err := store.GetOrCreateCategory(ctx, tx, req.Category)
			if err != nil {
				return err
			}
			categoryID = &c.ID
		}

		asset, created, err := store.ResolveOrCreateAsset(ctx, tx, req.Code, req.Name, categoryID)
		if err != nil {
			return err
		}

		instances, err := store.CreateInstances(ctx, tx, asset.ID, units)
		if err != nil {
			return err
		}
		if err := store.IncrementAssetQty(ctx, tx, asset.ID, float64(req.Qty)); err != nil {
			return err
		}

		photo := firstPhoto(units)
		if photo != "" {
			if err := store.SetFirstIncomePhoto(ctx, tx, asset.ID, photo); err != nil {
				return err
			}
		}
		if err := store.SyncAssetState(ctx, tx, asset.ID); err != nil {
			return err
		}

		op, err := store.AppendOperation(ctx, tx, &model.Operation{
			Type:      model.OpIncoming,
			AssetID:   asset.ID,
			ToUserID:  &actor.ID,
			Qty:       float64(req.Qty),
			UnitPrice: firstPrice(units),
			Timestamp: s.now(),
			Comment:   optional(req.Comment),
			Photo:     optional(photo),
		})
		if err != nil {
			return err
		}

		asset, err = store.GetAsset(ctx, tx, asset.ID)
		if err != nil {
			return err
		}

		r = &Receipt{Asset: asset, Created: created, Instances: instances, Operation: op}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock received", "asset_id", r.Asset.ID, "asset", r.Asset.Name, "qty", req.Qty, "created", r.Created)
	return r, nil
}

func firstPhoto(units []store.NewInstance) string {
	for _, u := range units {
		if u.Photo != "" {
			return u.Photo
		}
	}
	return ""
}

func firstPrice(units []store.NewInstance) decimal.NullDecimal {
	for _, u := range units {
		if u.UnitPrice.Valid {
			return u.UnitPrice
		}
	}
	return decimal.NullDecimal{}
}

// Issue hands qty warehouse units of an asset to a recipient. The oldest
// available instances go first. It fails with model.ErrInsufficientStock,
// changing nothing, if the asset's qty or its available instances fall
// short.
func (s *Service) Issue(ctx context.Context, assetID int64, qty int, recipientID, actorID int64) (*model.Operation, error) {
	if err := positiveQty(qty); err != nil {
		return nil, err
	}

	var op *model.Operation
	err := s.inTx(ctx, "issuing asset", func(tx *sqlx.Tx) error {
		actor, err := authorize(ctx, tx, actorID, model.CanIssue)
		if err != nil {
			return err
		}
		to, err := recipient(ctx, tx, recipientID)
		if err != nil {
			return err
		}

		asset, err := store.GetAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}
		available, err := store.ListAvailable(ctx, tx, assetID, qty)
		if err != nil {
			return err
		}
		if asset.Qty < float64(qty) || len(available) < qty {
			return model.Insufficient(min(asset.Qty, float64(len(available))), float64(qty))
		}

		ids := store.InstanceIDs(available)
		if err := store.ReassignBatch(ctx, tx, ids, nil, &to.ID, model.AssetStateInUse); err != nil {
			return err
		}
		if err := store.DecrementAssetQty(ctx, tx, assetID, float64(qty)); err != nil {
			return err
		}
		if err := store.SyncAssetState(ctx, tx, assetID); err != nil {
			return err
		}

		op, err = store.AppendOperation(ctx, tx, &model.Operation{
			Type:       model.OpOutgoing,
			AssetID:    assetID,
			FromUserID: &actor.ID,
			ToUserID:   &to.ID,
			Qty:        float64(qty),
			Timestamp:  s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("asset issued", "operation_id", op.ID, "asset_id", assetID, "qty", qty, "to", recipientID, "by", actorID)
	s.notify(ctx, recipientID, notify.Message{
		Kind:        notify.KindCustodyIssued,
		Text:        fmt.Sprintf("You received %d x %s. Please confirm receipt.", qty, op.AssetName),
		OperationID: op.ID,
	})
	return op, nil
}

// Transfer moves qty units of an asset from one holder to another. The
// warehouse qty is untouched. The recipient has to confirm custody.
func (s *Service) Transfer(ctx context.Context, assetID int64, qty int, fromUserID, toUserID int64) (*model.Operation, error) {
	if err := positiveQty(qty); err != nil {
		return nil, err
	}
	if fromUserID == toUserID {
		return nil, model.Invalid("cannot transfer to yourself")
	}

	var op *model.Operation
	err := s.inTx(ctx, "transferring asset", func(tx *sqlx.Tx) error {
		from, err := authorize(ctx, tx, fromUserID, model.CanHold)
		if err != nil {
			return err
		}
		to, err := recipient(ctx, tx, toUserID)
		if err != nil {
			return err
		}
		if _, err := store.GetAsset(ctx, tx, assetID); err != nil {
			return err
		}

		held, err := store.ListAssignedTo(ctx, tx, from.ID, assetID)
		if err != nil {
			return err
		}
		if len(held) < qty {
			return model.Insufficient(float64(len(held)), float64(qty))
		}

		ids := store.InstanceIDs(held[:qty])
		if err := store.ReassignBatch(ctx, tx, ids, &from.ID, &to.ID, model.AssetStateInUse); err != nil {
			return err
		}

		op, err = store.AppendOperation(ctx, tx, &model.Operation{
			Type:       model.OpTransfer,
			AssetID:    assetID,
			FromUserID: &from.ID,
			ToUserID:   &to.ID,
			Qty:        float64(qty),
			Timestamp:  s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("asset transferred", "operation_id", op.ID, "asset_id", assetID, "qty", qty, "from", fromUserID, "to", toUserID)
	s.notify(ctx, toUserID, notify.Message{
		Kind:        notify.KindCustodyTransferred,
		Text:        fmt.Sprintf("%d x %s were transferred to you. Please confirm receipt.", qty, op.AssetName),
		OperationID: op.ID,
	})
	return op, nil
}

// WriteOff retires qty available warehouse units of an asset.
func (s *Service) WriteOff(ctx context.Context, assetID int64, qty int, actorID int64, comment string) (*model.Operation, error) {
	if err := positiveQty(qty); err != nil {
		return nil, err
	}

	var op *model.Operation
	err := s.inTx(ctx, "writing off asset", func(tx *sqlx.Tx) error {
		actor, err := authorize(ctx, tx, actorID, model.CanWriteOff)
		if err != nil {
			return err
		}

		asset, err := store.GetAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}
		available, err := store.ListAvailable(ctx, tx, assetID, qty)
		if err != nil {
			return err
		}
		if asset.Qty < float64(qty) || len(available) < qty {
			return model.Insufficient(min(asset.Qty, float64(len(available))), float64(qty))
		}

		ids := store.InstanceIDs(available)
		if err := store.ReassignBatch(ctx, tx, ids, nil, nil, model.AssetStateWrittenOff); err != nil {
			return err
		}
		if err := store.DecrementAssetQty(ctx, tx, assetID, float64(qty)); err != nil {
			return err
		}
		if err := store.SyncAssetState(ctx, tx, assetID); err != nil {
			return err
		}

		op, err = store.AppendOperation(ctx, tx, &model.Operation{
			Type:       model.OpWriteOff,
			AssetID:    assetID,
			FromUserID: &actor.ID,
			Qty:        float64(qty),
			Timestamp:  s.now(),
			Comment:    optional(comment),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("asset written off", "operation_id", op.ID, "asset_id", assetID, "qty", qty, "by", actorID)
	return op, nil
}
