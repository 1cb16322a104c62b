package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// assetTables lists the tables ClearAssetData empties, children first so
// foreign keys never dangle mid-transaction.
var assetTables = []string{
	"return_photos",
	"operations",
	"pending_returns",
	"asset_instances",
	"assets",
	"categories",
	"photos",
}

// ClearAssetData deletes every asset-related row while keeping users and
// settings. It returns the number of rows per table. With dryRun set the
// counts are reported and nothing is deleted.
func ClearAssetData(ctx context.Context, db *sqlx.DB, dryRun bool) (map[string]int64, error) {
	counts := make(map[string]int64, len(assetTables))

	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, table := range assetTables {
			var n int64
			if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
				return fmt.Errorf("counting %s: %w", table, err)
			}
			counts[table] = n

			if dryRun {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
