package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

// StoredPhotoPrefix marks photo references that point into the photos
// table. Any other reference is an opaque id owned by the chat platform.
const StoredPhotoPrefix = "photo:"

// SavePhoto stores image data and returns a reference to it.
func SavePhoto(ctx context.Context, db Queryer, data []byte, mime string) (string, error) {
	if len(data) == 0 {
		return "", model.Invalid("empty photo")
	}

	result, err := db.ExecContext(ctx, `INSERT INTO photos (data, mime) VALUES (?, ?)`, data, mime)
	if err != nil {
		return "", fmt.Errorf("saving photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("getting photo id: %w", err)
	}
	return StoredPhotoPrefix + strconv.FormatInt(id, 10), nil
}

// GetPhoto returns the image data and MIME type behind a stored reference.
func GetPhoto(ctx context.Context, db Queryer, ref string) ([]byte, string, error) {
	raw, ok := strings.CutPrefix(ref, StoredPhotoPrefix)
	if !ok {
		return nil, "", model.Invalid("photo %q is not stored locally", ref)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, "", model.Invalid("bad photo reference %q", ref)
	}

	var row struct {
		Data []byte `db:"data"`
		MIME string `db:"mime"`
	}
	err = sqlx.GetContext(ctx, db, &row, `SELECT data, mime FROM photos WHERE id = ?`, id)
	if err != nil {
		return nil, "", notFound(err, "photo", ref)
	}
	return row.Data, row.MIME, nil
}
