package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
)

type MediaAssetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error)
	ListByScheduleID(ctx context.Context, scheduleID int64) ([]*models.MediaAsset, error)
	SetEditedFile(ctx context.Context, id int64, key string) error
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

func (r *mediaAssetRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	var id int64
	var err error

	query := `
		INSERT INTO media_assets (schedule_id, file_key, edited_file_key, file_type, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, ma.ScheduleID, ma.FileKey, ma.EditedFileKey, ma.FileType, ma.DisplayOrder).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, ma.ScheduleID, ma.FileKey, ma.EditedFileKey, ma.FileType, ma.DisplayOrder).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *mediaAssetRepository) ListByScheduleID(ctx context.Context, scheduleID int64) ([]*models.MediaAsset, error) {
	query := `
		SELECT id, schedule_id, file_key, edited_file_key, file_type, display_order, created_at
		FROM media_assets
		WHERE schedule_id = $1
		ORDER BY display_order, id
	`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assets []*models.MediaAsset
	for rows.Next() {
		var ma models.MediaAsset
		if err := rows.Scan(&ma.ID, &ma.ScheduleID, &ma.FileKey, &ma.EditedFileKey, &ma.FileType, &ma.DisplayOrder, &ma.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assets = append(assets, &ma)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return assets, nil
}

func (r *mediaAssetRepository) SetEditedFile(ctx context.Context, id int64, key string) error {
	query := `UPDATE media_assets SET edited_file_key = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, key, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affectedRows, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affectedRows == 0 {
		return errors.New("no rows affected")
	}
	return nil
}
