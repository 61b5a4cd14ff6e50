package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postpilot/internal/models"
)

type ScheduleRepository interface {
	CreateWithAssets(ctx context.Context, s *models.Schedule, assets []*models.MediaAsset) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Schedule, error)
	ListAll(ctx context.Context) ([]*models.Schedule, error)
	Update(ctx context.Context, s *models.Schedule) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	TransitionStatus(ctx context.Context, id int64, from []string, to string) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type scheduleRepository struct {
	db *sql.DB
	ma MediaAssetRepository
}

func NewScheduleRepository(db *sql.DB, ma MediaAssetRepository) ScheduleRepository {
	return &scheduleRepository{db: db, ma: ma}
}

const scheduleColumns = `id, user_id, platform, media_type, content_type, schedule_time, needs_ai_edit,
	ai_edit_prompt, needs_ai_caption, caption, ai_generated_caption, final_caption, upload_job_id,
	is_uploaded, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var s models.Schedule
	err := row.Scan(&s.ID, &s.UserID, &s.Platform, &s.MediaType, &s.ContentType, &s.ScheduleTime,
		&s.NeedsAIEdit, &s.AIEditPrompt, &s.NeedsAICaption, &s.Caption, &s.AIGeneratedCaption,
		&s.FinalCaption, &s.UploadJobID, &s.IsUploaded, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateWithAssets inserts the schedule and its media in one transaction and
// fills in the generated ids.
func (r *scheduleRepository) CreateWithAssets(ctx context.Context, s *models.Schedule, assets []*models.MediaAsset) (int64, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO schedules (user_id, platform, media_type, content_type, schedule_time, needs_ai_edit,
			ai_edit_prompt, needs_ai_caption, caption, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, s.UserID, s.Platform, s.MediaType, s.ContentType, s.ScheduleTime,
		s.NeedsAIEdit, s.AIEditPrompt, s.NeedsAICaption, s.Caption, s.Status).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	for _, asset := range assets {
		asset.ScheduleID = s.ID
		id, err := r.ma.Create(ctx, tx, asset)
		if err != nil {
			return 0, err
		}
		asset.ID = id
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return s.ID, nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1 ORDER BY schedule_time DESC`
	return r.list(ctx, query, userID)
}

func (r *scheduleRepository) ListAll(ctx context.Context) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY schedule_time DESC`
	return r.list(ctx, query)
}

func (r *scheduleRepository) list(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		schedules = append(schedules, s)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepository) Update(ctx context.Context, s *models.Schedule) error {
	query := `
		UPDATE schedules
		SET schedule_time = $1,
			caption = $2,
			ai_generated_caption = $3,
			final_caption = $4,
			upload_job_id = $5,
			is_uploaded = $6,
			status = $7,
			updated_at = $8
		WHERE id = $9
	`
	s.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, s.ScheduleTime, s.Caption, s.AIGeneratedCaption, s.FinalCaption,
		s.UploadJobID, s.IsUploaded, s.Status, s.UpdatedAt, s.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// TransitionStatus moves the schedule to `to` only when its current status is
// one of `from`. It reports whether this call performed the transition.
func (r *scheduleRepository) TransitionStatus(ctx context.Context, id int64, from []string, to string) (bool, error) {
	query := `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, pq.Array(from))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// Remove deletes the schedule row; media_assets rows go with it through the
// foreign key. Blob cleanup is the caller's job.
func (r *scheduleRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM schedules WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
