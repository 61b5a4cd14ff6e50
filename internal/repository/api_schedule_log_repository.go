package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
)

type ApiScheduleLogRepository interface {
	Create(ctx context.Context, l *models.ApiScheduleLog) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ApiScheduleLog, error)
}

type apiScheduleLogRepository struct {
	db *sql.DB
}

func NewApiScheduleLogRepository(db *sql.DB) ApiScheduleLogRepository {
	return &apiScheduleLogRepository{db: db}
}

func (r *apiScheduleLogRepository) Create(ctx context.Context, l *models.ApiScheduleLog) (int64, error) {
	query := `
		INSERT INTO api_schedule_logs (schedule_id, user_id, job_id, schedule_time, platform, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, l.ScheduleID, l.UserID, l.JobID, l.ScheduleTime, l.Platform, l.Status).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *apiScheduleLogRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ApiScheduleLog, error) {
	query := `
		SELECT id, schedule_id, user_id, job_id, schedule_time, platform, status, created_at
		FROM api_schedule_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.ApiScheduleLog
	for rows.Next() {
		var l models.ApiScheduleLog
		err := rows.Scan(&l.ID, &l.ScheduleID, &l.UserID, &l.JobID, &l.ScheduleTime, &l.Platform, &l.Status, &l.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
