package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/stretchr/testify/mock"
)

type mockScheduleRepository struct {
	mock.Mock
}

func (m *mockScheduleRepository) CreateWithAssets(ctx context.Context, s *models.Schedule, assets []*models.MediaAsset) (int64, error) {
	args := m.Called(ctx, s, assets)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockScheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *mockScheduleRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Schedule, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Schedule), args.Error(1)
}

func (m *mockScheduleRepository) ListAll(ctx context.Context) ([]*models.Schedule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Schedule), args.Error(1)
}

func (m *mockScheduleRepository) Update(ctx context.Context, s *models.Schedule) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockScheduleRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockScheduleRepository) TransitionStatus(ctx context.Context, id int64, from []string, to string) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockScheduleRepository) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockMediaAssetRepository struct {
	mock.Mock
}

func (m *mockMediaAssetRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	args := m.Called(ctx, tx, ma)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMediaAssetRepository) ListByScheduleID(ctx context.Context, scheduleID int64) ([]*models.MediaAsset, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MediaAsset), args.Error(1)
}

func (m *mockMediaAssetRepository) SetEditedFile(ctx context.Context, id int64, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

type mockLogRepository struct {
	mock.Mock
}

func (m *mockLogRepository) Create(ctx context.Context, l *models.ApiScheduleLog) (int64, error) {
	args := m.Called(ctx, l)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLogRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ApiScheduleLog, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApiScheduleLog), args.Error(1)
}

// memResults is an in-memory AIResultRepository.
type memResults struct {
	results map[[2]int64]*transfer.AIResult
	deletes int
	saveErr error
}

func newMemResults() *memResults {
	return &memResults{results: map[[2]int64]*transfer.AIResult{}}
}

func (r *memResults) Save(ctx context.Context, userID, scheduleID int64, result *transfer.AIResult) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.results[[2]int64{userID, scheduleID}] = result
	return nil
}

func (r *memResults) Get(ctx context.Context, userID, scheduleID int64) (*transfer.AIResult, error) {
	return r.results[[2]int64{userID, scheduleID}], nil
}

func (r *memResults) Delete(ctx context.Context, userID, scheduleID int64) error {
	delete(r.results, [2]int64{userID, scheduleID})
	r.deletes++
	return nil
}

type mockAIService struct {
	mock.Mock
}

func (m *mockAIService) Run(ctx context.Context, s *models.Schedule, assets []*models.MediaAsset) *transfer.AIResult {
	args := m.Called(ctx, s, assets)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*transfer.AIResult)
}

type mockUploadPost struct {
	mock.Mock
}

func (m *mockUploadPost) Schedule(ctx context.Context, s *models.Schedule, assets []*models.MediaAsset) (string, error) {
	args := m.Called(ctx, s, assets)
	return args.String(0), args.Error(1)
}

func (m *mockUploadPost) ListScheduled(ctx context.Context) ([]transfer.ScheduledJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transfer.ScheduledJob), args.Error(1)
}

func (m *mockUploadPost) Cancel(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *mockUploadPost) Edit(ctx context.Context, jobID string, newTime *time.Time, newCaption *string) (*transfer.ScheduledJob, error) {
	args := m.Called(ctx, jobID, newTime, newCaption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.ScheduledJob), args.Error(1)
}

type mockAIProvider struct {
	mock.Mock
}

func (m *mockAIProvider) GenerateCaption(ctx context.Context, media []byte, mimeType, instruction string) (string, error) {
	args := m.Called(ctx, media, mimeType, instruction)
	return args.String(0), args.Error(1)
}

func (m *mockAIProvider) EditImage(ctx context.Context, pngImage []byte, prompt string) ([]byte, error) {
	args := m.Called(ctx, pngImage, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func strPtr(s string) *string {
	return &s
}
