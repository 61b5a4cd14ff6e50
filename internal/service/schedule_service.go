package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/storage"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidState     = errors.New("schedule is not in a state that allows this action")
	ErrScheduleFailed   = errors.New("failed to schedule post with upload-post")
)

type ScheduleService interface {
	Create(ctx context.Context, userID int64, sc *transfer.ScheduleCreation, files []*multipart.FileHeader) (*transfer.ScheduleView, error)
	RunAI(ctx context.Context, userID, id int64) (*transfer.ScheduleView, error)
	Confirmation(ctx context.Context, userID, id int64) (*transfer.ScheduleView, error)
	Confirm(ctx context.Context, userID, id int64, finalCaption *string) (*models.Schedule, error)
	Cancel(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64) ([]*models.Schedule, error)
	Reschedule(ctx context.Context, userID, id int64, req *transfer.RescheduleRequest) (*models.Schedule, error)
	Reconcile(ctx context.Context) (int, error)
	Logs(ctx context.Context, userID int64) ([]*models.ApiScheduleLog, error)
}

type scheduleService struct {
	sr    repository.ScheduleRepository
	ma    repository.MediaAssetRepository
	lr    repository.ApiScheduleLogRepository
	ar    repository.AIResultRepository
	ai    AIService
	up    UploadPostService
	store storage.Store
	loc   *time.Location
	now   func() time.Time
}

func NewScheduleService(
	sr repository.ScheduleRepository,
	ma repository.MediaAssetRepository,
	lr repository.ApiScheduleLogRepository,
	ar repository.AIResultRepository,
	ai AIService,
	up UploadPostService,
	store storage.Store,
	loc *time.Location) ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	return &scheduleService{
		sr:    sr,
		ma:    ma,
		lr:    lr,
		ar:    ar,
		ai:    ai,
		up:    up,
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

var (
	imageExtensions = map[string]struct{}{"jpg": {}, "png": {}}
	videoExtensions = map[string]struct{}{"mp4": {}, "mov": {}}
)

type upload struct {
	data []byte
	kind types.Type
}

func (s *scheduleService) Create(ctx context.Context, userID int64, sc *transfer.ScheduleCreation, files []*multipart.FileHeader) (*transfer.ScheduleView, error) {
	if sc == nil {
		err := errors.New("schedule creation data is nil")
		slog.Error(err.Error())
		return nil, err
	}

	schedule, err := s.validate(sc, len(files))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	schedule.UserID = userID

	uploads, err := readUploads(schedule.MediaType, files)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	assets, err := s.storeUploads(ctx, uploads)
	if err != nil {
		return nil, fmt.Errorf("error storing media: %w", err)
	}

	if _, err := s.sr.CreateWithAssets(ctx, schedule, assets); err != nil {
		s.deleteBlobs(ctx, assets)
		return nil, fmt.Errorf("error creating schedule: %w", err)
	}
	slog.Info("schedule created", "schedule_id", schedule.ID, "user_id", userID, "platform", schedule.Platform)

	var result *transfer.AIResult
	if schedule.NeedsAI() {
		result, err = s.enrich(ctx, schedule, assets)
		if err != nil {
			return nil, err
		}
	}

	if err := s.setStatus(ctx, schedule, models.ScheduleStatusAwaitingConfirmation); err != nil {
		return nil, err
	}

	return s.view(schedule, assets, result), nil
}

func (s *scheduleService) validate(sc *transfer.ScheduleCreation, fileCount int) (*models.Schedule, error) {
	platform, err := ParsePlatforms(sc.Platforms)
	if err != nil {
		return nil, err
	}
	mediaType, err := NormalizeMediaType(sc.MediaType)
	if err != nil {
		return nil, err
	}
	contentType, err := NormalizeContentType(sc.ContentType)
	if err != nil {
		return nil, err
	}
	if err := ValidateMediaCount(mediaType, fileCount); err != nil {
		return nil, err
	}
	scheduleTime, err := ParseScheduleTime(sc.ScheduleTime, s.loc)
	if err != nil {
		return nil, err
	}

	schedule := &models.Schedule{
		Platform:       platform,
		MediaType:      mediaType,
		ContentType:    contentType,
		ScheduleTime:   scheduleTime,
		NeedsAIEdit:    sc.NeedsAIEdit,
		NeedsAICaption: sc.NeedsAICaption,
		Caption:        strings.TrimSpace(sc.Caption),
		Status:         models.ScheduleStatusDraft,
	}
	if prompt := strings.TrimSpace(sc.AIEditPrompt); prompt != "" {
		schedule.AIEditPrompt = &prompt
	}
	return schedule, nil
}

// readUploads reads every file and checks its detected kind against the
// media type before anything is stored.
func readUploads(mediaType string, files []*multipart.FileHeader) ([]upload, error) {
	allowed := imageExtensions
	if mediaType == models.MediaTypeVideo {
		allowed = videoExtensions
	}

	uploads := make([]upload, 0, len(files))
	for _, file := range files {
		data, err := readFile(file)
		if err != nil {
			return nil, err
		}

		kind, err := filetype.Match(data)
		if err != nil || kind == types.Unknown {
			return nil, invalid("media_files", "unsupported file type for %s", file.Filename)
		}
		if _, ok := allowed[kind.Extension]; !ok {
			return nil, invalid("media_files", "file type %s is not allowed for %s", kind.Extension, mediaType)
		}
		uploads = append(uploads, upload{data: data, kind: kind})
	}
	return uploads, nil
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return data, nil
}

func (s *scheduleService) storeUploads(ctx context.Context, uploads []upload) ([]*models.MediaAsset, error) {
	assets := make([]*models.MediaAsset, 0, len(uploads))
	for i, u := range uploads {
		key, err := storage.NewKey("media", u.kind.Extension)
		if err != nil {
			s.deleteBlobs(ctx, assets)
			return nil, err
		}
		if err := s.store.Save(ctx, key, u.data, u.kind.MIME.Value); err != nil {
			s.deleteBlobs(ctx, assets)
			return nil, err
		}
		assets = append(assets, &models.MediaAsset{
			FileKey:      key,
			FileType:     u.kind.MIME.Value,
			DisplayOrder: i,
		})
	}
	return assets, nil
}

// enrich runs the AI tasks and parks the result until the user confirms.
func (s *scheduleService) enrich(ctx context.Context, schedule *models.Schedule, assets []*models.MediaAsset) (*transfer.AIResult, error) {
	if err := s.setStatus(ctx, schedule, models.ScheduleStatusAIPending); err != nil {
		return nil, err
	}

	result, err := s.park(ctx, schedule, assets, models.ScheduleStatusAwaitingConfirmation)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// park runs the AI tasks and stores the result. When the result cannot be
// stored, the edited file is removed and the schedule returns to restore.
func (s *scheduleService) park(ctx context.Context, schedule *models.Schedule, assets []*models.MediaAsset, restore string) (*transfer.AIResult, error) {
	result := s.ai.Run(ctx, schedule, assets)

	err := s.ar.Save(ctx, schedule.UserID, schedule.ID, result)
	if err == nil {
		return result, nil
	}

	if result != nil && result.EditedMediaURL != nil {
		s.deleteBlob(ctx, *result.EditedMediaURL)
	}
	if serr := s.setStatus(context.WithoutCancel(ctx), schedule, restore); serr != nil {
		slog.Error("error restoring schedule status", "schedule_id", schedule.ID, "error", serr)
	}
	return nil, fmt.Errorf("error saving AI result: %w", err)
}

func (s *scheduleService) deleteBlob(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		slog.Error("error deleting edited file", "key", key, "error", err)
	}
}

func (s *scheduleService) setStatus(ctx context.Context, schedule *models.Schedule, status string) error {
	if err := s.sr.UpdateStatus(ctx, schedule.ID, status); err != nil {
		return fmt.Errorf("error updating schedule status: %w", err)
	}
	schedule.Status = status
	return nil
}

// owned returns the schedule when it exists and belongs to userID.
func (s *scheduleService) owned(ctx context.Context, userID, id int64) (*models.Schedule, error) {
	schedule, err := s.sr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil || schedule.UserID != userID {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *scheduleService) RunAI(ctx context.Context, userID, id int64) (*transfer.ScheduleView, error) {
	schedule, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	prior := schedule.Status
	ok, err := s.sr.TransitionStatus(ctx, id,
		[]string{models.ScheduleStatusAwaitingConfirmation, models.ScheduleStatusFailed},
		models.ScheduleStatusAIPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	schedule.Status = models.ScheduleStatusAIPending

	assets, err := s.ma.ListByScheduleID(ctx, id)
	if err != nil {
		if serr := s.setStatus(context.WithoutCancel(ctx), schedule, prior); serr != nil {
			slog.Error("error restoring schedule status", "schedule_id", id, "error", serr)
		}
		return nil, err
	}

	s.discardResult(ctx, userID, id, assets)

	result, err := s.park(ctx, schedule, assets, prior)
	if err != nil {
		return nil, err
	}

	if err := s.setStatus(ctx, schedule, models.ScheduleStatusAwaitingConfirmation); err != nil {
		return nil, err
	}
	return s.view(schedule, assets, result), nil
}

func (s *scheduleService) Confirmation(ctx context.Context, userID, id int64) (*transfer.ScheduleView, error) {
	schedule, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	assets, err := s.ma.ListByScheduleID(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.ar.Get(ctx, userID, id)
	if err != nil {
		slog.Error("error reading AI result", "schedule_id", id, "error", err)
	}
	return s.view(schedule, assets, result), nil
}

// Confirm finalizes captions and media and submits the schedule to
// upload-post. Once this call has claimed the schedule, the parked AI result
// is gone when Confirm returns, whatever the outcome. A call that loses the
// claim leaves it alone.
func (s *scheduleService) Confirm(ctx context.Context, userID, id int64, finalCaption *string) (*models.Schedule, error) {
	schedule, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.sr.TransitionStatus(ctx, id,
		[]string{models.ScheduleStatusAwaitingConfirmation, models.ScheduleStatusFailed},
		models.ScheduleStatusSubmitting)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	schedule.Status = models.ScheduleStatusSubmitting

	var (
		result         *transfer.AIResult
		editedAttached bool
	)
	defer func() {
		if result != nil && result.EditedMediaURL != nil && !editedAttached {
			s.deleteBlob(ctx, *result.EditedMediaURL)
		}
		s.clearResult(ctx, userID, id)
	}()

	result, err = s.ar.Get(ctx, userID, id)
	if err != nil {
		slog.Error("error reading AI result", "schedule_id", id, "error", err)
	}

	assets, err := s.ma.ListByScheduleID(ctx, id)
	if err != nil {
		s.fail(ctx, schedule)
		return nil, err
	}

	if result != nil && result.AIGeneratedCaption != nil {
		schedule.AIGeneratedCaption = result.AIGeneratedCaption
	}

	caption := schedule.Title()
	if finalCaption != nil && strings.TrimSpace(*finalCaption) != "" {
		caption = strings.TrimSpace(*finalCaption)
	}
	schedule.FinalCaption = &caption

	if result != nil && result.EditedMediaURL != nil && len(assets) > 0 {
		if err := s.attachEdited(ctx, assets[0], *result.EditedMediaURL); err != nil {
			s.fail(ctx, schedule)
			return nil, err
		}
		editedAttached = true
	}

	if err := s.sr.Update(ctx, schedule); err != nil {
		s.fail(ctx, schedule)
		return nil, err
	}

	jobID, err := s.up.Schedule(ctx, schedule, assets)
	if err != nil {
		slog.Error("schedule submission failed", "schedule_id", id, "error", err)
		s.fail(ctx, schedule)
		return schedule, fmt.Errorf("%w: %v", ErrScheduleFailed, err)
	}

	schedule.UploadJobID = &jobID
	schedule.IsUploaded = true
	schedule.Status = models.ScheduleStatusConfirmed
	if err := s.sr.Update(ctx, schedule); err != nil {
		return nil, fmt.Errorf("job %s created but schedule update failed: %w", jobID, err)
	}

	entry := &models.ApiScheduleLog{
		ScheduleID:   &schedule.ID,
		UserID:       userID,
		JobID:        jobID,
		ScheduleTime: schedule.ScheduleTime,
		Platform:     schedule.Platform,
		Status:       models.ApiLogStatusPending,
	}
	if _, err := s.lr.Create(ctx, entry); err != nil {
		slog.Error("error writing schedule log", "schedule_id", id, "job_id", jobID, "error", err)
	}

	slog.Info("schedule confirmed", "schedule_id", id, "job_id", jobID)
	return schedule, nil
}

// attachEdited points the asset at the edited file, dropping any edited file
// left over from an earlier attempt.
func (s *scheduleService) attachEdited(ctx context.Context, asset *models.MediaAsset, key string) error {
	previous := asset.EditedFileKey
	if err := s.ma.SetEditedFile(ctx, asset.ID, key); err != nil {
		return err
	}
	asset.EditedFileKey = &key

	if previous != nil && *previous != "" && *previous != key {
		if err := s.store.Delete(ctx, *previous); err != nil {
			slog.Error("error deleting previous edited file", "key", *previous, "error", err)
		}
	}
	return nil
}

func (s *scheduleService) fail(ctx context.Context, schedule *models.Schedule) {
	schedule.Status = models.ScheduleStatusFailed
	if err := s.sr.Update(context.WithoutCancel(ctx), schedule); err != nil {
		slog.Error("error marking schedule failed", "schedule_id", schedule.ID, "error", err)
	}
}

func (s *scheduleService) clearResult(ctx context.Context, userID, id int64) {
	if err := s.ar.Delete(context.WithoutCancel(ctx), userID, id); err != nil {
		slog.Error("error clearing AI result", "schedule_id", id, "error", err)
	}
}

// discardResult drops a parked AI result together with an edited file that
// was never attached to an asset.
func (s *scheduleService) discardResult(ctx context.Context, userID, id int64, assets []*models.MediaAsset) {
	result, err := s.ar.Get(ctx, userID, id)
	if err != nil {
		slog.Error("error reading AI result", "schedule_id", id, "error", err)
	}
	if result != nil && result.EditedMediaURL != nil && !attached(assets, *result.EditedMediaURL) {
		s.deleteBlob(ctx, *result.EditedMediaURL)
	}
	s.clearResult(ctx, userID, id)
}

func attached(assets []*models.MediaAsset, key string) bool {
	for _, a := range assets {
		if a.EditedFileKey != nil && *a.EditedFileKey == key {
			return true
		}
	}
	return false
}

// Cancel cancels the remote job if there is one, then deletes the schedule,
// its assets and their files.
func (s *scheduleService) Cancel(ctx context.Context, userID, id int64) error {
	schedule, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if schedule.HasJob() {
		if err := s.up.Cancel(ctx, *schedule.UploadJobID); err != nil {
			slog.Error("remote cancellation failed, deleting locally", "schedule_id", id, "job_id", *schedule.UploadJobID, "error", err)
		}
	}

	assets, err := s.ma.ListByScheduleID(ctx, id)
	if err != nil {
		return err
	}
	s.discardResult(ctx, userID, id, assets)

	if err := s.remove(ctx, schedule, assets); err != nil {
		return err
	}
	slog.Info("schedule cancelled", "schedule_id", id, "user_id", userID)
	return nil
}

// remove deletes the row first, then the files it referenced.
func (s *scheduleService) remove(ctx context.Context, schedule *models.Schedule, assets []*models.MediaAsset) error {
	if err := s.sr.Remove(ctx, schedule.ID); err != nil {
		return fmt.Errorf("error deleting schedule %d: %w", schedule.ID, err)
	}
	s.deleteBlobs(ctx, assets)
	return nil
}

func (s *scheduleService) deleteBlobs(ctx context.Context, assets []*models.MediaAsset) {
	for _, a := range assets {
		keys := []string{a.FileKey}
		if a.EditedFileKey != nil && *a.EditedFileKey != "" {
			keys = append(keys, *a.EditedFileKey)
		}
		for _, key := range keys {
			if err := s.store.Delete(ctx, key); err != nil {
				slog.Error("error deleting media file", "key", key, "error", err)
			}
		}
	}
}

// removeWithAssets loads the assets of a schedule and removes both.
func (s *scheduleService) removeWithAssets(ctx context.Context, schedule *models.Schedule) error {
	assets, err := s.ma.ListByScheduleID(ctx, schedule.ID)
	if err != nil {
		return err
	}
	s.clearResult(ctx, schedule.UserID, schedule.ID)
	return s.remove(ctx, schedule, assets)
}

func (s *scheduleService) List(ctx context.Context, userID int64) ([]*models.Schedule, error) {
	schedules, err := s.sr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining, _ := s.sweep(ctx, schedules)
	return remaining, nil
}

// Reconcile runs the past-due purge and the remote reconciliation over every
// user's schedules and reports how many were deleted.
func (s *scheduleService) Reconcile(ctx context.Context) (int, error) {
	schedules, err := s.sr.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	_, removed := s.sweep(ctx, schedules)
	return removed, nil
}

func (s *scheduleService) sweep(ctx context.Context, schedules []*models.Schedule) ([]*models.Schedule, int) {
	remaining, purged := s.purgeExpired(ctx, schedules)
	remaining, reconciled := s.reconcile(ctx, remaining)
	return remaining, purged + reconciled
}

// purgeExpired deletes every schedule whose publish time has passed,
// confirmed or not.
func (s *scheduleService) purgeExpired(ctx context.Context, schedules []*models.Schedule) ([]*models.Schedule, int) {
	now := s.now()
	remaining := make([]*models.Schedule, 0, len(schedules))
	removed := 0

	for _, schedule := range schedules {
		if !schedule.ScheduleTime.Before(now) {
			remaining = append(remaining, schedule)
			continue
		}
		if err := s.removeWithAssets(ctx, schedule); err != nil {
			slog.Error("error purging expired schedule", "schedule_id", schedule.ID, "error", err)
			remaining = append(remaining, schedule)
			continue
		}
		slog.Info("purged expired schedule", "schedule_id", schedule.ID)
		removed++
	}
	return remaining, removed
}

// reconcile deletes schedules whose remote job no longer exists. Nothing is
// deleted when the remote list cannot be fetched.
func (s *scheduleService) reconcile(ctx context.Context, schedules []*models.Schedule) ([]*models.Schedule, int) {
	tracked := false
	for _, schedule := range schedules {
		if schedule.HasJob() {
			tracked = true
			break
		}
	}
	if !tracked {
		return schedules, 0
	}

	jobs, err := s.up.ListScheduled(ctx)
	if err != nil {
		slog.Error("error fetching remote schedules, skipping reconciliation", "error", err)
		return schedules, 0
	}

	live := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		live[job.JobID] = struct{}{}
	}

	remaining := make([]*models.Schedule, 0, len(schedules))
	removed := 0
	for _, schedule := range schedules {
		if !schedule.HasJob() {
			remaining = append(remaining, schedule)
			continue
		}
		if _, ok := live[*schedule.UploadJobID]; ok {
			remaining = append(remaining, schedule)
			continue
		}
		if err := s.removeWithAssets(ctx, schedule); err != nil {
			slog.Error("error removing reconciled schedule", "schedule_id", schedule.ID, "error", err)
			remaining = append(remaining, schedule)
			continue
		}
		slog.Info("removed schedule missing from upload-post", "schedule_id", schedule.ID, "job_id", *schedule.UploadJobID)
		removed++
	}
	return remaining, removed
}

func (s *scheduleService) Reschedule(ctx context.Context, userID, id int64, req *transfer.RescheduleRequest) (*models.Schedule, error) {
	schedule, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req == nil || (req.ScheduleTime == nil && req.Caption == nil) {
		return nil, invalid("schedule_time", "nothing to update")
	}

	var newTime *time.Time
	if req.ScheduleTime != nil {
		t, err := ParseScheduleTime(*req.ScheduleTime, s.loc)
		if err != nil {
			return nil, err
		}
		if !t.After(s.now()) {
			return nil, invalid("schedule_time", "must be in the future")
		}
		newTime = &t
	}

	var newCaption *string
	if req.Caption != nil {
		c := strings.TrimSpace(*req.Caption)
		newCaption = &c
	}

	switch schedule.Status {
	case models.ScheduleStatusConfirmed:
		if schedule.HasJob() {
			if _, err := s.up.Edit(ctx, *schedule.UploadJobID, newTime, newCaption); err != nil {
				slog.Error("remote reschedule failed", "schedule_id", id, "error", err)
				return nil, err
			}
		}
		if newCaption != nil {
			schedule.FinalCaption = newCaption
		}
	case models.ScheduleStatusDraft, models.ScheduleStatusAwaitingConfirmation, models.ScheduleStatusFailed:
		if newCaption != nil {
			schedule.Caption = *newCaption
		}
	default:
		return nil, ErrInvalidState
	}

	if newTime != nil {
		schedule.ScheduleTime = *newTime
	}
	if err := s.sr.Update(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *scheduleService) Logs(ctx context.Context, userID int64) ([]*models.ApiScheduleLog, error) {
	return s.lr.ListByUserID(ctx, userID)
}

func (s *scheduleService) view(schedule *models.Schedule, assets []*models.MediaAsset, result *transfer.AIResult) *transfer.ScheduleView {
	urls := make([]string, 0, len(assets))
	for i, a := range assets {
		key := a.UploadKey()
		if i == 0 && result != nil && result.EditedMediaURL != nil {
			key = *result.EditedMediaURL
		}
		urls = append(urls, s.store.URL(key))
	}
	return &transfer.ScheduleView{
		Schedule:  schedule,
		Assets:    assets,
		AIResult:  result,
		MediaURLs: urls,
	}
}
