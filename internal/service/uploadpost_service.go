package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/storage"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

var ErrUploadFailed = errors.New("upload-post request failed")

// UploadPostService talks to the upload-post scheduling API.
type UploadPostService interface {
	// Schedule submits the post and returns the provider's job id.
	Schedule(ctx context.Context, s *models.Schedule, assets []*models.MediaAsset) (string, error)
	ListScheduled(ctx context.Context) ([]transfer.ScheduledJob, error)
	Cancel(ctx context.Context, jobID string) error
	Edit(ctx context.Context, jobID string, newTime *time.Time, newCaption *string) (*transfer.ScheduledJob, error)
}

type uploadPostService struct {
	cfg    config.UploadPost
	client *http.Client
	store  storage.Store
}

func NewUploadPostService(cfg config.UploadPost, store storage.Store) UploadPostService {
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Apikey"
	}
	return &uploadPostService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		store:  store,
	}
}

// providerPlatforms expands the stored platform into the provider's names.
func providerPlatforms(platform string) []string {
	switch platform {
	case models.PlatformBoth:
		return []string{"instagram", "tiktok"}
	case models.PlatformTiktok:
		return []string{"tiktok"}
	default:
		return []string{"instagram"}
	}
}

func (s *uploadPostService) endpoint(parts ...string) string {
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + strings.Join(parts, "/")
}

func (s *uploadPostService) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", s.cfg.AuthScheme+" "+s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (s *uploadPostService) Schedule(ctx context.Context, schedule *models.Schedule, assets []*models.MediaAsset) (string, error) {
	slog.Info("submitting schedule to upload-post", "schedule_id", schedule.ID, "media_type", schedule.MediaType)

	var (
		endpoint  string
		fileField string
		selected  []*models.MediaAsset
	)
	switch schedule.MediaType {
	case models.MediaTypeVideo:
		endpoint = s.endpoint("upload")
		fileField = "video"
		if len(assets) > 0 {
			selected = assets[:1]
		}
	case models.MediaTypeCarousel:
		endpoint = s.endpoint("upload_photos")
		fileField = "photos[]"
		selected = assets
	default:
		endpoint = s.endpoint("upload_photos")
		fileField = "photos"
		if len(assets) > 0 {
			selected = assets[:1]
		}
	}
	if len(selected) == 0 {
		return "", fmt.Errorf("%w: schedule %d has no media", ErrUploadFailed, schedule.ID)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := [][2]string{
		{"user", s.cfg.User},
		{"title", schedule.Title()},
		{"scheduled_date", schedule.ScheduleTime.UTC().Format(time.RFC3339)},
	}
	for _, p := range providerPlatforms(schedule.Platform) {
		fields = append(fields, [2]string{"platform[]", p})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	for _, asset := range selected {
		if err := s.writeFile(ctx, writer, fileField, asset); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("upload-post request error", "schedule_id", schedule.ID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		slog.Error("upload-post rejected schedule", "schedule_id", schedule.ID, "status", resp.StatusCode, "body", string(respBody))
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var result transfer.UploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: invalid response: %v", ErrUploadFailed, err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("%w: response has no job_id", ErrUploadFailed)
	}

	slog.Info("upload-post accepted schedule", "schedule_id", schedule.ID, "job_id", result.JobID, "status", resp.StatusCode)
	return result.JobID, nil
}

// writeFile adds one media part, preferring the AI-edited file.
func (s *uploadPostService) writeFile(ctx context.Context, writer *multipart.Writer, field string, asset *models.MediaAsset) error {
	key := asset.UploadKey()
	data, err := s.store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", key, err)
	}

	contentType := asset.FileType
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, path.Base(key)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func (s *uploadPostService) ListScheduled(ctx context.Context) ([]transfer.ScheduledJob, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.endpoint("uploadposts", "schedule"), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	return decodeScheduledJobs(body)
}

// decodeScheduledJobs accepts a bare array or an object wrapping one.
func decodeScheduledJobs(body []byte) ([]transfer.ScheduledJob, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var jobs []transfer.ScheduledJob
		if err := json.Unmarshal(trimmed, &jobs); err != nil {
			return nil, fmt.Errorf("%w: invalid schedule list: %v", ErrUploadFailed, err)
		}
		return jobs, nil
	}

	var wrapped transfer.ScheduleListResponse
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: invalid schedule list: %v", ErrUploadFailed, err)
	}
	if wrapped.Schedules != nil {
		return wrapped.Schedules, nil
	}
	if wrapped.Jobs != nil {
		return wrapped.Jobs, nil
	}
	return []transfer.ScheduledJob{}, nil
}

func (s *uploadPostService) Cancel(ctx context.Context, jobID string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, s.endpoint("schedule", url.PathEscape(jobID)), nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: cancel %s returned %d: %s", ErrUploadFailed, jobID, resp.StatusCode, string(body))
	}

	slog.Info("cancelled upload-post job", "job_id", jobID)
	return nil
}

func (s *uploadPostService) Edit(ctx context.Context, jobID string, newTime *time.Time, newCaption *string) (*transfer.ScheduledJob, error) {
	payload := transfer.ScheduleEditRequest{Caption: newCaption}
	if newTime != nil {
		date := newTime.UTC().Format(time.RFC3339)
		payload.ScheduledDate = &date
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, http.MethodPatch, s.endpoint("schedule", url.PathEscape(jobID)), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: edit %s returned %d: %s", ErrUploadFailed, jobID, resp.StatusCode, string(body))
	}

	job := transfer.ScheduledJob{JobID: jobID}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &job); err != nil {
			slog.Info(err.Error())
		}
	}
	if job.JobID == "" {
		job.JobID = jobID
	}
	if job.ScheduledDate == "" && payload.ScheduledDate != nil {
		job.ScheduledDate = *payload.ScheduledDate
	}
	if job.Title == "" && newCaption != nil {
		job.Title = *newCaption
	}
	return &job, nil
}
