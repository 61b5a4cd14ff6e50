package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScheduleService struct {
	mock.Mock
}

func (m *mockScheduleService) Create(ctx context.Context, userID int64, sc *transfer.ScheduleCreation, files []*multipart.FileHeader) (*transfer.ScheduleView, error) {
	args := m.Called(ctx, userID, sc, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.ScheduleView), args.Error(1)
}

func (m *mockScheduleService) RunAI(ctx context.Context, userID, id int64) (*transfer.ScheduleView, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.ScheduleView), args.Error(1)
}

func (m *mockScheduleService) Confirmation(ctx context.Context, userID, id int64) (*transfer.ScheduleView, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.ScheduleView), args.Error(1)
}

func (m *mockScheduleService) Confirm(ctx context.Context, userID, id int64, finalCaption *string) (*models.Schedule, error) {
	args := m.Called(ctx, userID, id, finalCaption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *mockScheduleService) Cancel(ctx context.Context, userID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockScheduleService) List(ctx context.Context, userID int64) ([]*models.Schedule, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Schedule), args.Error(1)
}

func (m *mockScheduleService) Reschedule(ctx context.Context, userID, id int64, req *transfer.RescheduleRequest) (*models.Schedule, error) {
	args := m.Called(ctx, userID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *mockScheduleService) Reconcile(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockScheduleService) Logs(ctx context.Context, userID int64) ([]*models.ApiScheduleLog, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApiScheduleLog), args.Error(1)
}

func newTestApp(s service.ScheduleService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "1")
		return c.Next()
	})

	h := NewScheduleHandler(s)
	app.Post("/schedules", h.CreateSchedule)
	app.Get("/schedules", h.ListSchedules)
	app.Get("/schedules/logs", h.ListLogs)
	app.Post("/schedules/:id/ai", h.RunAI)
	app.Get("/schedules/:id/confirmation", h.Confirmation)
	app.Post("/schedules/:id/confirm", h.ProcessConfirmation)
	app.Patch("/schedules/:id", h.Reschedule)
	app.Delete("/schedules/:id", h.RemoveSchedule)
	return app
}

func createRequest(t *testing.T, platforms ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range platforms {
		require.NoError(t, w.WriteField("platform", p))
	}
	require.NoError(t, w.WriteField("media_type", "SINGLE_IMAGE"))
	require.NoError(t, w.WriteField("schedule_time", "2030-01-01T10:00"))
	require.NoError(t, w.WriteField("needs_ai_caption", "on"))
	part, err := w.CreateFormFile("media_files", "a.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/schedules", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateSchedule_PassesForm(t *testing.T) {
	s := &mockScheduleService{}
	s.On("Create", mock.Anything, int64(1), mock.MatchedBy(func(sc *transfer.ScheduleCreation) bool {
		return assert.ObjectsAreEqual([]string{"IG", "TIKTOK"}, sc.Platforms) &&
			sc.NeedsAICaption && !sc.NeedsAIEdit && sc.MediaType == "SINGLE_IMAGE"
	}), mock.MatchedBy(func(files []*multipart.FileHeader) bool {
		return len(files) == 1 && files[0].Filename == "a.png"
	})).Return(&transfer.ScheduleView{Schedule: &models.Schedule{ID: 5}}, nil)

	resp, err := newTestApp(s).Test(createRequest(t, "IG", "TIKTOK"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	s.AssertExpectations(t)
}

func TestCreateSchedule_ValidationError(t *testing.T) {
	s := &mockScheduleService{}
	s.On("Create", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return(nil, &service.ValidationError{Field: "platform", Message: "select at least one platform"})

	resp, err := newTestApp(s).Test(createRequest(t))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "platform", body["field"])
}

func TestProcessConfirmation_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"confirmed", nil, fiber.StatusOK},
		{"not found", service.ErrScheduleNotFound, fiber.StatusNotFound},
		{"wrong state", service.ErrInvalidState, fiber.StatusConflict},
		{"remote failure", fmt.Errorf("%w: boom", service.ErrScheduleFailed), fiber.StatusBadGateway},
		{"unexpected", fmt.Errorf("db down"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockScheduleService{}
			var schedule *models.Schedule
			if tt.err == nil {
				schedule = &models.Schedule{ID: 9, Status: models.ScheduleStatusConfirmed}
			}
			s.On("Confirm", mock.Anything, int64(1), int64(9), mock.MatchedBy(func(c *string) bool {
				return c != nil && *c == "done"
			})).Return(schedule, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/schedules/9/confirm",
				strings.NewReader(`{"action":"confirm","final_caption":"done"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := newTestApp(s).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestProcessConfirmation_Cancel(t *testing.T) {
	s := &mockScheduleService{}
	s.On("Cancel", mock.Anything, int64(1), int64(9)).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/schedules/9/confirm", strings.NewReader(`{"action":"cancel"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := newTestApp(s).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	s.AssertExpectations(t)
}

func TestProcessConfirmation_UnknownAction(t *testing.T) {
	s := &mockScheduleService{}

	req := httptest.NewRequest(http.MethodPost, "/schedules/9/confirm", strings.NewReader(`{"action":"publish"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := newTestApp(s).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	s.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveSchedule(t *testing.T) {
	s := &mockScheduleService{}
	s.On("Cancel", mock.Anything, int64(1), int64(4)).Return(nil)

	resp, err := newTestApp(s).Test(httptest.NewRequest(http.MethodDelete, "/schedules/4", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = newTestApp(s).Test(httptest.NewRequest(http.MethodDelete, "/schedules/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListLogsRoute(t *testing.T) {
	s := &mockScheduleService{}
	s.On("Logs", mock.Anything, int64(1)).Return([]*models.ApiScheduleLog{{JobID: "A"}}, nil)

	resp, err := newTestApp(s).Test(httptest.NewRequest(http.MethodGet, "/schedules/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	s.AssertExpectations(t)
}
