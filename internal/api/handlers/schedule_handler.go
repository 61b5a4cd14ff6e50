package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

// scheduleError maps service errors onto HTTP responses.
func scheduleError(c *fiber.Ctx, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, service.ErrScheduleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Schedule not found",
		})
	case errors.Is(err, service.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrScheduleFailed), errors.Is(err, service.ErrUploadFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to schedule post with upload-post. Please try again.",
		})
	}

	slog.Error(err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "something went wrong",
	})
}

func formBool(c *fiber.Ctx, key string) bool {
	switch strings.ToLower(c.FormValue(key)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func (h *ScheduleHandler) CreateSchedule(c *fiber.Ctx) error {
	userID := GetUserID(c)
	form, err := c.MultipartForm()
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	view, err := h.s.Create(c.Context(), userID, &transfer.ScheduleCreation{
		Platforms:      form.Value["platform"],
		MediaType:      c.FormValue("media_type"),
		ContentType:    c.FormValue("content_type"),
		ScheduleTime:   c.FormValue("schedule_time"),
		NeedsAIEdit:    formBool(c, "needs_ai_edit"),
		AIEditPrompt:   c.FormValue("ai_edit_prompt"),
		NeedsAICaption: formBool(c, "needs_ai_caption"),
		Caption:        c.FormValue("caption"),
	}, form.File["media_files"])
	if err != nil {
		return scheduleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *ScheduleHandler) ListSchedules(c *fiber.Ctx) error {
	schedules, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return scheduleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(schedules)
}

func (h *ScheduleHandler) RunAI(c *fiber.Ctx) error {
	id := scheduleID(c)
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid schedule id"})
	}

	view, err := h.s.RunAI(c.Context(), GetUserID(c), id)
	if err != nil {
		return scheduleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

func (h *ScheduleHandler) Confirmation(c *fiber.Ctx) error {
	id := scheduleID(c)
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid schedule id"})
	}

	view, err := h.s.Confirmation(c.Context(), GetUserID(c), id)
	if err != nil {
		return scheduleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// ProcessConfirmation confirms or cancels a schedule awaiting confirmation.
func (h *ScheduleHandler) ProcessConfirmation(c *fiber.Ctx) error {
	id := scheduleID(c)
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid schedule id"})
	}

	var req transfer.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unable to parse request"})
	}

	userID := GetUserID(c)
	switch strings.ToLower(req.Action) {
	case "confirm":
		schedule, err := h.s.Confirm(c.Context(), userID, id, req.FinalCaption)
		if err != nil {
			return scheduleError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":  "Post scheduled successfully",
			"schedule": schedule,
		})
	case "cancel":
		if err := h.s.Cancel(c.Context(), userID, id); err != nil {
			return scheduleError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Schedule cancelled",
		})
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "action must be confirm or cancel",
	})
}

func (h *ScheduleHandler) Reschedule(c *fiber.Ctx) error {
	id := scheduleID(c)
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid schedule id"})
	}

	var req transfer.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unable to parse request"})
	}

	schedule, err := h.s.Reschedule(c.Context(), GetUserID(c), id, &req)
	if err != nil {
		return scheduleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(schedule)
}

func (h *ScheduleHandler) RemoveSchedule(c *fiber.Ctx) error {
	id := scheduleID(c)
	if id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid schedule id"})
	}

	if err := h.s.Cancel(c.Context(), GetUserID(c), id); err != nil {
		return scheduleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ScheduleHandler) ListLogs(c *fiber.Ctx) error {
	logs, err := h.s.Logs(c.Context(), GetUserID(c))
	if err != nil {
		return scheduleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(logs)
}
