package models

import "time"

type Schedule struct {
	ID                 int64     `db:"id" json:"id"`
	UserID             int64     `db:"user_id" json:"user_id"`
	Platform           string    `db:"platform" json:"platform"`
	MediaType          string    `db:"media_type" json:"media_type"`
	ContentType        *string   `db:"content_type" json:"content_type,omitempty"`
	ScheduleTime       time.Time `db:"schedule_time" json:"schedule_time"`
	NeedsAIEdit        bool      `db:"needs_ai_edit" json:"needs_ai_edit"`
	AIEditPrompt       *string   `db:"ai_edit_prompt" json:"ai_edit_prompt,omitempty"`
	NeedsAICaption     bool      `db:"needs_ai_caption" json:"needs_ai_caption"`
	Caption            string    `db:"caption" json:"caption"`
	AIGeneratedCaption *string   `db:"ai_generated_caption" json:"ai_generated_caption,omitempty"`
	FinalCaption       *string   `db:"final_caption" json:"final_caption,omitempty"`
	UploadJobID        *string   `db:"upload_job_id" json:"upload_job_id,omitempty"`
	IsUploaded         bool      `db:"is_uploaded" json:"is_uploaded"`
	Status             string    `db:"status" json:"status"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// NeedsAI reports whether either enrichment task was requested.
func (s *Schedule) NeedsAI() bool {
	return s.NeedsAIEdit || s.NeedsAICaption
}

// HasJob reports whether a remote scheduling call has succeeded for s.
func (s *Schedule) HasJob() bool {
	return s.UploadJobID != nil && *s.UploadJobID != ""
}

// AICaptionFailed is stored as the AI caption when generation fails.
const AICaptionFailed = "Error: failed to generate caption."

// Title is the caption sent to the provider: the confirmed final caption,
// then a usable AI caption, then the manual one.
func (s *Schedule) Title() string {
	if s.FinalCaption != nil && *s.FinalCaption != "" {
		return *s.FinalCaption
	}
	if s.AIGeneratedCaption != nil && *s.AIGeneratedCaption != "" && *s.AIGeneratedCaption != AICaptionFailed {
		return *s.AIGeneratedCaption
	}
	return s.Caption
}

type MediaAsset struct {
	ID            int64     `db:"id" json:"id"`
	ScheduleID    int64     `db:"schedule_id" json:"schedule_id"`
	FileKey       string    `db:"file_key" json:"file_key"`
	EditedFileKey *string   `db:"edited_file_key" json:"edited_file_key,omitempty"`
	FileType      string    `db:"file_type" json:"file_type"`
	DisplayOrder  int       `db:"display_order" json:"display_order"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// UploadKey returns the AI-edited file when one exists, the original otherwise.
func (m *MediaAsset) UploadKey() string {
	if m.EditedFileKey != nil && *m.EditedFileKey != "" {
		return *m.EditedFileKey
	}
	return m.FileKey
}

type ApiScheduleLog struct {
	ID           int64     `db:"id" json:"id"`
	ScheduleID   *int64    `db:"schedule_id" json:"schedule_id,omitempty"`
	UserID       int64     `db:"user_id" json:"user_id"`
	JobID        string    `db:"job_id" json:"job_id"`
	ScheduleTime time.Time `db:"schedule_time" json:"schedule_time"`
	Platform     string    `db:"platform" json:"platform"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PlatformInstagram = "IG"
	PlatformTiktok    = "TIKTOK"
	PlatformBoth      = "BOTH"
)

const (
	MediaTypeSingleImage = "SINGLE_IMAGE"
	MediaTypeCarousel    = "CAROUSEL"
	MediaTypeVideo       = "VIDEO"
)

const (
	ContentTypeReels        = "REELS"
	ContentTypeStories      = "STORIES"
	ContentTypeSinglePost   = "SINGLE_POST"
	ContentTypeCarouselPost = "CAROUSEL_POST"
	ContentTypeTiktokVideo  = "TIKTOK_VIDEO"
)

const (
	ScheduleStatusDraft                = "DRAFT"
	ScheduleStatusAIPending            = "AI_PENDING"
	ScheduleStatusAwaitingConfirmation = "AWAITING_CONFIRMATION"
	ScheduleStatusSubmitting           = "SUBMITTING"
	ScheduleStatusConfirmed            = "CONFIRMED"
	ScheduleStatusFailed               = "SCHEDULE_FAILED"
)

const ApiLogStatusPending = "PENDING"
