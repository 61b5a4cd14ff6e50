package transfer

import "github.com/maheshrc27/postpilot/internal/models"

// ScheduleCreation carries the raw creation form fields.
type ScheduleCreation struct {
	Platforms      []string
	MediaType      string
	ContentType    string
	ScheduleTime   string
	NeedsAIEdit    bool
	AIEditPrompt   string
	NeedsAICaption bool
	Caption        string
}

// AIResult is the enrichment output held between the AI step and confirmation.
// EditedMediaURL is the media store key of the edited image.
type AIResult struct {
	AIGeneratedCaption *string `json:"ai_generated_caption,omitempty"`
	EditedMediaURL     *string `json:"edited_media_url,omitempty"`
}

func (r *AIResult) Empty() bool {
	return r == nil || (r.AIGeneratedCaption == nil && r.EditedMediaURL == nil)
}

type ConfirmRequest struct {
	Action       string  `json:"action"`
	FinalCaption *string `json:"final_caption"`
}

type RescheduleRequest struct {
	ScheduleTime *string `json:"schedule_time"`
	Caption      *string `json:"caption"`
}

type ScheduleView struct {
	Schedule  *models.Schedule     `json:"schedule"`
	Assets    []*models.MediaAsset `json:"assets"`
	AIResult  *AIResult            `json:"ai_result,omitempty"`
	MediaURLs []string             `json:"media_urls"`
}

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}
