package transfer

// UploadResponse is the body returned by the upload endpoints on 200/202.
type UploadResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// ScheduledJob is one entry of the provider's scheduled job list.
type ScheduledJob struct {
	JobID         string `json:"job_id"`
	Title         string `json:"title"`
	PostType      string `json:"post_type"`
	ScheduledDate string `json:"scheduled_date"`
}

type ScheduleListResponse struct {
	Schedules []ScheduledJob `json:"schedules"`
	Jobs      []ScheduledJob `json:"jobs"`
}

type ScheduleEditRequest struct {
	ScheduledDate *string `json:"scheduled_date,omitempty"`
	Caption       *string `json:"caption,omitempty"`
}

type UploadPostError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
