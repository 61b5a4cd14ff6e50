package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
)

// ValidationError reports a rejected creation form. Nothing is stored when
// one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ParsePlatforms folds the platform checkboxes into the stored value:
// {IG} -> IG, {TIKTOK} -> TIKTOK, {IG, TIKTOK} -> BOTH.
func ParsePlatforms(selected []string) (string, error) {
	seen := map[string]bool{}
	for _, p := range selected {
		p = strings.ToUpper(strings.TrimSpace(p))
		switch p {
		case "":
			continue
		case models.PlatformInstagram, models.PlatformTiktok:
			seen[p] = true
		case models.PlatformBoth:
			seen[models.PlatformInstagram] = true
			seen[models.PlatformTiktok] = true
		default:
			return "", invalid("platform", "unknown platform %q", p)
		}
	}

	switch {
	case seen[models.PlatformInstagram] && seen[models.PlatformTiktok]:
		return models.PlatformBoth, nil
	case seen[models.PlatformInstagram]:
		return models.PlatformInstagram, nil
	case seen[models.PlatformTiktok]:
		return models.PlatformTiktok, nil
	}
	return "", invalid("platform", "select at least one platform")
}

// NormalizeMediaType accepts IMAGE as an alias of SINGLE_IMAGE.
func NormalizeMediaType(mediaType string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(mediaType)) {
	case models.MediaTypeSingleImage, "IMAGE":
		return models.MediaTypeSingleImage, nil
	case models.MediaTypeCarousel:
		return models.MediaTypeCarousel, nil
	case models.MediaTypeVideo:
		return models.MediaTypeVideo, nil
	}
	return "", invalid("media_type", "unknown media type %q", mediaType)
}

func NormalizeContentType(contentType string) (*string, error) {
	ct := strings.ToUpper(strings.TrimSpace(contentType))
	switch ct {
	case "":
		return nil, nil
	case models.ContentTypeReels, models.ContentTypeStories, models.ContentTypeSinglePost,
		models.ContentTypeCarouselPost, models.ContentTypeTiktokVideo:
		return &ct, nil
	}
	return nil, invalid("content_type", "unknown content type %q", contentType)
}

// ValidateMediaCount checks the number of uploaded files against the media type.
func ValidateMediaCount(mediaType string, count int) error {
	if count == 0 {
		return invalid("media_files", "this field is required")
	}

	switch mediaType {
	case models.MediaTypeSingleImage:
		if count > 1 {
			return invalid("media_files", "a single image post takes exactly one file")
		}
	case models.MediaTypeVideo:
		if count > 1 {
			return invalid("media_files", "a video post takes exactly one file")
		}
	case models.MediaTypeCarousel:
		if count < 2 {
			return invalid("media_files", "a carousel needs at least two images")
		}
	}
	return nil
}

const scheduleTimeLayout = "2006-01-02T15:04"

// ParseScheduleTime reads a datetime-local value in loc and returns it in UTC.
// RFC 3339 input carries its own offset and is accepted as is.
func ParseScheduleTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalid("schedule_time", "this field is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{scheduleTimeLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid("schedule_time", "invalid time %q, expected YYYY-MM-DDTHH:MM", value)
}
