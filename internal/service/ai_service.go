package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/storage"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const (
	captionInstruction = "Write a creative, engaging social media caption for this media. Maximum 200 characters."
	captionErrorText   = models.AICaptionFailed
)

// AIProvider is the remote model behind the AI tasks.
type AIProvider interface {
	// GenerateCaption uploads media to the provider and asks for a caption
	// following instruction.
	GenerateCaption(ctx context.Context, media []byte, mimeType, instruction string) (string, error)
	// EditImage applies prompt to a PNG image and returns the edited image bytes.
	EditImage(ctx context.Context, pngImage []byte, prompt string) ([]byte, error)
}

type AIService interface {
	Run(ctx context.Context, s *models.Schedule, assets []*models.MediaAsset) *transfer.AIResult
}

type aiService struct {
	provider AIProvider
	store    storage.Store
	timeout  time.Duration
}

func NewAIService(provider AIProvider, store storage.Store, timeout time.Duration) AIService {
	return &aiService{provider: provider, store: store, timeout: timeout}
}

// Run executes the requested enrichment tasks on the first asset. Failures
// never escape: a failed caption becomes captionErrorText, a failed edit
// leaves EditedMediaURL nil.
func (s *aiService) Run(ctx context.Context, schedule *models.Schedule, assets []*models.MediaAsset) *transfer.AIResult {
	result := &transfer.AIResult{}
	if !schedule.NeedsAI() || len(assets) == 0 {
		return result
	}
	first := assets[0]

	if schedule.NeedsAICaption {
		slog.Info("starting AI caption", "schedule_id", schedule.ID)
		caption, err := s.caption(ctx, first)
		if err != nil {
			slog.Error("AI caption failed", "schedule_id", schedule.ID, "error", err)
			caption = captionErrorText
		}
		result.AIGeneratedCaption = &caption
	}

	if schedule.NeedsAIEdit {
		prompt := ""
		if schedule.AIEditPrompt != nil {
			prompt = strings.TrimSpace(*schedule.AIEditPrompt)
		}

		switch {
		case prompt == "":
			slog.Info("AI edit requested without a prompt, skipping", "schedule_id", schedule.ID)
		case strings.HasPrefix(first.FileType, "video/"):
			slog.Info("AI edit is not supported for video, skipping", "schedule_id", schedule.ID)
		default:
			slog.Info("starting AI edit", "schedule_id", schedule.ID)
			key, err := s.edit(ctx, first, prompt)
			if err != nil {
				slog.Error("AI edit failed", "schedule_id", schedule.ID, "error", err)
			} else {
				result.EditedMediaURL = &key
			}
		}
	}

	return result
}

func (s *aiService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *aiService) caption(ctx context.Context, asset *models.MediaAsset) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	media, err := s.store.Open(ctx, asset.FileKey)
	if err != nil {
		return "", fmt.Errorf("error reading media: %w", err)
	}

	caption, err := s.provider.GenerateCaption(ctx, media, asset.FileType, captionInstruction)
	if err != nil {
		return "", err
	}

	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "", errors.New("provider returned an empty caption")
	}
	return caption, nil
}

func (s *aiService) edit(ctx context.Context, asset *models.MediaAsset, prompt string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	original, err := s.store.Open(ctx, asset.FileKey)
	if err != nil {
		return "", fmt.Errorf("error reading media: %w", err)
	}

	input, err := toRGBAPNG(original)
	if err != nil {
		return "", err
	}

	edited, err := s.provider.EditImage(ctx, input, prompt)
	if err != nil {
		return "", err
	}

	output, err := ensurePNG(edited)
	if err != nil {
		return "", err
	}

	key, err := storage.EditedKey(asset.FileKey)
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, key, output, "image/png"); err != nil {
		return "", err
	}

	slog.Info("saved AI edited image", "key", key)
	return key, nil
}

// toRGBAPNG re-encodes an image as an RGBA PNG, the format the edit model expects.
func toRGBAPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("error encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// ensurePNG checks the provider output is an image and returns it as PNG.
func ensurePNG(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("provider returned an undecodable image: %w", err)
	}
	if format == "png" {
		return data, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("error encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
