package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/maheshrc27/postpilot/configs"
	"google.golang.org/genai"
)

type geminiProvider struct {
	client       *genai.Client
	captionModel string
	imageModel   string
}

func NewGeminiProvider(ctx context.Context, cfg config.Gemini) (AIProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiProvider{
		client:       client,
		captionModel: cfg.CaptionModel,
		imageModel:   cfg.ImageModel,
	}, nil
}

func (p *geminiProvider) GenerateCaption(ctx context.Context, media []byte, mimeType, instruction string) (string, error) {
	file, err := p.client.Files.Upload(ctx, bytes.NewReader(media), &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return "", fmt.Errorf("error uploading media to gemini: %w", err)
	}
	name := file.Name
	defer func() {
		if _, err := p.client.Files.Delete(context.WithoutCancel(ctx), name, nil); err != nil {
			slog.Info(err.Error())
		}
	}()

	file, err = p.waitActive(ctx, file)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromURI(file.URI, file.MIMEType),
		}, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.captionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("error generating caption: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// waitActive polls until an uploaded file is processed. Images are usually
// active right away; videos take a few seconds.
func (p *geminiProvider) waitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}

		var err error
		file, err = p.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("error polling gemini file: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, errors.New("gemini failed to process the media file")
	}
	return file, nil
}

func (p *geminiProvider) EditImage(ctx context.Context, pngImage []byte, prompt string) ([]byte, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(pngImage, "image/png"),
		}, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.imageModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("error editing image: %w", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, errors.New("gemini returned no image")
}
