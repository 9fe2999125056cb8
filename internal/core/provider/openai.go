package provider

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider is the synchronous image provider: one API call returns
// the generated image bytes inline, no polling involved.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}

	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "OpenAI"
}

// Submit performs the whole generation in one call and returns an
// already-resolved job.
func (p *OpenAIProvider) Submit(ctx context.Context, req *Request) (*Job, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          model,
		N:              count,
		Size:           sizeForRatio(req.AspectRatio),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai error: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no images returned from OpenAI")
	}

	artifacts := make([]Artifact, 0, len(resp.Data))
	for _, datum := range resp.Data {
		raw, err := base64.StdEncoding.DecodeString(datum.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		artifacts = append(artifacts, Artifact{
			Data: raw,
			MIME: "image/png",
			Kind: KindImage,
		})
	}

	return &Job{
		ID:       "sync",
		Resolved: &Result{Done: true, Artifacts: artifacts},
	}, nil
}

// Poll trivially returns the resolved result.
func (p *OpenAIProvider) Poll(ctx context.Context, job *Job) (*Result, error) {
	if job.Resolved == nil {
		return nil, fmt.Errorf("openai job has no resolved result")
	}
	return job.Resolved, nil
}

func sizeForRatio(ratio string) string {
	switch ratio {
	case "16:9":
		return "1792x1024"
	case "9:16":
		return "1024x1792"
	default:
		return "1024x1024"
	}
}
