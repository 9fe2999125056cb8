package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GeminiProvider is the conversational multi-modal provider: text-to-image
// and image+text editing through one generateContent call. Responses may
// interleave descriptive text parts with image parts; only image parts are
// extracted, in their original order.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiProvider(apiKey string, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		client: &http.Client{
			Timeout: 120 * time.Second, // image generation can be slow
		},
	}
}

func (p *GeminiProvider) Name() string {
	return "Google Gemini"
}

// Gemini REST API request/response structures
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Submit sends the prompt (plus optional reference image) and returns an
// already-resolved job with the extracted image parts.
func (p *GeminiProvider) Submit(ctx context.Context, req *Request) (*Job, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)

	parts := []geminiPart{{Text: req.Prompt}}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: mime,
				Data:     base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: parts, Role: "user"}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini error (model: %s, status: %d): %s", model, resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("no response from Gemini (candidates: 0)")
	}

	artifacts, err := extractImageParts(geminiResp.Candidates[0].Content.Parts)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:       "sync",
		Resolved: &Result{Done: true, Artifacts: artifacts},
	}, nil
}

// Poll trivially returns the resolved result.
func (p *GeminiProvider) Poll(ctx context.Context, job *Job) (*Result, error) {
	if job.Resolved == nil {
		return nil, fmt.Errorf("gemini job has no resolved result")
	}
	return job.Resolved, nil
}

// extractImageParts keeps only inline image parts, preserving their
// relative order. Text parts (model commentary) are dropped.
func extractImageParts(parts []geminiPart) ([]Artifact, error) {
	var artifacts []Artifact
	for _, part := range parts {
		if part.InlineData == nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image part: %w", err)
		}
		artifacts = append(artifacts, Artifact{
			Data: raw,
			MIME: part.InlineData.MimeType,
			Kind: KindImage,
		})
	}
	return artifacts, nil
}
