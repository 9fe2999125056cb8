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

// RunwayProvider is an asynchronous job-polling provider for video
// generation: submit a task, receive a task id, poll until terminal.
type RunwayProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewRunwayProvider(apiKey string, model string) *RunwayProvider {
	if model == "" {
		model = "gen3a_turbo"
	}

	return &RunwayProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.dev.runwayml.com",
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *RunwayProvider) Name() string {
	return "Runway"
}

// Runway REST API request/response structures
type runwayTaskRequest struct {
	PromptText  string `json:"promptText"`
	PromptImage string `json:"promptImage,omitempty"` // data URI
	Model       string `json:"model"`
	Ratio       string `json:"ratio,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

type runwayTaskResponse struct {
	ID string `json:"id"`
}

type runwayStatusResponse struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"` // PENDING, RUNNING, SUCCEEDED, FAILED
	Output  []string `json:"output,omitempty"`
	Failure string   `json:"failure,omitempty"`
}

// Submit creates a generation task and returns its handle.
func (p *RunwayProvider) Submit(ctx context.Context, req *Request) (*Job, error) {
	endpoint := p.baseURL + "/v1/text_to_video"

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	body := runwayTaskRequest{
		PromptText: req.Prompt,
		Model:      model,
		Ratio:      runwayRatio(req.AspectRatio),
		Duration:   req.Duration,
	}
	if len(req.Image) > 0 {
		endpoint = p.baseURL + "/v1/image_to_video"
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		body.PromptImage = fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.Image))
	}

	var taskResp runwayTaskResponse
	if err := p.doJSON(ctx, "POST", endpoint, body, &taskResp); err != nil {
		return nil, err
	}

	if taskResp.ID == "" {
		return nil, fmt.Errorf("runway did not return a task id")
	}

	return &Job{ID: taskResp.ID}, nil
}

// Poll checks the task status once.
func (p *RunwayProvider) Poll(ctx context.Context, job *Job) (*Result, error) {
	var status runwayStatusResponse
	if err := p.doJSON(ctx, "GET", p.baseURL+"/v1/tasks/"+job.ID, nil, &status); err != nil {
		return nil, err
	}

	switch status.Status {
	case "SUCCEEDED":
		if len(status.Output) == 0 {
			return &Result{Done: true, Err: "task succeeded with no output"}, nil
		}
		artifacts := make([]Artifact, 0, len(status.Output))
		for _, url := range status.Output {
			artifacts = append(artifacts, Artifact{URL: url, MIME: "video/mp4", Kind: KindVideo})
		}
		return &Result{Done: true, Artifacts: artifacts}, nil

	case "FAILED":
		failure := status.Failure
		if failure == "" {
			failure = "task failed without a reason"
		}
		return &Result{Done: true, Err: failure}, nil

	default: // PENDING, RUNNING, THROTTLED
		return &Result{Done: false}, nil
	}
}

func (p *RunwayProvider) doJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Runway-Version", "2024-11-06")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("runway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("runway error (status: %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func runwayRatio(ratio string) string {
	switch ratio {
	case "9:16":
		return "768:1280"
	case "16:9":
		return "1280:768"
	default:
		return "1280:768"
	}
}
