package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// KlingProvider is the second asynchronous job-polling provider,
// structurally identical to Runway: submit, get a task id, poll.
type KlingProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewKlingProvider(apiKey string, model string) *KlingProvider {
	if model == "" {
		model = "kling-v1-6"
	}

	return &KlingProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.klingai.com",
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *KlingProvider) Name() string {
	return "Kling"
}

// Kling REST API request/response structures
type klingTaskRequest struct {
	ModelName   string `json:"model_name"`
	Prompt      string `json:"prompt"`
	Image       string `json:"image,omitempty"` // base64
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

type klingResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID        string `json:"task_id"`
		TaskStatus    string `json:"task_status"` // submitted, processing, succeed, failed
		TaskStatusMsg string `json:"task_status_msg,omitempty"`
		TaskResult    struct {
			Videos []struct {
				URL string `json:"url"`
			} `json:"videos,omitempty"`
		} `json:"task_result,omitempty"`
	} `json:"data"`
}

// Submit creates a video generation task and returns its handle.
func (p *KlingProvider) Submit(ctx context.Context, req *Request) (*Job, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	body := klingTaskRequest{
		ModelName:   model,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	}
	if req.Duration > 0 {
		body.Duration = strconv.Itoa(req.Duration)
	}

	taskType := "text2video"
	if len(req.Image) > 0 {
		taskType = "image2video"
		body.Image = base64.StdEncoding.EncodeToString(req.Image)
	}
	endpoint := p.baseURL + "/v1/videos/" + taskType

	var resp klingResponse
	if err := p.doJSON(ctx, "POST", endpoint, body, &resp); err != nil {
		return nil, err
	}

	if resp.Code != 0 {
		return nil, fmt.Errorf("kling rejected task (code: %d): %s", resp.Code, resp.Message)
	}
	if resp.Data.TaskID == "" {
		return nil, fmt.Errorf("kling did not return a task id")
	}

	return &Job{ID: resp.Data.TaskID, TaskType: taskType}, nil
}

// Poll checks the task status once. Kling status endpoints are per task
// type, so the path must match the endpoint the job was submitted to.
func (p *KlingProvider) Poll(ctx context.Context, job *Job) (*Result, error) {
	taskType := job.TaskType
	if taskType == "" {
		taskType = "text2video"
	}

	var resp klingResponse
	if err := p.doJSON(ctx, "GET", p.baseURL+"/v1/videos/"+taskType+"/"+job.ID, nil, &resp); err != nil {
		return nil, err
	}

	if resp.Code != 0 {
		return nil, fmt.Errorf("kling status error (code: %d): %s", resp.Code, resp.Message)
	}

	switch resp.Data.TaskStatus {
	case "succeed":
		videos := resp.Data.TaskResult.Videos
		if len(videos) == 0 {
			return &Result{Done: true, Err: "task succeeded with no output"}, nil
		}
		artifacts := make([]Artifact, 0, len(videos))
		for _, v := range videos {
			artifacts = append(artifacts, Artifact{URL: v.URL, MIME: "video/mp4", Kind: KindVideo})
		}
		return &Result{Done: true, Artifacts: artifacts}, nil

	case "failed":
		msg := resp.Data.TaskStatusMsg
		if msg == "" {
			msg = "task failed without a reason"
		}
		return &Result{Done: true, Err: msg}, nil

	default: // submitted, processing
		return &Result{Done: false}, nil
	}
}

func (p *KlingProvider) doJSON(ctx context.Context, method, url string, in, out interface{}) error {
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

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("kling request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("kling error (status: %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
