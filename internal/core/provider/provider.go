package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind of artifact a provider produces
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Request describes one unit of generation work, provider-agnostic.
type Request struct {
	Prompt      string
	Model       string
	AspectRatio string // e.g. "1:1", "16:9", "9:16"
	Count       int    // number of artifacts requested (default 1)
	Image       []byte // optional reference image for editing-style requests
	ImageMIME   string
	Duration    int // video length in seconds, ignored by image providers
}

// Artifact is one generated output. Synchronous providers return inline
// bytes; asynchronous providers return a URL hosted by the provider.
type Artifact struct {
	Data []byte
	URL  string
	MIME string
	Kind Kind
}

// Job is the correlation handle for a submitted generation. Synchronous
// providers set Resolved so the job needs no polling. TaskType carries
// the adapter's task category when status endpoints differ per type.
type Job struct {
	ID       string
	TaskType string
	Resolved *Result
}

// Result is one poll observation. Done=false means still running.
// A terminal failure carries the provider's raw error text in Err.
type Result struct {
	Done      bool
	Err       string
	Artifacts []Artifact
}

// Provider is the uniform contract over heterogeneous generation services.
// Submit never retries; Poll performs exactly one status check.
type Provider interface {
	Submit(ctx context.Context, req *Request) (*Job, error)
	Poll(ctx context.Context, job *Job) (*Result, error)
	Name() string
}

// PollConfig bounds the wait-then-check loop of Await.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    3 * time.Second,
		MaxAttempts: 60, // ~3 minutes
	}
}

// ErrPollTimeout is returned when a job never reaches a terminal state
// within the attempt ceiling.
var ErrPollTimeout = errors.New("provider polling timed out")

// Await drives one job to a terminal state: sequential wait-then-check,
// one in-flight poll at a time. Already-resolved jobs return immediately.
func Await(ctx context.Context, p Provider, job *Job, cfg PollConfig) ([]Artifact, error) {
	if job.Resolved != nil {
		return settle(p, job.Resolved)
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.Interval):
		}

		res, err := p.Poll(ctx, job)
		if err != nil {
			return nil, err
		}
		if res.Done {
			return settle(p, res)
		}
	}

	return nil, fmt.Errorf("%s job %s: %w after %d attempts", p.Name(), job.ID, ErrPollTimeout, cfg.MaxAttempts)
}

func settle(p Provider, res *Result) ([]Artifact, error) {
	if res.Err != "" {
		return nil, fmt.Errorf("%s job failed: %s", p.Name(), res.Err)
	}
	return res.Artifacts, nil
}

// ProviderType untuk factory
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderRunway ProviderType = "runway"
	ProviderKling  ProviderType = "kling"
)

// ProviderConfig untuk create provider
type ProviderConfig struct {
	Type ProviderType

	// API Keys
	OpenAIKey string
	GeminiKey string
	RunwayKey string
	KlingKey  string

	Model string
	Poll  PollConfig
}

// NewProvider factory untuk create generation provider
func NewProvider(cfg *ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required")
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.Model), nil

	case ProviderGemini:
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required")
		}
		return NewGeminiProvider(cfg.GeminiKey, cfg.Model), nil

	case ProviderRunway:
		if cfg.RunwayKey == "" {
			return nil, fmt.Errorf("RUNWAY_API_KEY is required")
		}
		return NewRunwayProvider(cfg.RunwayKey, cfg.Model), nil

	case ProviderKling:
		if cfg.KlingKey == "" {
			return nil, fmt.Errorf("KLING_API_KEY is required")
		}
		return NewKlingProvider(cfg.KlingKey, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unknown generation provider type: %s", cfg.Type)
	}
}
