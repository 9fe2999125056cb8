package router

import (
	"context"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/pixelmuse/pixelmuse-backend/internal/core/provider"
)

// ErrUnknownTool is returned when a tool type has no configuration entry.
var ErrUnknownTool = errors.New("unknown tool")

// Router translates abstract generation requests into concrete provider
// invocations. It holds no credit or persistence logic; that lives in the
// generation service.
type Router struct {
	cfg       *Config
	providers map[provider.ProviderType]provider.Provider
	poll      provider.PollConfig
}

func New(cfg *Config, providers map[provider.ProviderType]provider.Provider, poll provider.PollConfig) *Router {
	return &Router{
		cfg:       cfg,
		providers: providers,
		poll:      poll,
	}
}

// ResolveTool looks up the static tool configuration.
func (r *Router) ResolveTool(tool ToolType) (ToolConfig, error) {
	tc, ok := r.cfg.Tools[tool]
	if !ok {
		return ToolConfig{}, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
	return tc, nil
}

// TemplateOptions are the caller-chosen knobs for a template generation.
// The directive itself never comes from the caller.
type TemplateOptions struct {
	AspectRatio string
	Model       string
	Style       string
	Count       int
}

// GenerateFromTemplate merges the confidential directive with the chosen
// style and dispatches. An unrecognized style key leaves the directive
// unmodified. With no model the default template provider handles the
// request; an explicit model routes to the editing provider.
func (r *Router) GenerateFromTemplate(ctx context.Context, directive string, opts TemplateOptions) ([]provider.Artifact, error) {
	prompt := directive
	model := opts.Model

	if opts.Style != "" {
		if style, ok := r.cfg.Styles[opts.Style]; ok {
			prompt = prompt + ", " + style.Suffix
			if style.Model != "" {
				model = style.Model
			}
		}
	}

	ptype := r.cfg.DefaultTemplateProvider
	if model != "" {
		ptype = r.cfg.EditingProvider
	}

	return r.dispatch(ctx, ptype, &provider.Request{
		Prompt:      prompt,
		Model:       model,
		AspectRatio: opts.AspectRatio,
		Count:       opts.Count,
	})
}

// ToolRequest carries the user-parameterized inputs for tool generation.
type ToolRequest struct {
	Prompt      string
	Image       []byte
	ImageMIME   string
	AspectRatio string
	Count       int
	Duration    int
	Scene       ProductScene
	LogoStyle   LogoStyle
	Content     string // QR payload
	Brand       string
	Slogan      string
}

// RunTool builds the final directive for a tool and dispatches it to the
// tool's configured provider.
func (r *Router) RunTool(ctx context.Context, tool ToolType, req *ToolRequest) ([]provider.Artifact, error) {
	tc, err := r.ResolveTool(tool)
	if err != nil {
		return nil, err
	}

	switch tool {
	case ToolGenerateImage:
		return r.GenerateImage(ctx, tc, req)
	case ToolRemoveBackground:
		return r.RemoveBackground(ctx, tc, req)
	case ToolProductPhoto:
		return r.GenerateProductPhoto(ctx, tc, req)
	case ToolLogo:
		return r.GenerateLogo(ctx, tc, req)
	case ToolQRArt:
		return r.GenerateQRCode(ctx, tc, req)
	case ToolFaceSwap:
		return r.dispatch(ctx, tc.Provider, &provider.Request{
			Prompt:    "Swap the face in this photo with the described face, keeping lighting and skin tone consistent: " + req.Prompt,
			Model:     tc.Model,
			Image:     req.Image,
			ImageMIME: req.ImageMIME,
		})
	case ToolUpscale:
		return r.dispatch(ctx, tc.Provider, &provider.Request{
			Prompt:    "Upscale this image to 4x resolution, sharpening details without altering content.",
			Model:     tc.Model,
			Image:     req.Image,
			ImageMIME: req.ImageMIME,
		})
	case ToolTextToVideo, ToolImageToVideo:
		return r.dispatch(ctx, tc.Provider, &provider.Request{
			Prompt:      req.Prompt,
			Model:       tc.Model,
			AspectRatio: req.AspectRatio,
			Image:       req.Image,
			ImageMIME:   req.ImageMIME,
			Duration:    req.Duration,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
}

// GenerateImage dispatches a free-form user prompt.
func (r *Router) GenerateImage(ctx context.Context, tc ToolConfig, req *ToolRequest) ([]provider.Artifact, error) {
	return r.dispatch(ctx, tc.Provider, &provider.Request{
		Prompt:      req.Prompt,
		Model:       tc.Model,
		AspectRatio: req.AspectRatio,
		Count:       req.Count,
	})
}

// RemoveBackground sends the uploaded image with a fixed edit instruction.
func (r *Router) RemoveBackground(ctx context.Context, tc ToolConfig, req *ToolRequest) ([]provider.Artifact, error) {
	return r.dispatch(ctx, tc.Provider, &provider.Request{
		Prompt:    "Remove the background from this image completely. Output the subject on a plain transparent background, keeping edges clean.",
		Model:     tc.Model,
		Image:     req.Image,
		ImageMIME: req.ImageMIME,
	})
}

// GenerateProductPhoto places the uploaded product into a scene chosen
// from a fixed set of prompt fragments.
func (r *Router) GenerateProductPhoto(ctx context.Context, tc ToolConfig, req *ToolRequest) ([]provider.Artifact, error) {
	scene, ok := productScenePrompts[req.Scene]
	if !ok {
		scene = productScenePrompts[SceneStudio]
	}
	prompt := fmt.Sprintf("Professional product photography: place the product from this image %s. Keep the product itself unchanged.", scene)

	return r.dispatch(ctx, tc.Provider, &provider.Request{
		Prompt:    prompt,
		Model:     tc.Model,
		Image:     req.Image,
		ImageMIME: req.ImageMIME,
	})
}

// GenerateLogo builds a fixed-template logo prompt from the brand fields.
func (r *Router) GenerateLogo(ctx context.Context, tc ToolConfig, req *ToolRequest) ([]provider.Artifact, error) {
	stylePrompt, ok := logoStylePrompts[req.LogoStyle]
	if !ok {
		stylePrompt = logoStylePrompts[LogoModern]
	}
	prompt := fmt.Sprintf("Logo design for brand %q", req.Brand)
	if req.Slogan != "" {
		prompt += fmt.Sprintf(" with slogan %q", req.Slogan)
	}
	prompt += ", " + stylePrompt + ", on a plain background"

	return r.dispatch(ctx, tc.Provider, &provider.Request{
		Prompt: prompt,
		Model:  tc.Model,
		Count:  req.Count,
	})
}

// GenerateQRCode renders the scannable QR layer locally, then has the
// editing provider stylize it. The QR structure stays intact because the
// rendered code is passed as the reference image.
func (r *Router) GenerateQRCode(ctx context.Context, tc ToolConfig, req *ToolRequest) ([]provider.Artifact, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("qr content is required")
	}

	png, err := qrcode.Encode(req.Content, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}

	prompt := "Turn this QR code into an artistic illustration while keeping every module of the code scannable."
	if req.Prompt != "" {
		prompt += " Theme: " + req.Prompt
	}

	return r.dispatch(ctx, tc.Provider, &provider.Request{
		Prompt:    prompt,
		Model:     tc.Model,
		Image:     png,
		ImageMIME: "image/png",
	})
}

func (r *Router) dispatch(ctx context.Context, ptype provider.ProviderType, req *provider.Request) ([]provider.Artifact, error) {
	p, ok := r.providers[ptype]
	if !ok {
		return nil, fmt.Errorf("provider %s is not configured", ptype)
	}

	job, err := p.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	return provider.Await(ctx, p, job, r.poll)
}
