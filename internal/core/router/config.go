package router

import (
	"github.com/pixelmuse/pixelmuse-backend/internal/core/provider"
)

// ToolType identifies one fixed-configuration generation tool.
type ToolType string

const (
	ToolGenerateImage    ToolType = "generate-image"
	ToolRemoveBackground ToolType = "remove-background"
	ToolProductPhoto     ToolType = "product-photo"
	ToolLogo             ToolType = "logo"
	ToolQRArt            ToolType = "qr-art"
	ToolFaceSwap         ToolType = "face-swap"
	ToolUpscale          ToolType = "upscale-4x"
	ToolTextToVideo      ToolType = "text-to-video"
	ToolImageToVideo     ToolType = "image-to-video"
)

// ToolConfig maps a tool to its provider, declared credit cost and model.
// Immutable at runtime.
type ToolConfig struct {
	Provider provider.ProviderType
	Cost     int
	Model    string
}

// Style adds a suffix to the template directive and may prefer a model.
type Style struct {
	Suffix string
	Model  string
}

// Config is the immutable routing configuration, built once at startup
// and injected so tests can substitute their own tables.
type Config struct {
	Tools  map[ToolType]ToolConfig
	Styles map[string]Style

	// Template dispatch defaults: no explicit model goes to the
	// synchronous image provider, an explicit model to the editing one.
	DefaultTemplateProvider provider.ProviderType
	EditingProvider         provider.ProviderType
}

// NewDefaultConfig returns the production routing tables.
func NewDefaultConfig() *Config {
	return &Config{
		Tools: map[ToolType]ToolConfig{
			ToolGenerateImage:    {Provider: provider.ProviderOpenAI, Cost: 1, Model: "dall-e-3"},
			ToolRemoveBackground: {Provider: provider.ProviderGemini, Cost: 1, Model: "gemini-2.5-flash-image"},
			ToolProductPhoto:     {Provider: provider.ProviderGemini, Cost: 2, Model: "gemini-2.5-flash-image"},
			ToolLogo:             {Provider: provider.ProviderOpenAI, Cost: 1, Model: "dall-e-3"},
			ToolQRArt:            {Provider: provider.ProviderGemini, Cost: 2, Model: "gemini-2.5-flash-image"},
			ToolFaceSwap:         {Provider: provider.ProviderGemini, Cost: 2, Model: "gemini-2.5-flash-image"},
			ToolUpscale:          {Provider: provider.ProviderGemini, Cost: 1, Model: "gemini-2.5-flash-image"},
			ToolTextToVideo:      {Provider: provider.ProviderRunway, Cost: 10, Model: "gen3a_turbo"},
			ToolImageToVideo:     {Provider: provider.ProviderKling, Cost: 10, Model: "kling-v1-6"},
		},
		Styles: map[string]Style{
			"anime":        {Suffix: "anime style, vibrant colors, clean line art"},
			"realistic":    {Suffix: "photorealistic, natural lighting, high detail"},
			"watercolor":   {Suffix: "watercolor painting, soft edges, paper texture"},
			"cyberpunk":    {Suffix: "cyberpunk aesthetic, neon lights, dark atmosphere"},
			"3d-render":    {Suffix: "3D render, octane, studio lighting", Model: "gemini-2.5-flash-image"},
			"ghibli":       {Suffix: "Studio Ghibli inspired, hand-drawn look, warm palette", Model: "gemini-2.5-flash-image"},
			"minimalist":   {Suffix: "minimalist, flat design, few colors"},
			"oil-painting": {Suffix: "oil painting, visible brush strokes, rich texture"},
		},
		DefaultTemplateProvider: provider.ProviderOpenAI,
		EditingProvider:         provider.ProviderGemini,
	}
}

// ProductScene selects a fixed scene prompt fragment for product photos.
type ProductScene string

const (
	SceneStudio  ProductScene = "studio"
	SceneOutdoor ProductScene = "outdoor"
	SceneKitchen ProductScene = "kitchen"
	SceneLuxury  ProductScene = "luxury"
)

var productScenePrompts = map[ProductScene]string{
	SceneStudio:  "on a clean white studio backdrop with soft shadows and professional lighting",
	SceneOutdoor: "on a natural outdoor table with greenery and morning light in the background",
	SceneKitchen: "on a modern kitchen counter with tasteful props and warm ambient light",
	SceneLuxury:  "on a dark marble surface with dramatic lighting and an elegant mood",
}

// LogoStyle selects a fixed style prompt fragment for logo generation.
type LogoStyle string

const (
	LogoMinimal LogoStyle = "minimal"
	LogoVintage LogoStyle = "vintage"
	LogoModern  LogoStyle = "modern"
	LogoPlayful LogoStyle = "playful"
)

var logoStylePrompts = map[LogoStyle]string{
	LogoMinimal: "minimal flat vector logo, simple geometric shapes, two colors",
	LogoVintage: "vintage badge logo, retro typography, distressed texture",
	LogoModern:  "modern gradient logo, sleek lines, tech feel",
	LogoPlayful: "playful mascot logo, rounded shapes, bright friendly colors",
}
