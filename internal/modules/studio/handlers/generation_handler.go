package handlers

import (
	"encoding/base64"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pixelmuse/pixelmuse-backend/internal/core/provider"
	"github.com/pixelmuse/pixelmuse-backend/internal/core/router"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/repositories"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/services"
)

type GenerationHandler struct {
	generationService *services.GenerationService
	generationRepo    repositories.GenerationRepo
}

func NewGenerationHandler(generationService *services.GenerationService, generationRepo repositories.GenerationRepo) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		generationRepo:    generationRepo,
	}
}

// GenerateTemplateRequest is the body for template generation
type GenerateTemplateRequest struct {
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Model       string `json:"model,omitempty"`
	Style       string `json:"style,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// GenerateToolRequest is the body for tool generation
type GenerateToolRequest struct {
	Prompt      string `json:"prompt,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Count       int    `json:"count,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	Scene       string `json:"scene,omitempty"`
	LogoStyle   string `json:"logo_style,omitempty"`
	Content     string `json:"content,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Slogan      string `json:"slogan,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageMIME   string `json:"image_mime,omitempty"`
}

// GenerateFromTemplate handles POST /generations/template/:id
func (h *GenerationHandler) GenerateFromTemplate(c *fiber.Ctx) error {
	userID, ok := userIDFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized: sign in required",
		})
	}

	var req GenerateTemplateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	rec, genErr := h.generationService.GenerateFromTemplate(c.Context(), userID, c.Params("id"), &services.TemplateGenerationRequest{
		AspectRatio: req.AspectRatio,
		Model:       req.Model,
		Style:       req.Style,
		Count:       req.Count,
	})
	if genErr != nil {
		return h.renderError(c, genErr)
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}

// GenerateWithTool handles POST /generations/tool/:type
func (h *GenerationHandler) GenerateWithTool(c *fiber.Ctx) error {
	userID, ok := userIDFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized: sign in required",
		})
	}

	var req GenerateToolRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid image data",
			})
		}
		image = decoded
	}

	toolReq := &router.ToolRequest{
		Prompt:      req.Prompt,
		Image:       image,
		ImageMIME:   req.ImageMIME,
		AspectRatio: req.AspectRatio,
		Count:       req.Count,
		Duration:    req.Duration,
		Scene:       router.ProductScene(req.Scene),
		LogoStyle:   router.LogoStyle(req.LogoStyle),
		Content:     req.Content,
		Brand:       req.Brand,
		Slogan:      req.Slogan,
	}

	rec, genErr := h.generationService.GenerateWithTool(c.Context(), userID, router.ToolType(c.Params("type")), toolReq)
	if genErr != nil {
		return h.renderError(c, genErr)
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}

// ListGenerations handles GET /generations
func (h *GenerationHandler) ListGenerations(c *fiber.Ctx) error {
	userID, ok := userIDFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized: sign in required",
		})
	}

	generations, err := h.generationRepo.GetByUserID(userID.String(), 100)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load generations",
		})
	}

	return c.JSON(fiber.Map{
		"generations": generations,
		"count":       len(generations),
	})
}

// GetGeneration handles GET /generations/:id
func (h *GenerationHandler) GetGeneration(c *fiber.Ctx) error {
	userID, ok := userIDFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized: sign in required",
		})
	}

	rec, repoErr := h.generationRepo.GetByID(c.Params("id"))
	if repoErr != nil || rec.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	return c.JSON(rec)
}

// renderError maps pipeline errors to HTTP responses. Post-debit failures
// keep the detailed cause on the record; the user sees a generic message.
func (h *GenerationHandler) renderError(c *fiber.Ctx, err error) error {
	var insufficient *services.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "Insufficient credits",
			"need":  insufficient.Need,
			"have":  insufficient.Have,
		})

	case errors.Is(err, services.ErrUnknownTemplate), errors.Is(err, router.ErrUnknownTool):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found, please try again",
		})

	case errors.Is(err, provider.ErrPollTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error": "Generation failed, please try again",
		})

	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Generation failed, please try again",
		})
	}
}

func userIDFromCtx(c *fiber.Ctx) (uuid.UUID, bool) {
	userIDStr, ok := c.Locals("userID").(string)
	if !ok || userIDStr == "" {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}
