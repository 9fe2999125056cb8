package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/repositories"
)

// TemplateHandler serves the public catalog. Template JSON never carries
// the generation directive: the Prompt field is excluded at the model
// level and no handler here touches GetDirective.
type TemplateHandler struct {
	templateRepo repositories.TemplateRepo
}

func NewTemplateHandler(templateRepo repositories.TemplateRepo) *TemplateHandler {
	return &TemplateHandler{
		templateRepo: templateRepo,
	}
}

// ListTemplates handles GET /templates
func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	category := c.Query("category")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	templates, err := h.templateRepo.ListPublished(category, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load templates",
		})
	}

	return c.JSON(fiber.Map{
		"templates": templates,
		"count":     len(templates),
	})
}

// GetTemplate handles GET /templates/:id
func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	template, err := h.templateRepo.GetByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Template not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load template",
		})
	}
	if template.Status != models.TemplateStatusPublished {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	return c.JSON(template)
}

// LikeTemplate handles POST /templates/:id/like
func (h *TemplateHandler) LikeTemplate(c *fiber.Ctx) error {
	if err := h.templateRepo.IncrementLikes(c.Params("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Template not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to like template",
		})
	}

	return c.JSON(fiber.Map{"status": "liked"})
}
