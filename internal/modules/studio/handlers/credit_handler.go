package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/services"
)

type CreditHandler struct {
	creditService *services.CreditService
}

func NewCreditHandler(creditService *services.CreditService) *CreditHandler {
	return &CreditHandler{
		creditService: creditService,
	}
}

// GetBalance handles GET /credits
func (h *CreditHandler) GetBalance(c *fiber.Ctx) error {
	userID, ok := userIDFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized: sign in required",
		})
	}

	balance, err := h.creditService.GetBalance(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load balance",
		})
	}

	return c.JSON(balance)
}

// GrantCreditsRequest is the admin top-up payload
type GrantCreditsRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// GrantCredits handles POST /admin/credits/grant
func (h *CreditHandler) GrantCredits(c *fiber.Ctx) error {
	var req GrantCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user_id",
		})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Amount must be positive",
		})
	}

	if err := h.creditService.Grant(userID, req.Amount, req.Reason); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to grant credits",
		})
	}

	return c.JSON(fiber.Map{"status": "granted", "amount": req.Amount})
}
