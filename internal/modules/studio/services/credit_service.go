package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/repositories"
)

// CreditService exposes balance reads and admin grants. Debits stay on
// the generation pipeline; nothing else may move credits down.
type CreditService struct {
	balanceRepo repositories.BalanceRepo
}

func NewCreditService(balanceRepo repositories.BalanceRepo) *CreditService {
	return &CreditService{balanceRepo: balanceRepo}
}

// GetBalance returns a user's current balance and counters.
func (s *CreditService) GetBalance(userID uuid.UUID) (*models.UserBalance, error) {
	return s.balanceRepo.GetByUserID(userID)
}

// Grant adds credits with a ledger row.
func (s *CreditService) Grant(userID uuid.UUID, amount int, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	if reason == "" {
		reason = "admin grant"
	}
	return s.balanceRepo.Grant(userID, amount, reason)
}
