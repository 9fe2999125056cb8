package repositories

import (
	"github.com/google/uuid"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
	"gorm.io/gorm"
)

// BalanceRepo interface defines the credit ledger operations. TryDebit is
// the single safety net against concurrent spends: it must stay a guarded
// atomic decrement, never a read-then-write pair.
type BalanceRepo interface {
	GetByUserID(userID uuid.UUID) (*models.UserBalance, error)
	CreateForUser(userID uuid.UUID, initialCredits int) error
	TryDebit(userID uuid.UUID, amount int, generationID *uuid.UUID, reason string) (bool, error)
	Grant(userID uuid.UUID, amount int, reason string) error
	Refund(userID uuid.UUID, amount int, generationID *uuid.UUID) error
	IncrementGenerationCount(userID uuid.UUID) error
}

type balanceRepo struct {
	db *gorm.DB
}

// NewBalanceRepo creates a new balance repository
func NewBalanceRepo(db *gorm.DB) BalanceRepo {
	return &balanceRepo{db: db}
}

// GetByUserID retrieves a user's balance
func (r *balanceRepo) GetByUserID(userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	err := r.db.Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// CreateForUser creates the balance row with a starting grant
func (r *balanceRepo) CreateForUser(userID uuid.UUID, initialCredits int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		balance := &models.UserBalance{
			UserID:  userID,
			Credits: initialCredits,
		}
		if err := tx.Create(balance).Error; err != nil {
			return err
		}
		if initialCredits > 0 {
			return tx.Create(&models.CreditTransaction{
				UserID: userID,
				Type:   models.TxnGrant,
				Amount: initialCredits,
				Reason: "signup grant",
			}).Error
		}
		return nil
	})
}

// TryDebit debits amount if and only if the balance covers it. The guard
// lives in the WHERE clause so two concurrent debits cannot both pass on
// the same credits; RowsAffected tells whether this one won.
func (r *balanceRepo) TryDebit(userID uuid.UUID, amount int, generationID *uuid.UUID, reason string) (bool, error) {
	debited := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserBalance{}).
			Where("user_id = ? AND credits >= ?", userID, amount).
			Updates(map[string]interface{}{
				"credits":      gorm.Expr("credits - ?", amount),
				"credits_used": gorm.Expr("credits_used + ?", amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // insufficient credits, fail closed
		}
		debited = true

		return tx.Create(&models.CreditTransaction{
			UserID:       userID,
			Type:         models.TxnDebit,
			Amount:       amount,
			Reason:       reason,
			GenerationID: generationID,
		}).Error
	})
	return debited, err
}

// Grant adds credits (purchases, admin top-ups)
func (r *balanceRepo) Grant(userID uuid.UUID, amount int, reason string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserBalance{}).
			Where("user_id = ?", userID).
			UpdateColumn("credits", gorm.Expr("credits + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Create(&models.CreditTransaction{
			UserID: userID,
			Type:   models.TxnGrant,
			Amount: amount,
			Reason: reason,
		}).Error
	})
}

// Refund credits back a charged amount for a failed generation
func (r *balanceRepo) Refund(userID uuid.UUID, amount int, generationID *uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserBalance{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"credits":      gorm.Expr("credits + ?", amount),
				"credits_used": gorm.Expr("credits_used - ?", amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Create(&models.CreditTransaction{
			UserID:       userID,
			Type:         models.TxnRefund,
			Amount:       amount,
			Reason:       "generation failed",
			GenerationID: generationID,
		}).Error
	})
}

// IncrementGenerationCount bumps the lifetime generation counter
func (r *balanceRepo) IncrementGenerationCount(userID uuid.UUID) error {
	return r.db.Model(&models.UserBalance{}).
		Where("user_id = ?", userID).
		UpdateColumn("generation_count", gorm.Expr("generation_count + 1")).Error
}
