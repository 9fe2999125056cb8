package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserBalance tracks a user's spendable credits and cumulative usage.
// Never written directly: all mutation goes through the balance
// repository's atomic debit/credit operations.
type UserBalance struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Credits         int       `gorm:"not null;default:0" json:"credits"`
	CreditsUsed     int       `gorm:"not null;default:0" json:"credits_used"`
	GenerationCount int64     `gorm:"not null;default:0" json:"generation_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationship
	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (UserBalance) TableName() string {
	return "user_balances"
}

// BeforeCreate sets UUID before creating
func (b *UserBalance) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Credit transaction types
const (
	TxnDebit  = "debit"
	TxnGrant  = "grant"
	TxnRefund = "refund"
)

// CreditTransaction is one append-only ledger row per balance mutation.
type CreditTransaction struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         string     `gorm:"type:varchar(20);not null" json:"type"`
	Amount       int        `gorm:"not null" json:"amount"`
	Reason       string     `gorm:"type:varchar(255)" json:"reason,omitempty"`
	GenerationID *uuid.UUID `gorm:"type:uuid" json:"generation_id,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// BeforeCreate sets UUID before creating
func (ct *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	return nil
}
