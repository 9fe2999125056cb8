package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Template lifecycle states
const (
	TemplateStatusPublished = "published"
	TemplateStatusDraft     = "draft"
)

// Template is one catalog entry. Prompt is the confidential generation
// directive: it is excluded from JSON serialization and must only be read
// through the repository's GetDirective accessor on the generation path.
type Template struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	Tags        datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	DisplayURL  string         `gorm:"type:text" json:"display_url"`
	AspectRatio string         `gorm:"type:varchar(10);default:'1:1'" json:"aspect_ratio"`
	CreditCost  int            `gorm:"not null;default:1" json:"credit_cost"`
	ModelSlug   string         `gorm:"type:varchar(100)" json:"model_slug"`
	Prompt      string         `gorm:"type:text;not null" json:"-"`
	UsageCount  int64          `gorm:"not null;default:0" json:"usage_count"`
	LikesCount  int64          `gorm:"not null;default:0" json:"likes_count"`
	Status      string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Template) TableName() string {
	return "templates"
}

// BeforeCreate sets UUID before creating
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
