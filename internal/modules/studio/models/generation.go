package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generation statuses
const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

// Generation sources
const (
	GenerationSourceTemplate = "template"
	GenerationSourceTool     = "tool"
)

// Generation output types
const (
	OutputTypeImage = "image"
	OutputTypeVideo = "video"
)

// Generation is the durable record of one generation attempt, tracked
// from pending through processing to a terminal state. Records are
// created and updated by the pipeline, never deleted.
type Generation struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_generations_user" json:"user_id"`
	Source         string     `gorm:"type:varchar(20);not null" json:"source"` // 'template' or 'tool'
	TemplateID     *uuid.UUID `gorm:"type:uuid;index" json:"template_id,omitempty"`
	ToolType       string     `gorm:"type:varchar(50)" json:"tool_type,omitempty"`
	ModelSlug      string     `gorm:"type:varchar(100)" json:"model_slug"`
	AspectRatio    string     `gorm:"type:varchar(10)" json:"aspect_ratio"`
	CreditsCharged int        `gorm:"not null;default:0" json:"credits_charged"`
	ProviderCost   float64    `gorm:"type:decimal(10,4);default:0" json:"provider_cost"`
	OutputURL      string     `gorm:"type:text" json:"output_url,omitempty"`
	OutputType     string     `gorm:"type:varchar(10)" json:"output_type,omitempty"`
	DurationMs     int64      `gorm:"default:0" json:"duration_ms"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationship
	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (Generation) TableName() string {
	return "generations"
}

// BeforeCreate sets UUID before creating
func (g *Generation) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
