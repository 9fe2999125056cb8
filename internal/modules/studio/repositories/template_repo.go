package repositories

import (
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
	"gorm.io/gorm"
)

// TemplateRepo interface defines catalog operations. GetDirective is the
// only accessor for the confidential prompt and must be called from the
// generation pipeline only.
type TemplateRepo interface {
	GetByID(id string) (*models.Template, error)
	ListPublished(category string, limit int) ([]models.Template, error)
	GetDirective(id string) (string, error)
	IncrementUsage(id string) error
	IncrementLikes(id string) error
}

type templateRepo struct {
	db *gorm.DB
}

// NewTemplateRepo creates a new template repository
func NewTemplateRepo(db *gorm.DB) TemplateRepo {
	return &templateRepo{db: db}
}

// GetByID retrieves a template by ID
func (r *templateRepo) GetByID(id string) (*models.Template, error) {
	var template models.Template
	err := r.db.Where("id = ?", id).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// ListPublished retrieves published templates, optionally by category
func (r *templateRepo) ListPublished(category string, limit int) ([]models.Template, error) {
	var templates []models.Template
	query := r.db.Where("status = ?", models.TemplateStatusPublished).
		Order("usage_count DESC")

	if category != "" {
		query = query.Where("category = ?", category)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&templates).Error
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// GetDirective reads only the confidential prompt column.
func (r *templateRepo) GetDirective(id string) (string, error) {
	var row struct {
		Prompt string
	}
	err := r.db.Model(&models.Template{}).
		Select("prompt").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return "", err
	}
	if row.Prompt == "" {
		return "", gorm.ErrRecordNotFound
	}
	return row.Prompt, nil
}

// IncrementUsage bumps the usage counter with an atomic add
func (r *templateRepo) IncrementUsage(id string) error {
	return r.db.Model(&models.Template{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

// IncrementLikes bumps the likes counter with an atomic add. Only
// published templates can be liked; zero rows means not found.
func (r *templateRepo) IncrementLikes(id string) error {
	res := r.db.Model(&models.Template{}).
		Where("id = ? AND status = ?", id, models.TemplateStatusPublished).
		UpdateColumn("likes_count", gorm.Expr("likes_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
