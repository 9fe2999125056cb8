package repositories

import (
	"time"

	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
	"gorm.io/gorm"
)

// GenerationRepo interface defines generation record operations.
// Records are append/update only; the pipeline never deletes them.
type GenerationRepo interface {
	Create(generation *models.Generation) error
	Update(id string, fields map[string]interface{}) error
	GetByID(id string) (*models.Generation, error)
	GetByUserID(userID string, limit int) ([]models.Generation, error)
	FailStaleProcessing(olderThan time.Time, message string) (int64, error)
}

type generationRepo struct {
	db *gorm.DB
}

// NewGenerationRepo creates a new generation repository
func NewGenerationRepo(db *gorm.DB) GenerationRepo {
	return &generationRepo{db: db}
}

// Create inserts a new generation record
func (r *generationRepo) Create(generation *models.Generation) error {
	return r.db.Create(generation).Error
}

// Update applies a partial update to a generation record
func (r *generationRepo) Update(id string, fields map[string]interface{}) error {
	return r.db.Model(&models.Generation{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// GetByID retrieves a generation record by ID
func (r *generationRepo) GetByID(id string) (*models.Generation, error) {
	var generation models.Generation
	err := r.db.Where("id = ?", id).First(&generation).Error
	if err != nil {
		return nil, err
	}
	return &generation, nil
}

// GetByUserID retrieves a user's generation history, newest first
func (r *generationRepo) GetByUserID(userID string, limit int) ([]models.Generation, error) {
	var generations []models.Generation
	query := r.db.Where("user_id = ?", userID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&generations).Error
	if err != nil {
		return nil, err
	}

	return generations, nil
}

// FailStaleProcessing closes processing records abandoned by a dead
// process, marking them failed. Returns the number of rows closed.
func (r *generationRepo) FailStaleProcessing(olderThan time.Time, message string) (int64, error) {
	res := r.db.Model(&models.Generation{}).
		Where("status = ? AND updated_at < ?", models.GenerationStatusProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":        models.GenerationStatusFailed,
			"error_message": message,
		})
	return res.RowsAffected, res.Error
}
