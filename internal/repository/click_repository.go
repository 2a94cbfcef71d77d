package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
)

// ClickRepository defines the data-access methods for click events.
type ClickRepository interface {
	CreateClick(click *models.Click) error
	// ListClicksByCode returns every click for a code, oldest first
	// (the order the CSV export wants).
	ListClicksByCode(code string) ([]models.Click, error)
	// RecentClicksByCode returns up to limit clicks, newest first.
	RecentClicksByCode(code string, limit int) ([]models.Click, error)
	CountClicksByCode(code string) (int64, error)
}

// GormClickRepository is the ClickRepository implementation using GORM.
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates and returns a new GormClickRepository.
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

func (r *GormClickRepository) CreateClick(click *models.Click) error {
	if err := r.db.Create(click).Error; err != nil {
		return fmt.Errorf("failed to create click: %w", err)
	}
	return nil
}

func (r *GormClickRepository) ListClicksByCode(code string) ([]models.Click, error) {
	var clicks []models.Click
	if err := r.db.Where("link_code = ?", code).Order("timestamp ASC").Find(&clicks).Error; err != nil {
		return nil, fmt.Errorf("failed to list clicks for code %s: %w", code, err)
	}
	return clicks, nil
}

func (r *GormClickRepository) RecentClicksByCode(code string, limit int) ([]models.Click, error) {
	var clicks []models.Click
	if err := r.db.Where("link_code = ?", code).Order("timestamp DESC").Limit(limit).Find(&clicks).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent clicks for code %s: %w", code, err)
	}
	return clicks, nil
}

func (r *GormClickRepository) CountClicksByCode(code string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Click{}).Where("link_code = ?", code).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clicks for code %s: %w", code, err)
	}
	return count, nil
}
