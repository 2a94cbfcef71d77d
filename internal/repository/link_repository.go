package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "github.com/MalcolmCusack/zaymo-url-shortener/internal/errors"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
)

// LinkRepository defines the data-access methods for links.
type LinkRepository interface {
	// CreateLink inserts a new link. The code column is the primary key, so
	// a colliding code makes the insert fail atomically at the store; there
	// is deliberately no exists-then-insert pre-check (race window).
	CreateLink(link *models.Link) error
	GetLinkByCode(code string) (*models.Link, error)
	// ListLinks returns links newest first, paginated, plus the total count.
	ListLinks(offset, limit int) ([]models.Link, int64, error)
	GetRecentLinks(limit int) ([]models.Link, error)
	CountClicksByCode(code string) (int64, error)
}

// GormLinkRepository is the LinkRepository implementation using GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates and returns a new GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

func (r *GormLinkRepository) CreateLink(link *models.Link) error {
	if err := r.db.Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("code %q already taken: %w", link.Code, err)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

func (r *GormLinkRepository) GetLinkByCode(code string) (*models.Link, error) {
	var link models.Link
	if err := r.db.Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCodeNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *GormLinkRepository) ListLinks(offset, limit int) ([]models.Link, int64, error) {
	var total int64
	if err := r.db.Model(&models.Link{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count links: %w", err)
	}
	var links []models.Link
	if err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&links).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list links: %w", err)
	}
	return links, total, nil
}

func (r *GormLinkRepository) GetRecentLinks(limit int) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve recent links: %w", err)
	}
	return links, nil
}

// CountClicksByCode counts the total number of clicks for a given code.
func (r *GormLinkRepository) CountClicksByCode(code string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Click{}).Where("link_code = ?", code).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clicks for code %s: %w", code, err)
	}
	return count, nil
}
