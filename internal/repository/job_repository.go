package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
)

// JobRepository defines the data-access methods for rewrite jobs and the
// append-only job↔link association.
type JobRepository interface {
	CreateJob(job *models.Job) error
	// UpdateJobStats finalizes a job's output size and link count once the
	// rewrite completes.
	UpdateJobStats(jobID uint, bytesOut, linkCount int) error
	GetJobByID(jobID uint) (*models.Job, error)
	GetRecentJobs(limit int) ([]models.Job, error)
	CreateJobLink(jobLink *models.JobLink) error
}

// GormJobRepository is the JobRepository implementation using GORM.
type GormJobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates and returns a new GormJobRepository.
func NewJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) CreateJob(job *models.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *GormJobRepository) UpdateJobStats(jobID uint, bytesOut, linkCount int) error {
	err := r.db.Model(&models.Job{}).Where("id = ?", jobID).
		Updates(map[string]interface{}{"bytes_out": bytesOut, "link_count": linkCount}).Error
	if err != nil {
		return fmt.Errorf("failed to update job %d stats: %w", jobID, err)
	}
	return nil
}

func (r *GormJobRepository) GetJobByID(jobID uint) (*models.Job, error) {
	var job models.Job
	if err := r.db.First(&job, jobID).Error; err != nil {
		return nil, fmt.Errorf("failed to get job %d: %w", jobID, err)
	}
	return &job, nil
}

func (r *GormJobRepository) GetRecentJobs(limit int) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve recent jobs: %w", err)
	}
	return jobs, nil
}

func (r *GormJobRepository) CreateJobLink(jobLink *models.JobLink) error {
	if err := r.db.Create(jobLink).Error; err != nil {
		return fmt.Errorf("failed to create job link: %w", err)
	}
	return nil
}
