package models

import "time"

// Job records one document-rewrite operation and its aggregate statistics.
// BytesOut and LinkCount are finalized once the rewrite completes; the row
// is never touched again after that.
type Job struct {
	ID        uint      `gorm:"primaryKey"`
	Filename  string    `gorm:"size:160"`
	BytesIn   int       `gorm:"not null"`
	BytesOut  int       `gorm:"not null"`
	LinkCount int       `gorm:"not null"`
	CreatedBy *string   `gorm:"size:64"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// JobLink associates a Link with the Job that produced it. The original URL
// is copied here for traceability even though Link already stores it.
// Rows are append-only and written best-effort.
type JobLink struct {
	ID        uint      `gorm:"primaryKey"`
	JobID     uint      `gorm:"index"`
	LinkCode  string    `gorm:"size:16;index"`
	Original  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
