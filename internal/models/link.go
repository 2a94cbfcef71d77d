package models

import "time"

// Link maps a short code to the original URL it stands for.
// The code is the primary key, so uniqueness is enforced by the store at
// insert time rather than by a pre-check.
type Link struct {
	Code      string    `gorm:"primaryKey;size:16"`
	Original  string    `gorm:"not null"`
	CreatedBy *string   `gorm:"size:64"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
