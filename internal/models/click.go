package models

import "time"

// Click represents one recorded traversal of a short code, stored for
// analytics. The client address is never persisted raw: only a truncated
// one-way hash is kept (see IPHash).
type Click struct {
	// ID is the primary key with auto-increment functionality
	ID uint `gorm:"primaryKey"`

	// LinkCode references the Link that was resolved
	// - index: clicks are always queried per link
	LinkCode string `gorm:"size:16;index"`

	// Timestamp records the exact moment the redirect was served
	Timestamp time.Time

	// Referer stores the Referer header of the request, if any
	Referer string `gorm:"size:2048"`

	// UserAgent stores the browser/client information from the HTTP request
	// - size:255: limits the database column to 255 characters
	UserAgent string `gorm:"size:255"`

	// IPHash is the hex-encoded SHA-256 of the client address, truncated to
	// 32 characters. Empty when no client address was available.
	IPHash string `gorm:"size:32"`
}

// ClickEvent is the lightweight struct passed through the analytics channel
// between the redirect handler and the click workers. It carries only what
// is needed to create a Click record later.
type ClickEvent struct {
	LinkCode  string    // code of the link that was resolved
	Timestamp time.Time // when the click occurred
	Referer   string    // Referer header value, may be empty
	UserAgent string    // browser/client information
	IPHash    string    // hashed client address, may be empty
}
