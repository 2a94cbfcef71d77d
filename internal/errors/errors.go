package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the link shortener application

// ErrCodeNotFound is returned when a short code doesn't exist in the database
var ErrCodeNotFound = errors.New("short code not found")

// ErrEmptyDocument is returned when a rewrite is requested with no HTML
var ErrEmptyDocument = errors.New("no HTML provided")

// ErrUploadTooLarge is returned when submitted content exceeds the size cap
type ErrUploadTooLarge struct {
	MaxBytes int64
}

func (e ErrUploadTooLarge) Error() string {
	return fmt.Sprintf("upload too large, max %d MiB", e.MaxBytes/(1024*1024))
}

// ErrAllocationFailed is returned when the allocator exhausts its attempts
// for one URL. It carries the last store error so the caller can surface it
// per URL without aborting the rest of the batch.
type ErrAllocationFailed struct {
	Original string
	Attempts int
	LastErr  error
}

func (e ErrAllocationFailed) Error() string {
	return fmt.Sprintf("failed to allocate short code for %s after %d attempts: %v",
		e.Original, e.Attempts, e.LastErr)
}

func (e ErrAllocationFailed) Unwrap() error { return e.LastErr }

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
