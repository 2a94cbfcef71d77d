package services

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
)

// AnalyticsService turns raw click records into the shapes the analytics
// surfaces need: bucketed histograms, recent-click listings, CSV exports.
type AnalyticsService struct {
	clickRepo repository.ClickRepository
	linkRepo  repository.LinkRepository
}

// NewAnalyticsService creates and returns a new AnalyticsService.
func NewAnalyticsService(clickRepo repository.ClickRepository, linkRepo repository.LinkRepository) *AnalyticsService {
	return &AnalyticsService{
		clickRepo: clickRepo,
		linkRepo:  linkRepo,
	}
}

// Histogram buckets event timestamps into bucketCount equal-width buckets
// spanning [minTime, maxTime] of the inputs, counts ascending by time. The
// output always has exactly bucketCount entries; empty input yields a flat
// zero sequence, and a single distinct timestamp lands everything in
// bucket 0.
func Histogram(times []time.Time, bucketCount int) []int {
	if bucketCount <= 0 {
		return nil
	}
	counts := make([]int, bucketCount)
	if len(times) == 0 {
		return counts
	}

	minT, maxT := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(minT) {
			minT = t
		}
		if t.After(maxT) {
			maxT = t
		}
	}

	// A degenerate span still divides cleanly: with span forced to at least
	// one unit, identical timestamps all map to index 0.
	span := maxT.Sub(minT).Milliseconds()
	if span < 1 {
		span = 1
	}

	for _, t := range times {
		idx := int(t.Sub(minT).Milliseconds() * int64(bucketCount-1) / span)
		if idx < 0 {
			idx = 0
		}
		if idx > bucketCount-1 {
			idx = bucketCount - 1
		}
		counts[idx]++
	}
	return counts
}

// ClickHistogram loads every click for a code and buckets it.
func (s *AnalyticsService) ClickHistogram(code string, bucketCount int) ([]int, error) {
	clicks, err := s.clickRepo.ListClicksByCode(code)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(clicks))
	for i, c := range clicks {
		times[i] = c.Timestamp
	}
	return Histogram(times, bucketCount), nil
}

// RecentClicks returns up to limit clicks for a code, newest first.
func (s *AnalyticsService) RecentClicks(code string, limit int) ([]models.Click, error) {
	return s.clickRepo.RecentClicksByCode(code, limit)
}

// ExportCSV renders every click for a code as CSV, oldest first. The header
// row is "ts,referer,ua"; fields containing commas, quotes or newlines are
// quoted with internal quotes doubled (encoding/csv semantics).
func (s *AnalyticsService) ExportCSV(code string) ([]byte, error) {
	clicks, err := s.clickRepo.ListClicksByCode(code)
	if err != nil {
		return nil, err
	}
	return renderClicksCSV(clicks)
}

func renderClicksCSV(clicks []models.Click) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"ts", "referer", "ua"}); err != nil {
		return nil, err
	}
	for _, c := range clicks {
		record := []string{c.Timestamp.UTC().Format(time.RFC3339), c.Referer, c.UserAgent}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
