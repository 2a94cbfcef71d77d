package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	apperrors "github.com/MalcolmCusack/zaymo-url-shortener/internal/errors"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
)

// charset defines the character set used for generating short codes.
// Uses alphanumeric characters (both cases) for a total of 62 possible
// characters: 62^8 combinations for the default 8-character codes, which
// makes an accidental collision astronomically unlikely.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxAllocAttempts bounds the insert-retry loop. The bound exists purely to
// tolerate pathological unlucky draws without retrying forever; at normal
// load a first draw virtually always succeeds.
const maxAllocAttempts = 3

// LinkService allocates short codes and resolves links. It acts as the
// intermediary between the HTTP handlers / rewrite engine and the repository.
type LinkService struct {
	linkRepo   repository.LinkRepository
	codeLength int
}

// NewLinkService creates and returns a new instance of LinkService.
func NewLinkService(linkRepo repository.LinkRepository, codeLength int) *LinkService {
	if codeLength <= 0 {
		codeLength = 8
	}
	return &LinkService{
		linkRepo:   linkRepo,
		codeLength: codeLength,
	}
}

// GenerateShortCode generates a cryptographically secure random short code
// of the service's configured length.
func (s *LinkService) GenerateShortCode() (string, error) {
	code := make([]byte, s.codeLength)
	for i := range code {
		// crypto/rand keeps the draw uniform over the charset
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// Allocate draws a random code and persists the code→URL record, retrying
// with a fresh code when the store rejects the insert. The store's
// uniqueness constraint on the code is the only synchronization point: two
// concurrent allocations racing on the same code cannot both succeed, and no
// exists-then-insert pre-check is performed (that would reopen the race).
// Retries within one call are strictly sequential; each retry observes the
// previous attempt's failure before drawing again. After maxAllocAttempts
// failures the last store error is returned, and the caller must treat it as
// a per-URL failure rather than a fatal one.
func (s *LinkService) Allocate(originalURL string, ownerRef *string) (*models.Link, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAllocAttempts; attempt++ {
		code, err := s.GenerateShortCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		link := &models.Link{
			Code:      code,
			Original:  originalURL,
			CreatedBy: ownerRef,
		}
		err = s.linkRepo.CreateLink(link)
		if err == nil {
			return link, nil
		}
		lastErr = err
		log.Printf("Allocation attempt %d/%d for %s failed: %v",
			attempt, maxAllocAttempts, originalURL, err)
	}

	return nil, apperrors.ErrAllocationFailed{
		Original: originalURL,
		Attempts: maxAllocAttempts,
		LastErr:  lastErr,
	}
}

// GetLinkByCode retrieves a link using its short code. Returns
// apperrors.ErrCodeNotFound when the code is unknown.
func (s *LinkService) GetLinkByCode(code string) (*models.Link, error) {
	return s.linkRepo.GetLinkByCode(code)
}

// LinkSummary is one row of the links listing: link metadata plus its
// aggregate click count.
type LinkSummary struct {
	Code       string    `json:"code"`
	Original   string    `json:"original"`
	CreatedAt  time.Time `json:"created_at"`
	ClickCount int64     `json:"click_count"`
}

// ListLinks returns one page of links, newest first, each with its click
// count, plus whether more pages follow. Pages are 1-based.
func (s *LinkService) ListLinks(page, pageSize int) ([]LinkSummary, bool, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	links, total, err := s.linkRepo.ListLinks(offset, pageSize)
	if err != nil {
		return nil, false, err
	}

	summaries := make([]LinkSummary, 0, len(links))
	for _, link := range links {
		count, err := s.linkRepo.CountClicksByCode(link.Code)
		if err != nil {
			return nil, false, err
		}
		summaries = append(summaries, LinkSummary{
			Code:       link.Code,
			Original:   link.Original,
			CreatedAt:  link.CreatedAt,
			ClickCount: count,
		})
	}

	hasMore := int64(offset+len(links)) < total
	return summaries, hasMore, nil
}

// GetLinkStats retrieves a link together with its total click count.
func (s *LinkService) GetLinkStats(code string) (*models.Link, int64, error) {
	link, err := s.linkRepo.GetLinkByCode(code)
	if err != nil {
		return nil, 0, err
	}
	totalClicks, err := s.linkRepo.CountClicksByCode(code)
	if err != nil {
		return nil, 0, err
	}
	return link, totalClicks, nil
}
