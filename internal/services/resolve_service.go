package services

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
)

// ipHashLen is how many hex characters of the SHA-256 digest are kept.
const ipHashLen = 32

// ResolveService resolves short codes to their original URLs on the redirect
// hot path. Mappings are immutable once created, so resolved links are held
// in an in-memory cache; the TTL only bounds memory, not correctness.
type ResolveService struct {
	linkRepo repository.LinkRepository
	cache    *gocache.Cache
}

// NewResolveService creates and returns a new ResolveService.
func NewResolveService(linkRepo repository.LinkRepository) *ResolveService {
	return &ResolveService{
		linkRepo: linkRepo,
		cache:    gocache.New(time.Hour, 10*time.Minute),
	}
}

// Resolve looks a code up, preferring the cache. Unknown codes return
// apperrors.ErrCodeNotFound from the repository; negative results are not
// cached since a code absent now may be allocated a moment later.
func (s *ResolveService) Resolve(code string) (*models.Link, error) {
	if cached, ok := s.cache.Get(code); ok {
		return cached.(*models.Link), nil
	}
	link, err := s.linkRepo.GetLinkByCode(code)
	if err != nil {
		return nil, err
	}
	s.cache.Set(code, link, gocache.DefaultExpiration)
	return link, nil
}

// HashClientAddress one-way hashes a client address for storage. The raw
// value is discarded by the caller immediately after hashing; an empty
// address hashes to the empty string.
func HashClientAddress(addr string) string {
	if addr == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(sum[:])[:ipHashLen]
}
