package services

import (
	"log"
	"strings"

	apperrors "github.com/MalcolmCusack/zaymo-url-shortener/internal/errors"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
)

// maxFilenameLen bounds stored filenames.
const maxFilenameLen = 160

// defaultFilename is used when content was pasted rather than uploaded.
const defaultFilename = "pasted.html"

// Allocator is what the rewrite engine needs from the short-code allocation
// side. *LinkService satisfies it.
type Allocator interface {
	Allocate(originalURL string, ownerRef *string) (*models.Link, error)
}

// RewriteRequest carries one document-rewrite submission.
type RewriteRequest struct {
	HTML     string
	Filename string
	// RetryOriginal, when non-empty, switches to single-link retry mode:
	// allocation is restricted to exactly this URL, even if it no longer
	// appears in the document, so the caller can still observe the outcome.
	RetryOriginal string
	// JobID reuses an existing job (retry mode) instead of creating one.
	JobID     uint
	CreatedBy *string
}

// LinkResult is the per-URL outcome of one allocation: either a short URL or
// an error message, never both.
type LinkResult struct {
	Original string `json:"original"`
	ShortURL string `json:"short_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RewriteResult is what a completed rewrite returns. Partial success is a
// normal state: some Links entries may carry errors while others succeeded.
type RewriteResult struct {
	JobID      uint         `json:"job_id"`
	Filename   string       `json:"filename"`
	BytesIn    int          `json:"bytes_in"`
	BytesOut   int          `json:"bytes_out"`
	Saved      int          `json:"saved"`
	SizeStatus SizeStatus   `json:"size_status"`
	Links      []LinkResult `json:"links"`
	HTML       string       `json:"html"`
}

// RewriteService orchestrates scanner, classifier and allocator: it builds a
// substitution table from successful allocations, applies it across the
// document, and keeps the job record's byte accounting.
type RewriteService struct {
	allocator      Allocator
	jobRepo        repository.JobRepository
	shortDomain    string
	maxUploadBytes int64
}

// NewRewriteService creates and returns a new RewriteService. shortDomain
// must already be normalized (see config.NormalizeShortDomain).
func NewRewriteService(allocator Allocator, jobRepo repository.JobRepository, shortDomain string, maxUploadBytes int64) *RewriteService {
	return &RewriteService{
		allocator:      allocator,
		jobRepo:        jobRepo,
		shortDomain:    shortDomain,
		maxUploadBytes: maxUploadBytes,
	}
}

// ShortDomain returns the normalized short-link base this engine mints under.
func (s *RewriteService) ShortDomain() string {
	return s.shortDomain
}

// ShortURL builds the public short URL for a code.
func (s *RewriteService) ShortURL(code string) string {
	return s.shortDomain + "/r/" + code
}

// RecentJobs returns the most recently created rewrite jobs, newest first.
func (s *RewriteService) RecentJobs(limit int) ([]models.Job, error) {
	return s.jobRepo.GetRecentJobs(limit)
}

// Rewrite runs one document-rewrite operation end to end.
//
// Validation errors (empty document, oversized upload) abort before anything
// is attempted. A store failure while creating the job is fatal to the
// request. Per-URL allocation failures are not: they are reported in the
// result and never block other URLs. The job↔link association insert is
// best-effort and only logged on failure.
func (s *RewriteService) Rewrite(req RewriteRequest) (*RewriteResult, error) {
	if strings.TrimSpace(req.HTML) == "" {
		return nil, apperrors.ErrEmptyDocument
	}
	if s.maxUploadBytes > 0 && int64(len(req.HTML)) > s.maxUploadBytes {
		return nil, apperrors.ErrUploadTooLarge{MaxBytes: s.maxUploadBytes}
	}

	filename := req.Filename
	if filename == "" {
		filename = defaultFilename
	}
	if len(filename) > maxFilenameLen {
		filename = filename[:maxFilenameLen]
	}

	doc, err := ParseDocument(req.HTML)
	if err != nil {
		// goquery recovers from malformed markup; this only trips on
		// reader-level failures, which a string reader cannot produce.
		return nil, err
	}

	candidates := CollectCandidates(doc, s.shortDomain)

	// In retry mode the candidate set is exactly the one URL being retried,
	// present in the document or not.
	targets := candidates
	if req.RetryOriginal != "" {
		targets = []string{req.RetryOriginal}
	}

	bytesIn := len(req.HTML)

	jobID := req.JobID
	if jobID == 0 {
		job := &models.Job{
			Filename:  filename,
			BytesIn:   bytesIn,
			BytesOut:  0,
			LinkCount: len(targets),
			CreatedBy: req.CreatedBy,
		}
		if err := s.jobRepo.CreateJob(job); err != nil {
			return nil, err
		}
		jobID = job.ID
	}

	// One allocation per unique URL; the substitution table holds only the
	// successes, keyed by URL so every occurrence maps to the same code.
	table := make(map[string]string, len(targets))
	results := make([]LinkResult, 0, len(targets))
	for _, original := range targets {
		link, err := s.allocator.Allocate(original, req.CreatedBy)
		if err != nil {
			results = append(results, LinkResult{Original: original, Error: err.Error()})
			continue
		}

		short := s.ShortURL(link.Code)
		table[original] = short
		results = append(results, LinkResult{Original: original, ShortURL: short})

		jl := &models.JobLink{JobID: jobID, LinkCode: link.Code, Original: original}
		if err := s.jobRepo.CreateJobLink(jl); err != nil {
			log.Printf("WARNING: job %d link association for %s not recorded: %v", jobID, link.Code, err)
		}
	}

	ApplySubstitutions(doc, table)

	outHTML, err := doc.Html()
	if err != nil {
		return nil, err
	}
	bytesOut := len(outHTML)

	if err := s.jobRepo.UpdateJobStats(jobID, bytesOut, len(table)); err != nil {
		log.Printf("WARNING: job %d stats not updated: %v", jobID, err)
	}

	return &RewriteResult{
		JobID:      jobID,
		Filename:   filename,
		BytesIn:    bytesIn,
		BytesOut:   bytesOut,
		Saved:      bytesIn - bytesOut,
		SizeStatus: ClassifySize(bytesOut),
		Links:      results,
		HTML:       outHTML,
	}, nil
}
