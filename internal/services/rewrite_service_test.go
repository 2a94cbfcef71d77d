package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	apperrors "github.com/MalcolmCusack/zaymo-url-shortener/internal/errors"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
)

const testShortDomain = "https://s.example"
const testUploadCap = 5 * 1024 * 1024

// fakeAllocator hands out deterministic codes, failing for URLs listed in
// failFor, and records every allocation request.
type fakeAllocator struct {
	next    int
	failFor map[string]error
	calls   []string
}

func (a *fakeAllocator) Allocate(original string, ownerRef *string) (*models.Link, error) {
	a.calls = append(a.calls, original)
	if err, ok := a.failFor[original]; ok {
		return nil, err
	}
	a.next++
	return &models.Link{
		Code:     fmt.Sprintf("code%04d", a.next),
		Original: original,
	}, nil
}

// fakeJobRepo is an in-memory JobRepository.
type fakeJobRepo struct {
	jobs         map[uint]*models.Job
	nextJobID    uint
	jobLinks     []models.JobLink
	createJobErr error
	jobLinkErr   error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uint]*models.Job)}
}

func (r *fakeJobRepo) CreateJob(job *models.Job) error {
	if r.createJobErr != nil {
		return r.createJobErr
	}
	r.nextJobID++
	job.ID = r.nextJobID
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeJobRepo) UpdateJobStats(jobID uint, bytesOut, linkCount int) error {
	job, ok := r.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %d not found", jobID)
	}
	job.BytesOut = bytesOut
	job.LinkCount = linkCount
	return nil
}

func (r *fakeJobRepo) GetJobByID(jobID uint) (*models.Job, error) {
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %d not found", jobID)
	}
	return job, nil
}

func (r *fakeJobRepo) GetRecentJobs(limit int) ([]models.Job, error) {
	var jobs []models.Job
	for _, j := range r.jobs {
		jobs = append(jobs, *j)
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *fakeJobRepo) CreateJobLink(jobLink *models.JobLink) error {
	if r.jobLinkErr != nil {
		return r.jobLinkErr
	}
	r.jobLinks = append(r.jobLinks, *jobLink)
	return nil
}

func newTestRewriteService() (*RewriteService, *fakeAllocator, *fakeJobRepo) {
	alloc := &fakeAllocator{failFor: make(map[string]error)}
	jobs := newFakeJobRepo()
	return NewRewriteService(alloc, jobs, testShortDomain, testUploadCap), alloc, jobs
}

func TestRewriteBasicAnchor(t *testing.T) {
	svc, alloc, jobs := newTestRewriteService()

	result, err := svc.Rewrite(RewriteRequest{
		HTML:     `<html><body><a href="https://example.com/x">go</a></body></html>`,
		Filename: "campaign.html",
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	shortRe := regexp.MustCompile(`href="` + regexp.QuoteMeta(testShortDomain) + `/r/[0-9A-Za-z]{8}"`)
	if !shortRe.MatchString(result.HTML) {
		t.Errorf("output anchor not rewritten to a short link:\n%s", result.HTML)
	}
	if len(alloc.calls) != 1 || alloc.calls[0] != "https://example.com/x" {
		t.Errorf("allocator calls = %v, want [https://example.com/x]", alloc.calls)
	}
	if len(result.Links) != 1 {
		t.Fatalf("got %d link results, want 1", len(result.Links))
	}
	lr := result.Links[0]
	if lr.Original != "https://example.com/x" || lr.Error != "" {
		t.Errorf("unexpected link result %+v", lr)
	}
	if !strings.HasPrefix(lr.ShortURL, testShortDomain+"/r/") {
		t.Errorf("short URL %q lacks the redirect prefix", lr.ShortURL)
	}

	if result.BytesIn == 0 || result.BytesOut == 0 {
		t.Errorf("byte accounting missing: in=%d out=%d", result.BytesIn, result.BytesOut)
	}
	if result.Saved != result.BytesIn-result.BytesOut {
		t.Errorf("saved = %d, want bytesIn-bytesOut = %d", result.Saved, result.BytesIn-result.BytesOut)
	}
	if result.SizeStatus != SizeOK {
		t.Errorf("size status = %q, want ok", result.SizeStatus)
	}

	job, err := jobs.GetJobByID(result.JobID)
	if err != nil {
		t.Fatalf("job not created: %v", err)
	}
	if job.BytesOut != result.BytesOut {
		t.Errorf("job bytes_out = %d, want %d", job.BytesOut, result.BytesOut)
	}
	if job.LinkCount != 1 {
		t.Errorf("job link_count = %d, want 1", job.LinkCount)
	}
	if len(jobs.jobLinks) != 1 {
		t.Errorf("got %d job-link rows, want 1", len(jobs.jobLinks))
	}
}

func TestRewriteTemplateTokenUntouched(t *testing.T) {
	svc, alloc, _ := newTestRewriteService()

	result, err := svc.Rewrite(RewriteRequest{
		HTML: `<html><body><a href="{{unsubscribe}}">unsub</a></body></html>`,
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if !strings.Contains(result.HTML, `href="{{unsubscribe}}"`) {
		t.Errorf("template-token href was modified:\n%s", result.HTML)
	}
	if len(alloc.calls) != 0 {
		t.Errorf("allocator called for an ineligible URL: %v", alloc.calls)
	}
}

func TestRewriteIneligibleOccurrencesUnchanged(t *testing.T) {
	svc, _, _ := newTestRewriteService()

	html := `<html><body>` +
		`<a href="mailto:hi@example.com">mail</a>` +
		`<a href="#top">top</a>` +
		`<a href="https://s.example/r/alreadyok">short</a>` +
		`<a href="https://example.com/x">go</a>` +
		`</body></html>`

	result, err := svc.Rewrite(RewriteRequest{HTML: html})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	for _, kept := range []string{
		`href="mailto:hi@example.com"`,
		`href="#top"`,
		`href="https://s.example/r/alreadyok"`,
	} {
		if !strings.Contains(result.HTML, kept) {
			t.Errorf("ineligible occurrence %s changed:\n%s", kept, result.HTML)
		}
	}
	if strings.Contains(result.HTML, `href="https://example.com/x"`) {
		t.Errorf("eligible URL not rewritten:\n%s", result.HTML)
	}
}

func TestRewriteSameURLSharesOneCode(t *testing.T) {
	svc, alloc, _ := newTestRewriteService()

	html := `<html><body>` +
		`<a href="https://example.com/x">one</a>` +
		`<a href="https://example.com/x">two</a>` +
		`<div data-url="https://example.com/x">three</div>` +
		`</body></html>`

	result, err := svc.Rewrite(RewriteRequest{HTML: html})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if len(alloc.calls) != 1 {
		t.Fatalf("allocator called %d times, want 1 (substitution is keyed by URL)", len(alloc.calls))
	}
	short := result.Links[0].ShortURL
	if got := strings.Count(result.HTML, short); got != 3 {
		t.Errorf("short URL occurs %d times, want 3:\n%s", got, result.HTML)
	}
}

func TestRewritePartialFailure(t *testing.T) {
	svc, alloc, _ := newTestRewriteService()
	alloc.failFor["https://example.com/bad"] = errors.New("insert rejected")

	html := `<html><body>` +
		`<a href="https://example.com/bad">bad</a>` +
		`<a href="https://example.com/good">good</a>` +
		`</body></html>`

	result, err := svc.Rewrite(RewriteRequest{HTML: html})
	if err != nil {
		t.Fatalf("Rewrite failed outright; partial success must be a normal return: %v", err)
	}
	if len(result.Links) != 2 {
		t.Fatalf("got %d link results, want 2", len(result.Links))
	}

	byOriginal := make(map[string]LinkResult)
	for _, lr := range result.Links {
		byOriginal[lr.Original] = lr
	}
	bad := byOriginal["https://example.com/bad"]
	if bad.Error == "" || bad.ShortURL != "" {
		t.Errorf("failed URL result = %+v, want error only", bad)
	}
	good := byOriginal["https://example.com/good"]
	if good.Error != "" || good.ShortURL == "" {
		t.Errorf("succeeded URL result = %+v, want short URL only", good)
	}

	// the failed URL's occurrence stays byte-for-byte unchanged
	if !strings.Contains(result.HTML, `href="https://example.com/bad"`) {
		t.Errorf("failed URL occurrence was modified:\n%s", result.HTML)
	}
	if strings.Contains(result.HTML, `href="https://example.com/good"`) {
		t.Errorf("succeeded URL occurrence was not rewritten:\n%s", result.HTML)
	}
}

func TestRewriteRetryModeAbsentURL(t *testing.T) {
	svc, alloc, jobs := newTestRewriteService()

	// seed the job the retry refers to
	job := &models.Job{Filename: "campaign.html", BytesIn: 10}
	if err := jobs.CreateJob(job); err != nil {
		t.Fatalf("seeding job failed: %v", err)
	}

	result, err := svc.Rewrite(RewriteRequest{
		HTML:          `<html><body><a href="https://example.com/other">other</a></body></html>`,
		RetryOriginal: "https://example.com/y",
		JobID:         job.ID,
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	// allocation is attempted for the retried URL even though the document
	// no longer contains it
	if len(alloc.calls) != 1 || alloc.calls[0] != "https://example.com/y" {
		t.Errorf("allocator calls = %v, want [https://example.com/y]", alloc.calls)
	}
	if len(result.Links) != 1 || result.Links[0].Original != "https://example.com/y" {
		t.Fatalf("link results = %+v, want one record for the retried URL", result.Links)
	}
	if result.Links[0].ShortURL == "" {
		t.Errorf("retried URL did not allocate: %+v", result.Links[0])
	}
	if result.JobID != job.ID {
		t.Errorf("job ID = %d, want reused job %d", result.JobID, job.ID)
	}
	if len(jobs.jobs) != 1 {
		t.Errorf("retry created a new job; jobs = %d, want 1", len(jobs.jobs))
	}
	// the other URL present in the document is out of scope in retry mode
	if !strings.Contains(result.HTML, `href="https://example.com/other"`) {
		t.Errorf("retry mode rewrote a URL outside the retried one:\n%s", result.HTML)
	}
}

func TestRewriteValidation(t *testing.T) {
	svc, _, _ := newTestRewriteService()

	for _, html := range []string{"", "   \n\t  "} {
		if _, err := svc.Rewrite(RewriteRequest{HTML: html}); !errors.Is(err, apperrors.ErrEmptyDocument) {
			t.Errorf("Rewrite(%q) error = %v, want ErrEmptyDocument", html, err)
		}
	}
}

func TestRewriteUploadCap(t *testing.T) {
	alloc := &fakeAllocator{failFor: make(map[string]error)}
	svc := NewRewriteService(alloc, newFakeJobRepo(), testShortDomain, 64)

	big := "<html>" + strings.Repeat("x", 128) + "</html>"
	_, err := svc.Rewrite(RewriteRequest{HTML: big})
	var tooLarge apperrors.ErrUploadTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("error = %v, want ErrUploadTooLarge", err)
	}
}

func TestRewriteJobCreationFatal(t *testing.T) {
	svc, _, jobs := newTestRewriteService()
	jobs.createJobErr = errors.New("store unavailable")

	_, err := svc.Rewrite(RewriteRequest{
		HTML: `<html><body><a href="https://example.com/x">go</a></body></html>`,
	})
	if err == nil {
		t.Fatal("Rewrite succeeded with job creation failing; store unavailability is fatal")
	}
}

func TestRewriteJobLinkBestEffort(t *testing.T) {
	svc, _, jobs := newTestRewriteService()
	jobs.jobLinkErr = errors.New("association table unavailable")

	result, err := svc.Rewrite(RewriteRequest{
		HTML: `<html><body><a href="https://example.com/x">go</a></body></html>`,
	})
	if err != nil {
		t.Fatalf("Rewrite failed; job-link inserts are best-effort: %v", err)
	}
	if result.Links[0].ShortURL == "" {
		t.Errorf("allocation result lost: %+v", result.Links[0])
	}
}

func TestRewriteFilenameDefaults(t *testing.T) {
	svc, _, _ := newTestRewriteService()

	result, err := svc.Rewrite(RewriteRequest{HTML: "<html><body>hi</body></html>"})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if result.Filename != "pasted.html" {
		t.Errorf("filename = %q, want pasted.html", result.Filename)
	}

	long := strings.Repeat("n", 200) + ".html"
	result, err = svc.Rewrite(RewriteRequest{HTML: "<html><body>hi</body></html>", Filename: long})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if len(result.Filename) != 160 {
		t.Errorf("filename length = %d, want truncated to 160", len(result.Filename))
	}
}
