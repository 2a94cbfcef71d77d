package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/MalcolmCusack/zaymo-url-shortener/internal/errors"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/services"
)

// listPageSize is how many links one listing page carries.
const listPageSize = 20

// recentJobsLimit is how many jobs the recent-jobs endpoint returns.
const recentJobsLimit = 5

// recentClicksLimit caps the clicks shown on the link detail page.
const recentClicksLimit = 100

// histogramBuckets is the fixed sparkline width on the analytics page.
const histogramBuckets = 30

// ClickEventsChannel is the global channel used to send click events.
// Redirects enqueue here without waiting; the worker pool drains it.
var ClickEventsChannel chan models.ClickEvent

// SetupRoutes configures all Gin routes and injects the service
// dependencies.
func SetupRoutes(router *gin.Engine,
	rewriteService *services.RewriteService,
	resolveService *services.ResolveService,
	linkService *services.LinkService,
	analyticsService *services.AnalyticsService,
	maxUploadBytes int64,
	bufferSize int,
) {
	if ClickEventsChannel == nil {
		ClickEventsChannel = make(chan models.ClickEvent, bufferSize)
	}

	router.GET("/health", HealthCheckHandler)

	api := router.Group("/api/v1")
	{
		api.POST("/jobs", CreateRewriteJobHandler(rewriteService, maxUploadBytes))
		api.GET("/jobs", RecentJobsHandler(rewriteService))
		api.GET("/links", ListLinksHandler(linkService))
		api.GET("/links/:code", LinkDetailHandler(linkService, analyticsService))
		api.GET("/links/:code/export", ExportClicksHandler(linkService, analyticsService))
		api.POST("/size-check", SizeCheckHandler(maxUploadBytes))
	}

	// Redirection route - where recipients land when they click a short link
	router.GET("/r/:code", RedirectHandler(resolveService))
}

// HealthCheckHandler handles the /health route to verify service status.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RewriteJobRequest is the JSON/form body for a rewrite submission. A
// multipart file field named "html" takes precedence over the pasted
// content. The retry fields switch to single-link retry mode.
type RewriteJobRequest struct {
	Pasted        string `json:"pasted" form:"pasted"`
	Filename      string `json:"filename" form:"filename"`
	RetryOriginal string `json:"retry_original" form:"retry_original"`
	CurrentHTML   string `json:"current_html" form:"current_html"`
	JobID         uint   `json:"job_id" form:"job_id"`
}

// CreateRewriteJobHandler handles one document-rewrite submission: uploaded
// HTML file, pasted HTML, or a single-link retry against a previous job's
// output.
func CreateRewriteJobHandler(rewriteService *services.RewriteService, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RewriteJobRequest
		if c.ContentType() == "application/json" {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		} else {
			if err := c.ShouldBind(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		}

		isRetry := req.RetryOriginal != ""

		html := req.Pasted
		filename := req.Filename
		if isRetry {
			// retry mode reuses the previous output and job
			html = req.CurrentHTML
		} else if file, err := c.FormFile("html"); err == nil && file.Size > 0 {
			// early guard before reading the upload into memory
			if file.Size > maxUploadBytes {
				c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.ErrUploadTooLarge{MaxBytes: maxUploadBytes}.Error()})
				return
			}
			f, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read upload: " + err.Error()})
				return
			}
			defer f.Close()
			content, err := io.ReadAll(f)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read upload: " + err.Error()})
				return
			}
			html = string(content)
			if filename == "" {
				filename = file.Filename
			}
		}

		result, err := rewriteService.Rewrite(services.RewriteRequest{
			HTML:          html,
			Filename:      filename,
			RetryOriginal: req.RetryOriginal,
			JobID:         req.JobID,
		})
		if err != nil {
			var tooLarge apperrors.ErrUploadTooLarge
			switch {
			case errors.Is(err, apperrors.ErrEmptyDocument):
				c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.ErrEmptyDocument.Error()})
			case errors.As(err, &tooLarge):
				c.JSON(http.StatusBadRequest, gin.H{"error": tooLarge.Error()})
			default:
				log.Printf("Error processing rewrite job: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process document"})
			}
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

// RecentJobsHandler returns the most recent rewrite jobs.
func RecentJobsHandler(rewriteService *services.RewriteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := rewriteService.RecentJobs(recentJobsLimit)
		if err != nil {
			log.Printf("Error retrieving recent jobs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

// RedirectHandler resolves a short code and redirects to the original URL.
// A ClickEvent is queued for asynchronous recording; the redirect response
// never waits on it and never fails because of it.
func RedirectHandler(resolveService *services.ResolveService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		link, err := resolveService.Resolve(code)
		if err != nil {
			if errors.Is(err, apperrors.ErrCodeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
				return
			}
			log.Printf("Error resolving code %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		// the raw client address is hashed here and discarded
		clickEvent := models.ClickEvent{
			LinkCode:  link.Code,
			Timestamp: time.Now(),
			Referer:   c.GetHeader("Referer"),
			UserAgent: c.GetHeader("User-Agent"),
			IPHash:    services.HashClientAddress(c.ClientIP()),
		}

		// Non-blocking send: a full buffer drops the event rather than
		// delaying the user's redirect.
		select {
		case ClickEventsChannel <- clickEvent:
		default:
			log.Printf("WARNING: ClickEventsChannel is full, dropping click event for %s", code)
		}

		// 302: the mapping is permanent but a user-facing shortener favors
		// not having clients cache the redirect.
		c.Redirect(http.StatusFound, link.Original)
	}
}

// ListLinksHandler returns one page of links with click counts.
func ListLinksHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}

		links, hasMore, err := linkService.ListLinks(page, listPageSize)
		if err != nil {
			log.Printf("Error listing links: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"links":     links,
			"page":      page,
			"page_size": listPageSize,
			"has_more":  hasMore,
		})
	}
}

// LinkDetailHandler returns a link's metadata, recent clicks, total click
// count, and the fixed-width histogram backing the sparkline.
func LinkDetailHandler(linkService *services.LinkService, analyticsService *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		link, totalClicks, err := linkService.GetLinkStats(code)
		if err != nil {
			if errors.Is(err, apperrors.ErrCodeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
				return
			}
			log.Printf("Error retrieving stats for %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		clicks, err := analyticsService.RecentClicks(code, recentClicksLimit)
		if err != nil {
			log.Printf("Error retrieving clicks for %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		histogram, err := analyticsService.ClickHistogram(code, histogramBuckets)
		if err != nil {
			log.Printf("Error computing histogram for %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"code":         link.Code,
			"original":     link.Original,
			"created_at":   link.CreatedAt.Format("2006-01-02 15:04:05"),
			"total_clicks": totalClicks,
			"clicks":       clicks,
			"histogram":    histogram,
		})
	}
}

// ExportClicksHandler streams a link's clicks as a CSV attachment.
func ExportClicksHandler(linkService *services.LinkService, analyticsService *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		if _, err := linkService.GetLinkByCode(code); err != nil {
			if errors.Is(err, apperrors.ErrCodeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
				return
			}
			log.Printf("Error retrieving link %s for export: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		csvBody, err := analyticsService.ExportCSV(code)
		if err != nil {
			log.Printf("Error exporting clicks for %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "link_"+code+"_clicks.csv"))
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "text/csv; charset=utf-8", csvBody)
	}
}

// SizeCheckRequest is the body for a pre-submission size check on raw
// pasted or uploaded content.
type SizeCheckRequest struct {
	Content string `json:"content" form:"content"`
}

// SizeCheckHandler classifies raw content against the clipping thresholds
// before any rewrite is attempted, so callers can warn the user early.
func SizeCheckHandler(maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SizeCheckRequest
		if c.ContentType() == "application/json" {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		} else {
			if err := c.ShouldBind(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		}

		byteLen := int64(len(req.Content))
		if byteLen > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.ErrUploadTooLarge{MaxBytes: maxUploadBytes}.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"bytes":       byteLen,
			"size_status": services.ClassifySize(int(byteLen)),
		})
	}
}
