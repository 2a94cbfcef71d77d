package workers

import (
	"log"

	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
)

// StartClickWorkers launches a pool of goroutines that drain the click event
// channel and persist events. Click recording is fire-and-forget end to end:
// the redirect handler never waits on these workers, and a failed write is
// logged here and nowhere else — the redirect already happened from the
// user's perspective, so there is no retry.
func StartClickWorkers(workerCount int, clickEvents <-chan models.ClickEvent, clickRepo repository.ClickRepository) {
	log.Printf("Starting %d click worker(s)...", workerCount)
	for i := 0; i < workerCount; i++ {
		go clickWorker(clickEvents, clickRepo)
	}
}

// clickWorker processes events until the channel is closed.
func clickWorker(clickEvents <-chan models.ClickEvent, clickRepo repository.ClickRepository) {
	for event := range clickEvents {
		click := &models.Click{
			LinkCode:  event.LinkCode,
			Timestamp: event.Timestamp,
			Referer:   event.Referer,
			UserAgent: event.UserAgent,
			IPHash:    event.IPHash,
		}
		if err := clickRepo.CreateClick(click); err != nil {
			log.Printf("ERROR: Failed to save click for code %s: %v", event.LinkCode, err)
		}
	}
}
