package monitor

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
)

// DestinationMonitor periodically checks that the destinations of recently
// shortened links are still reachable. Email campaigns go out once; a
// destination that dies afterwards silently breaks every copy already
// delivered, so state changes are logged loudly.
type DestinationMonitor struct {
	linkRepo    repository.LinkRepository
	interval    time.Duration
	recentLinks int
	knownStates map[string]bool // code -> reachable on last pass
	mu          sync.Mutex
	httpClient  *http.Client
}

// NewDestinationMonitor creates and returns a new DestinationMonitor that
// checks the recentLinks most recent links every interval.
func NewDestinationMonitor(linkRepo repository.LinkRepository, interval time.Duration, recentLinks int) *DestinationMonitor {
	return &DestinationMonitor{
		linkRepo:    linkRepo,
		interval:    interval,
		recentLinks: recentLinks,
		knownStates: make(map[string]bool),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Start launches the periodic monitoring loop. Blocking; run in a goroutine.
func (m *DestinationMonitor) Start() {
	log.Printf("[MONITOR] Starting destination monitor with interval of %v...", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// immediate first pass before waiting for a tick
	m.checkDestinations()

	for range ticker.C {
		m.checkDestinations()
	}
}

// checkDestinations runs one pass over the recent links, comparing each
// destination's current state to the last observed one.
func (m *DestinationMonitor) checkDestinations() {
	links, err := m.linkRepo.GetRecentLinks(m.recentLinks)
	if err != nil {
		log.Printf("[MONITOR] ERROR retrieving links for monitoring: %v", err)
		return
	}

	for _, link := range links {
		currentState := m.isReachable(link.Original)

		m.mu.Lock()
		previousState, seen := m.knownStates[link.Code]
		m.knownStates[link.Code] = currentState
		m.mu.Unlock()

		if !seen {
			log.Printf("[MONITOR] Initial state for link %s (%s): %s",
				link.Code, link.Original, formatState(currentState))
			continue
		}
		if currentState != previousState {
			log.Printf("[NOTIFICATION] Link %s (%s) changed from %s to %s!",
				link.Code, link.Original, formatState(previousState), formatState(currentState))
		}
	}
}

// isReachable performs an HTTP HEAD request against the destination.
// 2xx and 3xx count as reachable.
func (m *DestinationMonitor) isReachable(url string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		log.Printf("[MONITOR] Error creating request for URL '%s': %v", url, err)
		return false
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Printf("[MONITOR] Error accessing URL '%s': %v", url, err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func formatState(reachable bool) string {
	if reachable {
		return "REACHABLE"
	}
	return "UNREACHABLE"
}
