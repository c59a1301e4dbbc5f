package blog

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by stores and handlers.
var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("job already exists")
	// ErrJobTerminal rejects status changes on a finished job.
	ErrJobTerminal = errors.New("job already finished")
	ErrNoKeyword   = errors.New("no keyword available")
	ErrQueueClosed = errors.New("queue closed")
	// ErrRobotsDisallowed marks a competitor page excluded by robots.txt.
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
)

// ProviderError reports a non-2xx answer from an external API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}
