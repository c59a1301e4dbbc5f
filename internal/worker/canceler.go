package worker

import "sync"

// Canceler tracks the cancel function of every job currently executing so
// the API can stop a running job.
type Canceler struct {
	mu      sync.Mutex
	running map[string]func()
}

// NewCanceler returns an empty Canceler.
func NewCanceler() *Canceler {
	return &Canceler{running: make(map[string]func())}
}

func (c *Canceler) register(jobID string, cancel func()) func() {
	c.mu.Lock()
	c.running[jobID] = cancel
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.running, jobID)
		c.mu.Unlock()
	}
}

// Cancel stops jobID if it is executing and reports whether it was.
func (c *Canceler) Cancel(jobID string) bool {
	c.mu.Lock()
	cancel, ok := c.running[jobID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}
