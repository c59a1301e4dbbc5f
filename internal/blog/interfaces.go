package blog

import (
	"context"
	"io"
	"time"
)

// JobStore persists automation jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, stage Stage, errText string) error
	RecordArtifacts(ctx context.Context, jobID string, artifacts Artifacts) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
}

// KeywordSource returns search performance rows for the site.
type KeywordSource interface {
	TopQueries(ctx context.Context, start, end time.Time, limit int) ([]KeywordRow, error)
}

// SERPProvider returns the current ranking snapshot for a keyword.
type SERPProvider interface {
	Search(ctx context.Context, keyword string) (SERPSnapshot, error)
}

// PageAnalyzer fetches a competitor page and summarizes its structure.
type PageAnalyzer interface {
	Analyze(ctx context.Context, url string) (CompetitorPage, error)
}

// DraftWriter turns a prompt into article markdown.
type DraftWriter interface {
	Write(ctx context.Context, prompt Prompt) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// DraftStore persists draft metadata.
type DraftStore interface {
	SaveDraft(ctx context.Context, record DraftRecord) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Limiter throttles outbound calls per provider.
type Limiter interface {
	Wait(ctx context.Context, provider string) error
}

// Queue provides enqueue/dequeue semantics for automation jobs.
type Queue interface {
	Enqueue(ctx context.Context, job QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes digests for draft content addressing.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
