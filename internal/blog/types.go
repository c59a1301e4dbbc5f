// Package blog defines the blog-automation job model and the ports each
// pipeline stage talks through.
package blog

import (
	"time"
)

// JobStatus represents the lifecycle state of an automation job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Stage is the pipeline step a running job is in.
type Stage string

// Pipeline stages, in execution order.
const (
	StageKeywords    Stage = "keywords"
	StageSERP        Stage = "serp"
	StageCompetitors Stage = "competitors"
	StageDrafting    Stage = "drafting"
	StageStoring     Stage = "storing"
	StageDone        Stage = "done"
)

// JobParameters captures what the caller asked for.
type JobParameters struct {
	// Keyword is the target query. Empty means pick one from Search Console.
	Keyword        string            `json:"keyword,omitempty"`
	Auto           bool              `json:"auto"`
	MaxCompetitors int               `json:"max_competitors"`
	WordTarget     int               `json:"word_target"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// Job is the in-memory record of one automation run.
type Job struct {
	ID            string           `json:"id"`
	Status        JobStatus        `json:"status"`
	Stage         Stage            `json:"stage,omitempty"`
	Submitted     time.Time        `json:"submitted_at"`
	Started       *time.Time       `json:"started_at,omitempty"`
	Finished      *time.Time       `json:"finished_at,omitempty"`
	ErrorText     string           `json:"error_text,omitempty"`
	Parameters    JobParameters    `json:"parameters"`
	Keyword       string           `json:"keyword,omitempty"`
	Opportunities []KeywordRow     `json:"opportunities,omitempty"`
	SERP          *SERPSnapshot    `json:"serp,omitempty"`
	Competitors   []CompetitorPage `json:"competitors,omitempty"`
	Draft         *Draft           `json:"draft,omitempty"`
}

// Artifacts are stage outputs merged into a Job. Nil/empty fields are left untouched.
type Artifacts struct {
	Keyword       string
	Opportunities []KeywordRow
	SERP          *SERPSnapshot
	Competitors   []CompetitorPage
	Draft         *Draft
}

// KeywordRow is one Search Console query row.
type KeywordRow struct {
	Query       string  `json:"query"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// SERPSnapshot is the competitor ranking snapshot for a keyword.
type SERPSnapshot struct {
	Keyword   string          `json:"keyword"`
	FetchedAt time.Time       `json:"fetched_at"`
	Organic   []OrganicResult `json:"organic"`
	Questions []string        `json:"questions,omitempty"`
}

// OrganicResult is one ranked competitor.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet,omitempty"`
}

// CompetitorPage summarizes the structure of a ranking page.
type CompetitorPage struct {
	URL        string   `json:"url"`
	StatusCode int      `json:"status_code"`
	Title      string   `json:"title"`
	Headings   []string `json:"headings"`
	WordCount  int      `json:"word_count"`
}

// Prompt is the request sent to the text generator.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Draft is a generated article.
type Draft struct {
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Markdown    string    `json:"-"`
	WordCount   int       `json:"word_count"`
	ContentHash string    `json:"content_hash,omitempty"`
	BlobURI     string    `json:"blob_uri,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DraftRecord is the metadata row persisted for each stored draft.
type DraftRecord struct {
	JobID       string    `json:"job_id"`
	Keyword     string    `json:"keyword"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	ContentHash string    `json:"content_hash"`
	BlobURI     string    `json:"blob_uri"`
	WordCount   int       `json:"word_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID  string
	Params JobParameters
}
