package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

// JobStore provides an in-memory implementation for development/testing.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]blog.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]blog.Job),
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job blog.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", blog.ErrJobExists, job.ID)
	}
	if job.Submitted.IsZero() {
		job.Submitted = time.Now().UTC()
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// UpdateJobStatus updates status, stage and error text for a job.
// An empty stage leaves the current stage in place. Finished jobs are
// immutable and return blog.ErrJobTerminal.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status blog.JobStatus,
	stage blog.Stage,
	errText string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", blog.ErrJobNotFound, jobID)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", blog.ErrJobTerminal, jobID, job.Status)
	}
	job.Status = status
	job.ErrorText = errText
	if stage != "" {
		job.Stage = stage
	}
	now := time.Now().UTC()
	if status == blog.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if status.Terminal() && job.Finished == nil {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return nil
}

// RecordArtifacts merges stage outputs into a job that has not finished.
func (s *JobStore) RecordArtifacts(_ context.Context, jobID string, a blog.Artifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", blog.ErrJobNotFound, jobID)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", blog.ErrJobTerminal, jobID, job.Status)
	}
	if a.Keyword != "" {
		job.Keyword = a.Keyword
	}
	if a.Opportunities != nil {
		job.Opportunities = append([]blog.KeywordRow(nil), a.Opportunities...)
	}
	if a.SERP != nil {
		snap := cloneSnapshot(*a.SERP)
		job.SERP = &snap
	}
	if a.Competitors != nil {
		job.Competitors = clonePages(a.Competitors)
	}
	if a.Draft != nil {
		d := *a.Draft
		job.Draft = &d
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (blog.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return blog.Job{}, fmt.Errorf("%w: %s", blog.ErrJobNotFound, jobID)
	}
	return cloneJob(job), nil
}

// ListJobs returns every job, newest submission first.
func (s *JobStore) ListJobs(_ context.Context) ([]blog.Job, error) {
	s.mu.RLock()
	out := make([]blog.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, cloneJob(job))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Submitted.Equal(out[j].Submitted) {
			return out[i].Submitted.After(out[j].Submitted)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneJob(job blog.Job) blog.Job {
	if job.Parameters.Tags != nil {
		tags := make(map[string]string, len(job.Parameters.Tags))
		for k, v := range job.Parameters.Tags {
			tags[k] = v
		}
		job.Parameters.Tags = tags
	}
	if job.Started != nil {
		job.Started = pointerTime(*job.Started)
	}
	if job.Finished != nil {
		job.Finished = pointerTime(*job.Finished)
	}
	if job.Opportunities != nil {
		job.Opportunities = append([]blog.KeywordRow(nil), job.Opportunities...)
	}
	if job.SERP != nil {
		snap := cloneSnapshot(*job.SERP)
		job.SERP = &snap
	}
	if job.Competitors != nil {
		job.Competitors = clonePages(job.Competitors)
	}
	if job.Draft != nil {
		d := *job.Draft
		job.Draft = &d
	}
	return job
}

func cloneSnapshot(s blog.SERPSnapshot) blog.SERPSnapshot {
	s.Organic = append([]blog.OrganicResult(nil), s.Organic...)
	s.Questions = append([]string(nil), s.Questions...)
	return s
}

func clonePages(pages []blog.CompetitorPage) []blog.CompetitorPage {
	out := make([]blog.CompetitorPage, len(pages))
	for i, p := range pages {
		p.Headings = append([]string(nil), p.Headings...)
		out[i] = p
	}
	return out
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
