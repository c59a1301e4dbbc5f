// Package worker implements the blog automation pipeline execution loop.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/blog"
	"github.com/JakeFAU/roof-estimate/internal/metrics"
)

// Provider names used for rate limiting and metrics.
const (
	ProviderSearchConsole = "search_console"
	ProviderSERP          = "serp"
	ProviderCompetitor    = "competitor"
	ProviderGenAI         = "genai"
)

// EventDraftReady is the event attribute on draft notifications.
const EventDraftReady = "draft.ready"

const draftContentType = "text/markdown; charset=utf-8"

// Config controls Worker behavior.
type Config struct {
	BlobPrefix     string
	Topic          string
	MaxCompetitors int
	// SkipDomains excludes organic results from competitor analysis.
	SkipDomains []string
	// LookbackDays is the Search Console window ending today.
	LookbackDays int
	RowLimit     int
	JobTimeout   time.Duration
	Opportunity  blog.OpportunityOptions
	Prompt       blog.PromptOptions
}

// Dependencies are the ports a Worker drives. Keywords, Analyzer, Drafts,
// Publisher and Limiter are optional.
type Dependencies struct {
	Queue     blog.Queue
	Jobs      blog.JobStore
	Keywords  blog.KeywordSource
	SERP      blog.SERPProvider
	Analyzer  blog.PageAnalyzer
	Writer    blog.DraftWriter
	Blobs     blog.BlobStore
	Drafts    blog.DraftStore
	Publisher blog.Publisher
	Limiter   blog.Limiter
	Hasher    blog.Hasher
	Clock     blog.Clock
	Canceler  *Canceler
}

// DraftReady is the payload published once a draft is stored.
type DraftReady struct {
	Event       string    `json:"event"`
	JobID       string    `json:"job_id"`
	Keyword     string    `json:"keyword"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	BlobURI     string    `json:"blob_uri"`
	ContentHash string    `json:"content_hash"`
	WordCount   int       `json:"word_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Worker consumes queue items and executes the automation pipeline.
type Worker struct {
	deps   Dependencies
	cfg    Config
	skip   *blog.DomainFilter
	logger *zap.Logger
}

// New constructs a Worker.
func New(deps Dependencies, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Canceler == nil {
		deps.Canceler = NewCanceler()
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 28
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = 250
	}
	if cfg.BlobPrefix == "" {
		cfg.BlobPrefix = "drafts"
	}
	return &Worker{
		deps:   deps,
		cfg:    cfg,
		skip:   blog.NewDomainFilter(cfg.SkipDomains),
		logger: logger.Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.deps.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, blog.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

// RunJob executes the pipeline for an already created job synchronously and
// returns the final job record.
func (w *Worker) RunJob(ctx context.Context, jobID string, params blog.JobParameters) (blog.Job, error) {
	w.processJob(ctx, blog.QueueItem{JobID: jobID, Params: params})
	job, err := w.deps.Jobs.GetJob(context.WithoutCancel(ctx), jobID)
	if err != nil {
		return blog.Job{}, fmt.Errorf("get job: %w", err)
	}
	if job.Status != blog.JobStatusSucceeded {
		return job, fmt.Errorf("job %s %s: %s", jobID, job.Status, job.ErrorText)
	}
	return job, nil
}

func (w *Worker) processJob(ctx context.Context, item blog.QueueItem) {
	logger := w.logger.With(zap.String("job_id", item.JobID))

	jobCtx, cancel := w.jobContext(ctx)
	defer cancel()
	release := w.deps.Canceler.register(item.JobID, cancel)
	defer release()

	job, err := w.deps.Jobs.GetJob(ctx, item.JobID)
	if err != nil {
		logger.Error("load job failed", zap.Error(err))
		return
	}
	if job.Status.Terminal() {
		logger.Info("skipping finished job", zap.String("status", string(job.Status)))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if err := w.deps.Jobs.UpdateJobStatus(ctx, item.JobID, blog.JobStatusRunning, blog.StageKeywords, ""); err != nil {
		if errors.Is(err, blog.ErrJobTerminal) {
			logger.Info("skipping finished job", zap.Error(err))
			return
		}
		logger.Error("update job status failed", zap.Error(err))
		return
	}

	record, runErr := w.execute(jobCtx, item, logger)
	status, errText := deriveFinalStatus(jobCtx, runErr)
	stage := blog.Stage("")
	if status == blog.JobStatusSucceeded {
		stage = blog.StageDone
	}

	// the job context may be done; the final write must still land
	final := context.WithoutCancel(ctx)
	if err := w.deps.Jobs.UpdateJobStatus(final, item.JobID, status, stage, errText); err != nil {
		if !errors.Is(err, blog.ErrJobTerminal) {
			logger.Error("final job status update failed", zap.Error(err))
			return
		}
		// canceled through the API while the last stage was running
		status = blog.JobStatusCanceled
		logger.Info("job finished elsewhere", zap.Error(err))
	}
	metrics.ObserveJob(string(status))
	if status == blog.JobStatusSucceeded && record != nil {
		w.publishDraft(final, *record, logger)
	}
	if runErr != nil {
		logger.Warn("job finished", zap.String("status", string(status)), zap.Error(runErr))
		return
	}
	logger.Info("job finished", zap.String("status", string(status)))
}

func (w *Worker) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.JobTimeout > 0 {
		return context.WithTimeout(ctx, w.cfg.JobTimeout)
	}
	return context.WithCancel(ctx)
}

func deriveFinalStatus(ctx context.Context, err error) (blog.JobStatus, string) {
	switch {
	case err == nil:
		return blog.JobStatusSucceeded, ""
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return blog.JobStatusFailed, "job timed out"
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, blog.ErrJobTerminal):
		return blog.JobStatusCanceled, "job canceled"
	default:
		return blog.JobStatusFailed, err.Error()
	}
}

func (w *Worker) execute(ctx context.Context, item blog.QueueItem, logger *zap.Logger) (*blog.DraftRecord, error) {
	keyword, err := w.resolveKeyword(ctx, item)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("keyword", keyword))
	if err := w.deps.Jobs.RecordArtifacts(ctx, item.JobID, blog.Artifacts{Keyword: keyword}); err != nil {
		return nil, fmt.Errorf("record keyword: %w", err)
	}

	if err := w.stage(ctx, item.JobID, blog.StageSERP); err != nil {
		return nil, err
	}
	snapshot, err := w.searchSERP(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if err := w.deps.Jobs.RecordArtifacts(ctx, item.JobID, blog.Artifacts{SERP: &snapshot}); err != nil {
		return nil, fmt.Errorf("record serp: %w", err)
	}

	if err := w.stage(ctx, item.JobID, blog.StageCompetitors); err != nil {
		return nil, err
	}
	pages, err := w.analyzeCompetitors(ctx, snapshot, w.maxCompetitors(item.Params), logger)
	if err != nil {
		return nil, err
	}
	if err := w.deps.Jobs.RecordArtifacts(ctx, item.JobID, blog.Artifacts{Competitors: pages}); err != nil {
		return nil, fmt.Errorf("record competitors: %w", err)
	}

	if err := w.stage(ctx, item.JobID, blog.StageDrafting); err != nil {
		return nil, err
	}
	draft, err := w.writeDraft(ctx, keyword, snapshot, pages, item.Params)
	if err != nil {
		return nil, err
	}
	logger.Info("draft generated", zap.String("title", draft.Title), zap.Int("word_count", draft.WordCount))

	if err := w.stage(ctx, item.JobID, blog.StageStoring); err != nil {
		return nil, err
	}
	return w.persist(ctx, item.JobID, keyword, draft)
}

func (w *Worker) stage(ctx context.Context, jobID string, stage blog.Stage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("before %s: %w", stage, err)
	}
	if err := w.deps.Jobs.UpdateJobStatus(ctx, jobID, blog.JobStatusRunning, stage, ""); err != nil {
		return fmt.Errorf("update stage %s: %w", stage, err)
	}
	return nil
}

// call rate-limits and instruments one provider request.
func (w *Worker) call(ctx context.Context, provider string, fn func(context.Context) error) error {
	if w.deps.Limiter != nil {
		if err := w.deps.Limiter.Wait(ctx, provider); err != nil {
			return fmt.Errorf("%s: %w", provider, err)
		}
	}
	start := time.Now()
	err := fn(ctx)
	metrics.ObserveProviderRequest(provider, err, time.Since(start))
	return err
}

func (w *Worker) resolveKeyword(ctx context.Context, item blog.QueueItem) (string, error) {
	if kw := strings.TrimSpace(item.Params.Keyword); kw != "" {
		return kw, nil
	}
	if w.deps.Keywords == nil {
		return "", fmt.Errorf("%w: search console is not configured", blog.ErrNoKeyword)
	}

	now := w.deps.Clock.Now()
	start := now.AddDate(0, 0, -w.cfg.LookbackDays)
	var rows []blog.KeywordRow
	err := w.call(ctx, ProviderSearchConsole, func(ctx context.Context) error {
		var err error
		rows, err = w.deps.Keywords.TopQueries(ctx, start, now, w.cfg.RowLimit)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("search console: %w", err)
	}
	opportunities := blog.SelectOpportunities(rows, w.cfg.Opportunity)
	if err := w.deps.Jobs.RecordArtifacts(ctx, item.JobID, blog.Artifacts{Opportunities: opportunities}); err != nil {
		return "", fmt.Errorf("record opportunities: %w", err)
	}
	if len(opportunities) == 0 {
		return "", fmt.Errorf("%w: no striking-distance queries in %d rows", blog.ErrNoKeyword, len(rows))
	}
	return opportunities[0].Query, nil
}

func (w *Worker) searchSERP(ctx context.Context, keyword string) (blog.SERPSnapshot, error) {
	if w.deps.SERP == nil {
		return blog.SERPSnapshot{}, fmt.Errorf("serp provider is not configured")
	}
	var snapshot blog.SERPSnapshot
	err := w.call(ctx, ProviderSERP, func(ctx context.Context) error {
		var err error
		snapshot, err = w.deps.SERP.Search(ctx, keyword)
		return err
	})
	if err != nil {
		return blog.SERPSnapshot{}, fmt.Errorf("serp search: %w", err)
	}
	if snapshot.Keyword == "" {
		snapshot.Keyword = keyword
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = w.deps.Clock.Now()
	}
	return snapshot, nil
}

func (w *Worker) maxCompetitors(params blog.JobParameters) int {
	if params.MaxCompetitors > 0 {
		return params.MaxCompetitors
	}
	return w.cfg.MaxCompetitors
}

// analyzeCompetitors fetches the top organic results. Individual page
// failures are logged and skipped; only cancellation aborts the stage.
func (w *Worker) analyzeCompetitors(
	ctx context.Context,
	snapshot blog.SERPSnapshot,
	limit int,
	logger *zap.Logger,
) ([]blog.CompetitorPage, error) {
	pages := []blog.CompetitorPage{}
	if w.deps.Analyzer == nil || limit <= 0 {
		return pages, nil
	}
	for _, result := range snapshot.Organic {
		if len(pages) >= limit {
			break
		}
		if result.URL == "" {
			continue
		}
		if w.skip.MatchURL(result.URL) {
			logger.Debug("skipping competitor domain", zap.String("url", result.URL))
			continue
		}
		var page blog.CompetitorPage
		err := w.call(ctx, ProviderCompetitor, func(ctx context.Context) error {
			var err error
			page, err = w.deps.Analyzer.Analyze(ctx, result.URL)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("analyze competitors: %w", ctx.Err())
			}
			if errors.Is(err, blog.ErrRobotsDisallowed) {
				logger.Debug("competitor disallowed by robots.txt", zap.String("url", result.URL))
				continue
			}
			logger.Warn("competitor analysis failed", zap.String("url", result.URL), zap.Error(err))
			continue
		}
		if page.Title == "" {
			page.Title = result.Title
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (w *Worker) writeDraft(
	ctx context.Context,
	keyword string,
	snapshot blog.SERPSnapshot,
	pages []blog.CompetitorPage,
	params blog.JobParameters,
) (blog.Draft, error) {
	if w.deps.Writer == nil {
		return blog.Draft{}, fmt.Errorf("draft writer is not configured")
	}
	opts := w.cfg.Prompt
	if params.WordTarget > 0 {
		opts.WordTarget = params.WordTarget
	}
	prompt := blog.BuildPrompt(keyword, snapshot, pages, opts)

	var text string
	err := w.call(ctx, ProviderGenAI, func(ctx context.Context) error {
		var err error
		text, err = w.deps.Writer.Write(ctx, prompt)
		return err
	})
	if err != nil {
		return blog.Draft{}, fmt.Errorf("generate draft: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return blog.Draft{}, fmt.Errorf("generate draft: empty response")
	}
	return blog.ParseDraft(keyword, text, w.deps.Clock.Now()), nil
}

func (w *Worker) buildBlobPath(jobID, hash string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.md", jobID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.md", prefix, jobID, hash)
}

// persist writes the draft blob, records it on the job and saves the
// metadata row. Notification waits until the job is marked succeeded.
func (w *Worker) persist(
	ctx context.Context,
	jobID string,
	keyword string,
	draft blog.Draft,
) (*blog.DraftRecord, error) {
	body := []byte(draft.Markdown)
	hash, err := w.deps.Hasher.Hash(body)
	if err != nil {
		return nil, fmt.Errorf("hash draft: %w", err)
	}
	draft.ContentHash = hash

	if w.deps.Blobs != nil {
		uri, err := w.deps.Blobs.PutObject(ctx, w.buildBlobPath(jobID, hash), draftContentType, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("put object: %w", err)
		}
		draft.BlobURI = uri
	}
	if err := w.deps.Jobs.RecordArtifacts(ctx, jobID, blog.Artifacts{Draft: &draft}); err != nil {
		return nil, fmt.Errorf("record draft: %w", err)
	}

	record := blog.DraftRecord{
		JobID:       jobID,
		Keyword:     keyword,
		Title:       draft.Title,
		Slug:        draft.Slug,
		ContentHash: hash,
		BlobURI:     draft.BlobURI,
		WordCount:   draft.WordCount,
		CreatedAt:   w.deps.Clock.Now(),
	}
	if w.deps.Drafts != nil {
		if err := w.deps.Drafts.SaveDraft(ctx, record); err != nil {
			return nil, fmt.Errorf("save draft: %w", err)
		}
	}
	return &record, nil
}

// publishDraft sends the draft.ready notification. The draft is already
// stored, so a failed publish is logged and does not fail the job.
func (w *Worker) publishDraft(ctx context.Context, record blog.DraftRecord, logger *zap.Logger) {
	if w.cfg.Topic == "" || w.deps.Publisher == nil {
		return
	}
	payload := DraftReady{
		Event:       EventDraftReady,
		JobID:       record.JobID,
		Keyword:     record.Keyword,
		Title:       record.Title,
		Slug:        record.Slug,
		BlobURI:     record.BlobURI,
		ContentHash: record.ContentHash,
		WordCount:   record.WordCount,
		Timestamp:   record.CreatedAt,
	}
	id, err := w.deps.Publisher.Publish(ctx, w.cfg.Topic, payload)
	if err != nil {
		logger.Error("publish draft notification failed", zap.String("topic", w.cfg.Topic), zap.Error(err))
		return
	}
	logger.Info("draft published",
		zap.String("message_id", id),
		zap.String("blob_uri", record.BlobURI),
		zap.String("hash", record.ContentHash),
	)
}
