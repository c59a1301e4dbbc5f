// Package server builds the application's dependencies and runs the HTTP
// service alongside the blog automation workers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/api"
	"github.com/JakeFAU/roof-estimate/internal/blog"
	"github.com/JakeFAU/roof-estimate/internal/clock/system"
	"github.com/JakeFAU/roof-estimate/internal/cms"
	"github.com/JakeFAU/roof-estimate/internal/config"
	"github.com/JakeFAU/roof-estimate/internal/dispatcher"
	"github.com/JakeFAU/roof-estimate/internal/estimate"
	collyfetcher "github.com/JakeFAU/roof-estimate/internal/fetcher/colly"
	"github.com/JakeFAU/roof-estimate/internal/hash/sha256"
	"github.com/JakeFAU/roof-estimate/internal/id/uuid"
	"github.com/JakeFAU/roof-estimate/internal/metrics"
	"github.com/JakeFAU/roof-estimate/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/roof-estimate/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/roof-estimate/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/roof-estimate/internal/queue/memory"
	"github.com/JakeFAU/roof-estimate/internal/searchconsole"
	"github.com/JakeFAU/roof-estimate/internal/serp"
	gcsstorage "github.com/JakeFAU/roof-estimate/internal/storage/gcs"
	localstorage "github.com/JakeFAU/roof-estimate/internal/storage/local"
	memoryStorage "github.com/JakeFAU/roof-estimate/internal/storage/memory"
	pgstore "github.com/JakeFAU/roof-estimate/internal/storage/postgres"
	"github.com/JakeFAU/roof-estimate/internal/worker"
	genaiwriter "github.com/JakeFAU/roof-estimate/internal/writer/genai"
)

// ErrAutomationDisabled is returned when the SERP or text generation
// credentials are missing.
var ErrAutomationDisabled = errors.New("blog automation is not configured")

// App contains the application's dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	httpClient *http.Client
	clock      blog.Clock
	ids        blog.IDGenerator

	calculator *estimate.Calculator
	jobs       *memoryStorage.JobStore
	keywords   *searchconsole.Client
	posts      cms.Source
	queue      *queueMemory.Queue
	canceler   *worker.Canceler
	workers    []*worker.Worker
	dispatch   *dispatcher.Dispatcher
	apiServer  *api.Server

	pubsubClient    *pubsub.Client
	pubsubPublisher *gcppublisher.Publisher
	storage         *storage.Client
	draftStore      *pgstore.DraftStore
}

// NewApp creates an App with the given configuration and no services.
func NewApp(cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	type sanitizedConfig struct {
		ServerPort     int    `json:"server_port"`
		StorageBackend string `json:"storage_backend"`
		Concurrency    int    `json:"concurrency"`
	}
	logger.Info("creating application", zap.Any("config", sanitizedConfig{
		ServerPort:     cfg.Server.Port,
		StorageBackend: cfg.Storage.Backend,
		Concurrency:    cfg.Automation.Concurrency,
	}))
	return &App{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		clock:      system.New(),
		ids:        uuid.New(),
		calculator: estimate.NewCalculator(estimate.Config{
			MinSquareFeet: cfg.Estimate.MinSquareFeet,
			MaxSquareFeet: cfg.Estimate.MaxSquareFeet,
			DefaultRegion: cfg.Estimate.DefaultRegion,
		}),
		jobs:     memoryStorage.NewJobStore(),
		canceler: worker.NewCanceler(),
	}
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()
	app := NewApp(cfg, logger)
	app.logger.Info("building application dependencies")

	if err := app.setupKeywords(ctx); err != nil {
		return nil, app.abort(err)
	}
	app.setupPosts()
	if err := app.setupAutomation(ctx); err != nil {
		if !errors.Is(err, ErrAutomationDisabled) {
			return nil, app.abort(err)
		}
		app.logger.Warn("blog automation disabled", zap.Error(err))
	}

	ready := map[string]api.ReadinessCheck{}
	if app.draftStore != nil {
		ready["postgres"] = app.draftStore.Ping
	}
	deps := api.Dependencies{
		Calculator: app.calculator,
		Jobs:       app.jobs,
		Canceler:   app.canceler,
		Posts:      app.posts,
		IDs:        app.ids,
		Clock:      app.clock,
		Ready:      ready,
	}
	if app.keywords != nil {
		deps.Keywords = app.keywords
	}
	if app.queue != nil {
		deps.Queue = app.queue
	}
	app.apiServer = api.NewServer(deps, *cfg, app.logger)
	return app, nil
}

func (a *App) abort(err error) error {
	a.closeInfrastructure()
	return err
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Calculator returns the configured estimate calculator.
func (a *App) Calculator() *estimate.Calculator {
	return a.calculator
}

func (a *App) setupKeywords(ctx context.Context) error {
	sc := a.cfg.SearchConsole
	if sc.SiteURL == "" {
		a.logger.Info("search console not configured")
		return nil
	}
	client, err := searchconsole.New(ctx, searchconsole.Config{
		SiteURL:      sc.SiteURL,
		ClientID:     sc.ClientID,
		ClientSecret: sc.ClientSecret,
		RefreshToken: sc.RefreshToken,
		Endpoint:     sc.Endpoint,
		Timeout:      a.cfg.RequestTimeout(),
	}, a.logger)
	if err != nil {
		return fmt.Errorf("search console init failed: %w", err)
	}
	a.keywords = client
	a.logger.Info("search console client initialized", zap.String("site", sc.SiteURL))
	return nil
}

func (a *App) setupPosts() {
	if a.cfg.CMS.BaseURL == "" {
		a.logger.Info("cms not configured")
		return
	}
	client, err := cms.NewClient(a.httpClient, cms.Config{BaseURL: a.cfg.CMS.BaseURL, APIToken: a.cfg.CMS.APIToken})
	if err != nil {
		a.logger.Warn("cms client init failed", zap.Error(err))
		return
	}
	a.posts = cms.NewCachedSource(client, a.cfg.CacheTTL(), a.clock, a.logger)
	a.logger.Info("cms source initialized", zap.Duration("cache_ttl", a.cfg.CacheTTL()))
}

func (a *App) setupAutomation(ctx context.Context) error {
	if a.cfg.SERP.APIKey == "" || a.cfg.GenAI.APIKey == "" {
		return fmt.Errorf("%w: serp.api_key and genai.api_key are required", ErrAutomationDisabled)
	}
	serpClient, err := serp.New(a.httpClient, serp.Config{
		BaseURL:  a.cfg.SERP.BaseURL,
		APIKey:   a.cfg.SERP.APIKey,
		Location: a.cfg.SERP.Location,
		Results:  a.cfg.SERP.Results,
	})
	if err != nil {
		return fmt.Errorf("serp client init failed: %w", err)
	}
	writer, err := genaiwriter.New(ctx, genaiwriter.Config{
		APIKey:          a.cfg.GenAI.APIKey,
		Model:           a.cfg.GenAI.Model,
		BaseURL:         a.cfg.GenAI.BaseURL,
		MaxOutputTokens: a.cfg.GenAI.MaxOutputTokens,
		Temperature:     a.cfg.GenAI.Temperature,
	}, nil, a.logger)
	if err != nil {
		return fmt.Errorf("genai writer init failed: %w", err)
	}

	blobStore, err := a.setupStorage(ctx)
	if err != nil {
		return err
	}
	drafts, err := a.setupDatabase(ctx)
	if err != nil {
		return err
	}
	publisher, err := a.setupPublisher(ctx)
	if err != nil {
		return err
	}

	var analyzer blog.PageAnalyzer
	if a.cfg.Competitors.Enabled {
		analyzer = collyfetcher.New(collyfetcher.Config{
			UserAgent:     a.cfg.Competitors.UserAgent,
			RespectRobots: a.cfg.Competitors.RespectRobots,
			Timeout:       a.cfg.RequestTimeout(),
		})
		a.logger.Info("competitor analysis enabled",
			zap.String("user_agent", a.cfg.Competitors.UserAgent),
			zap.Int("max_pages", a.cfg.Competitors.MaxPages),
		)
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultBurst: 1,
		ProviderRPS:  a.cfg.Automation.ProviderRPS,
	})

	a.queue = queueMemory.NewQueue(a.cfg.Automation.QueueDepth)
	deps := worker.Dependencies{
		Queue:     a.queue,
		Jobs:      a.jobs,
		SERP:      serpClient,
		Analyzer:  analyzer,
		Writer:    writer,
		Blobs:     blobStore,
		Drafts:    drafts,
		Publisher: publisher,
		Limiter:   limiter,
		Hasher:    sha256.New(),
		Clock:     a.clock,
		Canceler:  a.canceler,
	}
	if a.keywords != nil {
		deps.Keywords = a.keywords
	}
	workerCfg := worker.Config{
		BlobPrefix:   a.cfg.Storage.Prefix,
		Topic:        a.cfg.PubSub.TopicName,
		LookbackDays: a.cfg.SearchConsole.LookbackDays,
		RowLimit:     a.cfg.SearchConsole.RowLimit,
		JobTimeout:   a.cfg.JobTimeout(),
		Opportunity:  a.cfg.OpportunityOptions(),
		Prompt:       a.cfg.PromptOptions(),
	}
	if a.cfg.Competitors.Enabled {
		workerCfg.MaxCompetitors = a.cfg.Competitors.MaxPages
		workerCfg.SkipDomains = append([]string(nil), a.cfg.Competitors.SkipDomains...)
	}
	a.logger.Info("worker config",
		zap.String("blob_prefix", workerCfg.BlobPrefix),
		zap.String("topic", workerCfg.Topic),
		zap.Duration("job_timeout", workerCfg.JobTimeout),
		zap.Int("concurrency", a.cfg.Automation.Concurrency),
	)
	for i := 0; i < a.cfg.Automation.Concurrency; i++ {
		a.workers = append(a.workers, worker.New(deps, workerCfg, a.logger.With(zap.Int("index", i))))
	}
	a.dispatch = dispatcher.New(a.queue, a.workers, a.logger)
	return nil
}

func (a *App) setupStorage(ctx context.Context) (blog.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageGCS:
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.storage = client
		blobStore, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return blobStore, nil
	case config.StorageLocal:
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.LocalDir))
		blobStore, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return blobStore, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memoryStorage.NewBlobStore(), nil
	}
}

func (a *App) setupDatabase(ctx context.Context) (blog.DraftStore, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no DSN specified for database, keeping draft metadata in memory")
		return memoryStorage.NewDraftStore(), nil
	}
	store, err := pgstore.NewDraftStore(ctx, pgstore.DraftStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("draft store init failed: %w", err)
	}
	a.draftStore = store
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("draft store schema failed: %w", err)
	}
	a.logger.Info("draft store initialized", zap.String("table", a.cfg.DB.Table))
	return store, nil
}

func (a *App) setupPublisher(ctx context.Context) (blog.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(map[string]string{"source": "roofestimate"}), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubPublisher = gcppublisher.New(client, map[string]string{"source": "roofestimate"})
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return a.pubsubPublisher, nil
}

// Run starts the workers and HTTP server and blocks until the context is
// canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatchDone := make(chan struct{})
	if a.dispatch != nil {
		go func() {
			defer close(dispatchDone)
			a.logger.Info("dispatcher started")
			a.dispatch.Run(ctx)
		}()
	} else {
		close(dispatchDone)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if a.queue != nil {
		a.queue.Close()
	}
	select {
	case <-dispatchDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("workers did not stop before shutdown deadline")
	}
	a.Close()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// RunDraft creates a job and executes it synchronously on the first worker.
func (a *App) RunDraft(ctx context.Context, params blog.JobParameters) (blog.Job, error) {
	if len(a.workers) == 0 {
		return blog.Job{}, ErrAutomationDisabled
	}
	if params.Keyword == "" && a.keywords == nil {
		return blog.Job{}, fmt.Errorf("%w: keyword required without search console", blog.ErrNoKeyword)
	}
	if params.MaxCompetitors == 0 && a.cfg.Competitors.Enabled {
		params.MaxCompetitors = a.cfg.Competitors.MaxPages
	}
	jobID, err := a.ids.NewID()
	if err != nil {
		return blog.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	job := blog.Job{
		ID:         jobID,
		Status:     blog.JobStatusQueued,
		Submitted:  a.clock.Now(),
		Parameters: params,
	}
	if err := a.jobs.CreateJob(ctx, job); err != nil {
		return blog.Job{}, fmt.Errorf("create job: %w", err)
	}
	return a.workers[0].RunJob(ctx, jobID, params)
}

// Opportunities returns the current striking-distance keywords.
func (a *App) Opportunities(ctx context.Context, limit int) ([]blog.KeywordRow, error) {
	if a.keywords == nil {
		return nil, errors.New("search console is not configured")
	}
	lookback := a.cfg.SearchConsole.LookbackDays
	if lookback <= 0 {
		lookback = 28
	}
	now := a.clock.Now()
	rows, err := a.keywords.TopQueries(ctx, now.AddDate(0, 0, -lookback), now, a.cfg.SearchConsole.RowLimit)
	if err != nil {
		return nil, fmt.Errorf("top queries: %w", err)
	}
	opts := a.cfg.OpportunityOptions()
	opts.Limit = limit
	return blog.SelectOpportunities(rows, opts), nil
}

// Close releases external clients and flushes the logger.
func (a *App) Close() {
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
		a.pubsubPublisher = nil
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsubClient = nil
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.storage = nil
	}
	if a.draftStore != nil {
		a.draftStore.Close()
		a.draftStore = nil
	}
}
