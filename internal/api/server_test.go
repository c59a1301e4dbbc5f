package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/blog"
	"github.com/JakeFAU/roof-estimate/internal/clock/system"
	"github.com/JakeFAU/roof-estimate/internal/cms"
	"github.com/JakeFAU/roof-estimate/internal/config"
	"github.com/JakeFAU/roof-estimate/internal/estimate"
	queueMemory "github.com/JakeFAU/roof-estimate/internal/queue/memory"
	storeMemory "github.com/JakeFAU/roof-estimate/internal/storage/memory"
)

type fakeIDGen struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeIDGen) NewID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return "", errors.New("no ids left")
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

type fakeCanceler struct {
	canceled []string
}

func (f *fakeCanceler) Cancel(jobID string) bool {
	f.canceled = append(f.canceled, jobID)
	return true
}

type fakeKeywords struct {
	rows []blog.KeywordRow
	err  error
}

func (f *fakeKeywords) TopQueries(context.Context, time.Time, time.Time, int) ([]blog.KeywordRow, error) {
	return f.rows, f.err
}

type fakePosts struct {
	posts []cms.Post
	err   error
}

func (f *fakePosts) ListPosts(context.Context) ([]cms.Post, error) {
	return f.posts, f.err
}

type testEnv struct {
	server   *Server
	jobs     *storeMemory.JobStore
	queue    *queueMemory.Queue
	canceler *fakeCanceler
}

func testConfig() config.Config {
	return config.Config{
		HTTP:          config.HTTPConfig{TimeoutSeconds: 5},
		SearchConsole: config.SearchConsoleConfig{LookbackDays: 28, RowLimit: 100},
		Competitors:   config.CompetitorsConfig{Enabled: true, MaxPages: 3},
	}
}

func newTestEnv(t *testing.T, cfg config.Config, mutate func(*Dependencies)) *testEnv {
	t.Helper()
	env := &testEnv{
		jobs:     storeMemory.NewJobStore(),
		queue:    queueMemory.NewQueue(1),
		canceler: &fakeCanceler{},
	}
	deps := Dependencies{
		Calculator: estimate.NewCalculator(estimate.Config{}),
		Jobs:       env.jobs,
		Queue:      env.queue,
		Canceler:   env.canceler,
		IDs:        &fakeIDGen{ids: []string{"job-1", "job-2", "job-3"}},
		Clock:      system.NewFixed(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	if mutate != nil {
		mutate(&deps)
	}
	env.server = NewServer(deps, cfg, zap.NewNop())
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_HealthAndReady(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), func(d *Dependencies) {
		d.Ready = map[string]ReadinessCheck{
			"db": func(context.Context) error { return errors.New("down") },
		}
	})

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "down")

	ok := newTestEnv(t, testConfig(), nil)
	rec = ok.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDPropagates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	const id = "0190b6a4-6c2e-7cc0-8d7a-3f1c2b4e5d6f"
	rec := env.do(t, http.MethodGet, "/healthz", "", "X-Request-Id", id)
	require.Equal(t, id, rec.Header().Get("X-Request-Id"))

	rec = env.do(t, http.MethodGet, "/healthz", "", "X-Request-Id", "not-a-uuid")
	require.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-Id"))
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	env.do(t, http.MethodGet, "/healthz", "")
	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_Catalogs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	for _, path := range []string{"/v1/materials", "/v1/pitches", "/v1/regions"} {
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
	rec := env.do(t, http.MethodGet, "/v1/materials", "")
	require.Contains(t, rec.Body.String(), "architectural-shingle")
}

func TestServer_CreateEstimate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	rec := env.do(t, http.MethodPost, "/v1/estimates",
		`{"square_feet":2000,"material":"architectural-shingle","pitch":"low","region":"national"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	est := body["estimate"].(map[string]any)
	require.EqualValues(t, 9000, est["low"])
	require.EqualValues(t, 11000, est["mid"])
	require.EqualValues(t, 14000, est["high"])
}

func TestServer_CreateEstimateErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	cases := map[string]string{
		"bad json":      `{"square_feet":`,
		"unknown field": `{"square_feet":2000,"material":"slate","pitch":"low","colour":"red"}`,
		"material":      `{"square_feet":2000,"material":"gold","pitch":"low"}`,
		"pitch":         `{"square_feet":2000,"material":"slate","pitch":"vertical"}`,
		"region":        `{"square_feet":2000,"material":"slate","pitch":"low","region":"mars"}`,
		"too small":     `{"square_feet":10,"material":"slate","pitch":"low"}`,
	}
	for name, body := range cases {
		rec := env.do(t, http.MethodPost, "/v1/estimates", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.Contains(t, rec.Body.String(), `"error"`, name)
	}
}

func TestServer_Locations(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	rec := env.do(t, http.MethodGet, "/v1/locations?state=tx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "austin-tx")
	require.NotContains(t, rec.Body.String(), "denver-co")

	rec = env.do(t, http.MethodGet, "/v1/locations/austin-tx", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/locations/atlantis-xx", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_LocationEstimate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	rec := env.do(t, http.MethodGet,
		"/v1/locations/austin-tx/estimate?sqft=2000&material=architectural-shingle&pitch=low&tear_off=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	loc := body["location"].(map[string]any)
	est := body["estimate"].(map[string]any)
	input := est["input"].(map[string]any)
	require.Equal(t, loc["region"], input["region"])
	require.Equal(t, true, input["tear_off"])

	rec = env.do(t, http.MethodGet, "/v1/locations/austin-tx/estimate?sqft=abc&material=slate&pitch=low", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/v1/locations/austin-tx/estimate?sqft=2000&material=slate&pitch=low&tear_off=maybe", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/v1/locations/nowhere/estimate?sqft=2000&material=slate&pitch=low", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Posts(t *testing.T) {
	t.Parallel()

	posts := &fakePosts{posts: []cms.Post{{ID: "1", Slug: "metal-roofs", Title: "Metal Roofs"}}}
	env := newTestEnv(t, testConfig(), func(d *Dependencies) { d.Posts = posts })

	rec := env.do(t, http.MethodGet, "/v1/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "metal-roofs")

	rec = env.do(t, http.MethodGet, "/v1/posts/metal-roofs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/v1/posts/other", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	posts.err = &blog.ProviderError{Provider: "cms", StatusCode: 500}
	rec = env.do(t, http.MethodGet, "/v1/posts", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	unconfigured := newTestEnv(t, testConfig(), nil)
	rec = unconfigured.do(t, http.MethodGet, "/v1/posts", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_SubmitJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	rec := env.do(t, http.MethodPost, "/v1/blog/jobs", `{"keyword":"  metal roof cost ","word_target":900,"tags":{"src":"test"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "job-1")

	item, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)
	require.Equal(t, "metal roof cost", item.Params.Keyword)
	require.Equal(t, 3, item.Params.MaxCompetitors)
	require.Equal(t, 900, item.Params.WordTarget)

	job, err := env.jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, blog.JobStatusQueued, job.Status)
	require.Equal(t, "test", job.Parameters.Tags["src"])
}

func TestServer_SubmitJobValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	rec := env.do(t, http.MethodPost, "/v1/blog/jobs", `{"keyword":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "keyword required")

	rec = env.do(t, http.MethodPost, "/v1/blog/jobs", `{"auto":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "search console")

	rec = env.do(t, http.MethodPost, "/v1/blog/jobs", `{"keyword":"x","max_competitors":-1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/blog/jobs", `{bad`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	withKeywords := newTestEnv(t, testConfig(), func(d *Dependencies) { d.Keywords = &fakeKeywords{} })
	rec = withKeywords.do(t, http.MethodPost, "/v1/blog/jobs", `{"auto":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestServer_SubmitJobQueueFull(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	rec := env.do(t, http.MethodPost, "/v1/blog/jobs", `{"keyword":"a"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/blog/jobs", `{"keyword":"b"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "queue full")

	job, err := env.jobs.GetJob(context.Background(), "job-2")
	require.NoError(t, err)
	require.Equal(t, blog.JobStatusFailed, job.Status)
}

func TestServer_JobLifecycleEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	require.NoError(t, env.jobs.CreateJob(ctx, blog.Job{ID: "done", Status: blog.JobStatusQueued, Submitted: time.Unix(10, 0)}))
	require.NoError(t, env.jobs.RecordArtifacts(ctx, "done", blog.Artifacts{
		Draft: &blog.Draft{Title: "T", Markdown: "# T\n\nbody", ContentHash: "abc"},
	}))
	require.NoError(t, env.jobs.UpdateJobStatus(ctx, "done", blog.JobStatusSucceeded, blog.StageDone, ""))
	require.NoError(t, env.jobs.CreateJob(ctx, blog.Job{ID: "pending", Status: blog.JobStatusQueued, Submitted: time.Unix(20, 0)}))

	rec := env.do(t, http.MethodGet, "/v1/blog/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode(t, rec)["jobs"].([]any)
	require.Len(t, jobs, 2)
	require.Equal(t, "pending", jobs[0].(map[string]any)["id"])

	rec = env.do(t, http.MethodGet, "/v1/blog/jobs?status=succeeded", "")
	require.Len(t, decode(t, rec)["jobs"].([]any), 1)

	rec = env.do(t, http.MethodGet, "/v1/blog/jobs/done", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"succeeded"`)
	require.NotContains(t, rec.Body.String(), "body")

	rec = env.do(t, http.MethodGet, "/v1/blog/jobs/done/draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, `"abc"`, rec.Header().Get("ETag"))
	require.Equal(t, "# T\n\nbody", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/blog/jobs/pending/draft", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/blog/jobs/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CancelJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	require.NoError(t, env.jobs.CreateJob(ctx, blog.Job{ID: "run", Status: blog.JobStatusRunning}))

	rec := env.do(t, http.MethodPost, "/v1/blog/jobs/run/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"run"}, env.canceler.canceled)

	job, err := env.jobs.GetJob(ctx, "run")
	require.NoError(t, err)
	require.Equal(t, blog.JobStatusCanceled, job.Status)
	require.Equal(t, "canceled by request", job.ErrorText)

	rec = env.do(t, http.MethodPost, "/v1/blog/jobs/run/cancel", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/blog/jobs/missing/cancel", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Keywords(t *testing.T) {
	t.Parallel()

	kw := &fakeKeywords{rows: []blog.KeywordRow{
		{Query: "roof replacement cost", Impressions: 900, CTR: 0.01, Position: 7},
		{Query: "roof estimate", Impressions: 900, CTR: 0.3, Position: 1.5},
	}}
	env := newTestEnv(t, testConfig(), func(d *Dependencies) { d.Keywords = kw })
	rec := env.do(t, http.MethodGet, "/v1/blog/keywords", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.EqualValues(t, 2, body["rows"])
	require.Len(t, body["opportunities"].([]any), 1)

	kw.err = errors.New("quota")
	rec = env.do(t, http.MethodGet, "/v1/blog/keywords", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	none := newTestEnv(t, testConfig(), nil)
	rec = none.do(t, http.MethodGet, "/v1/blog/keywords", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_AuthProtectsBlogRoutes(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKey: "secret"}
	env := newTestEnv(t, cfg, nil)

	rec := env.do(t, http.MethodGet, "/v1/blog/jobs", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/blog/jobs", "", "X-API-Key", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/blog/jobs?api_key=secret", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/materials", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := &Server{logger: zap.NewNop()}
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestServer_SubmitJobWithoutAutomation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig(), func(d *Dependencies) { d.Queue = nil })
	rec := env.do(t, http.MethodPost, "/v1/blog/jobs", `{"keyword":"a"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
