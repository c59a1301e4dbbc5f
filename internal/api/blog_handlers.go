package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/blog"
	"github.com/JakeFAU/roof-estimate/internal/cms"
	queueMemory "github.com/JakeFAU/roof-estimate/internal/queue/memory"
)

const (
	maxJobBody        = 1 << 16
	maxKeywordResults = 50
)

type submitJobRequest struct {
	Keyword        string            `json:"keyword"`
	Auto           bool              `json:"auto"`
	MaxCompetitors *int              `json:"max_competitors"`
	WordTarget     *int              `json:"word_target"`
	Tags           map[string]string `json:"tags"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "blog automation is not configured")
		return
	}
	var req submitJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.toJobParameters(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := s.deps.IDs.NewID()
	if err != nil {
		s.logger.Error("generate job id failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	now := s.deps.Clock.Now()
	job := blog.Job{
		ID:         jobID,
		Status:     blog.JobStatusQueued,
		Submitted:  now,
		Parameters: params,
	}
	if err := s.deps.Jobs.CreateJob(r.Context(), job); err != nil {
		s.logger.Error("create job failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	item := blog.QueueItem{JobID: jobID, Params: params}
	if err := s.deps.Queue.TryEnqueue(item); err != nil {
		msg := "queue unavailable"
		if errors.Is(err, queueMemory.ErrFull) {
			msg = "queue full"
		}
		if uerr := s.deps.Jobs.UpdateJobStatus(r.Context(), jobID, blog.JobStatusFailed, "", msg); uerr != nil {
			s.logger.Error("mark unqueued job failed", zap.String("job_id", jobID), zap.Error(uerr))
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}
	s.logger.Info("job queued", zap.String("job_id", jobID), zap.String("keyword", params.Keyword), zap.Bool("auto", params.Auto))
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": string(blog.JobStatusQueued)})
}

func (s *Server) toJobParameters(req submitJobRequest) (blog.JobParameters, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" && !req.Auto {
		return blog.JobParameters{}, errors.New("keyword required unless auto is set")
	}
	if keyword == "" && s.deps.Keywords == nil {
		return blog.JobParameters{}, errors.New("auto keyword selection requires search console")
	}
	params := blog.JobParameters{
		Keyword: keyword,
		Auto:    keyword == "" && req.Auto,
		Tags:    map[string]string{},
	}
	if req.MaxCompetitors != nil {
		if *req.MaxCompetitors < 0 {
			return blog.JobParameters{}, errors.New("max_competitors must be >= 0")
		}
		params.MaxCompetitors = *req.MaxCompetitors
	} else if s.cfg.Competitors.Enabled {
		params.MaxCompetitors = s.cfg.Competitors.MaxPages
	}
	if req.WordTarget != nil {
		if *req.WordTarget <= 0 {
			return blog.JobParameters{}, errors.New("word_target must be > 0")
		}
		params.WordTarget = *req.WordTarget
	}
	for k, v := range req.Tags {
		params.Tags[k] = v
	}
	return params, nil
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Jobs.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := jobs[:0]
		for _, job := range jobs {
			if string(job.Status) == status {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}
	if jobs == nil {
		jobs = []blog.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if job.Draft == nil || job.Draft.Markdown == "" {
		writeError(w, http.StatusNotFound, "draft not ready")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if job.Draft.ContentHash != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", job.Draft.ContentHash))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(job.Draft.Markdown)); err != nil {
		s.logger.Warn("write draft failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status.Terminal() {
		writeError(w, http.StatusConflict, fmt.Sprintf("job already %s", job.Status))
		return
	}
	if err := s.deps.Jobs.UpdateJobStatus(r.Context(), job.ID, blog.JobStatusCanceled, "", "canceled by request"); err != nil {
		if errors.Is(err, blog.ErrJobTerminal) {
			writeError(w, http.StatusConflict, "job already finished")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	running := false
	if s.deps.Canceler != nil {
		running = s.deps.Canceler.Cancel(job.ID)
	}
	s.logger.Info("job canceled", zap.String("job_id", job.ID), zap.Bool("was_running", running))
	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID, "status": string(blog.JobStatusCanceled)})
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (blog.Job, bool) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.deps.Jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, blog.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return blog.Job{}, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return blog.Job{}, false
	}
	return job, true
}

func (s *Server) listKeywords(w http.ResponseWriter, r *http.Request) {
	if s.deps.Keywords == nil {
		writeError(w, http.StatusServiceUnavailable, "search console is not configured")
		return
	}
	lookback := s.cfg.SearchConsole.LookbackDays
	if lookback <= 0 {
		lookback = 28
	}
	now := s.deps.Clock.Now()
	rows, err := s.deps.Keywords.TopQueries(r.Context(), now.AddDate(0, 0, -lookback), now, s.cfg.SearchConsole.RowLimit)
	if err != nil {
		s.writeProviderError(w, "search console", err)
		return
	}
	opts := s.cfg.OpportunityOptions()
	opts.Limit = maxKeywordResults
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": blog.SelectOpportunities(rows, opts),
		"rows":          len(rows),
	})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Posts == nil {
		writeError(w, http.StatusServiceUnavailable, "cms is not configured")
		return
	}
	posts, err := s.deps.Posts.ListPosts(r.Context())
	if err != nil {
		s.writeProviderError(w, "cms", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	if s.deps.Posts == nil {
		writeError(w, http.StatusServiceUnavailable, "cms is not configured")
		return
	}
	post, err := cms.GetPost(r.Context(), s.deps.Posts, chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, cms.ErrPostNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		s.writeProviderError(w, "cms", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (s *Server) writeProviderError(w http.ResponseWriter, name string, err error) {
	s.logger.Warn("upstream request failed", zap.String("upstream", name), zap.Error(err))
	writeError(w, http.StatusBadGateway, name+" request failed")
}
