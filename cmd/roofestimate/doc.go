// Package main hosts the roofestimate service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, the estimate calculator, location pages, CMS posts and
//     blog job management. Blog routes require the API key when auth is enabled.
//   - Dispatcher & queue: blog jobs flow through a bounded in-memory queue sized by automation.queue_depth and are
//     fanned out to a fixed worker pool sized by automation.concurrency. A full queue rejects submissions with 503.
//   - Pipeline: each job resolves a keyword (explicit or the top Search Console opportunity), snapshots the SERP,
//     optionally analyzes competitor pages with colly, asks Gemini for a draft, then stores it.
//   - Persistence & fanout: draft markdown goes to the configured BlobStore (memory/local/GCS), metadata to Postgres
//     when db.dsn is set, and a draft.ready message is published to Pub/Sub when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files (prefix ROOFEST); zap provides structured
//     logging; Prometheus metrics are exported on /metrics.
//
// Quick checklist:
//   - Configure env vars: ROOFEST_SERVER_PORT or PORT, ROOFEST_SERP_API_KEY, ROOFEST_GENAI_API_KEY,
//     ROOFEST_SEARCH_CONSOLE_* for keyword discovery, ROOFEST_CMS_BASE_URL for posts, storage and pubsub as needed.
//   - Run locally: go run ./cmd/roofestimate serve --config config.yaml
//   - One-off: go run ./cmd/roofestimate estimate --sqft 2000 --material architectural-shingle --pitch medium
package main
