// Package api hosts the HTTP server, middleware, and REST handlers.
// Notable routes:
//   - GET /healthz and /readyz for probes, GET /metrics for Prometheus.
//   - GET /v1/materials, /v1/pitches, /v1/regions and POST /v1/estimates for
//     the roof cost calculator.
//   - GET /v1/locations and /v1/locations/{slug}/estimate for city pages.
//   - GET /v1/posts and /v1/posts/{slug} backed by the CMS cache.
//   - /v1/blog/... for blog automation jobs, guarded by the API key when
//     auth is enabled.
package api
