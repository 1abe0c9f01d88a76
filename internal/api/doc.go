// Package api hosts the HTTP server, middleware, and REST handlers behind the
// dashboard. Notable routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/analyses to analyze one URL and return the stored record.
//   - GET /v1/analyses?url= to list earlier records for a URL.
//   - GET /v1/analyses/export?url= to download those records as CSV.
package api
