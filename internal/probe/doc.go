// Package probe implements the three independent analyses run against a URL:
// the robots.txt policy check, page content extraction, and the rendering
// and access-point probe. Every probe returns an analysis.Result and never
// panics or returns a Go error for site-side failures.
package probe
