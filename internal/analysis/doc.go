// Package analysis holds the request, report, and record types for a single
// crawlability analysis, the interfaces the probes and stores implement, and
// the recommendation heuristics derived from a finished outcome.
package analysis
