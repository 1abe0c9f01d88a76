// Package report renders a finished analysis for people (Markdown) and for
// programs (JSON).
package report
