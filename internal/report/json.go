package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

// Document is the JSON shape of one analysis.
type Document struct {
	ID              int64                  `json:"id"`
	URL             string                 `json:"url"`
	Timestamp       time.Time              `json:"timestamp"`
	Policy          analysis.PolicyReport  `json:"policy"`
	Content         analysis.ContentReport `json:"content"`
	Access          analysis.AccessReport  `json:"access"`
	Recommendations []string               `json:"recommendations"`
}

// NewDocument builds the JSON view of a record.
func NewDocument(rec analysis.Record) Document {
	return Document{
		ID:              rec.ID,
		URL:             rec.URL,
		Timestamp:       rec.Timestamp,
		Policy:          rec.Policy,
		Content:         rec.Content,
		Access:          rec.Access,
		Recommendations: analysis.Recommend(rec.Outcome),
	}
}

// WriteJSON encodes the record as an indented Document.
func WriteJSON(w io.Writer, rec analysis.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(rec)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
