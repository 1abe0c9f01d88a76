package analysis

// Recommendation texts, in the order they are evaluated.
const (
	RecommendStatic   = "Use a plain HTTP client with an HTML parser for efficient static content extraction."
	RecommendRenderer = "Employ a headless browser for rendering JavaScript-heavy content."
	RecommendAPI      = "Investigate API endpoints for structured data access."
	RecommendFeed     = "Leverage RSS feeds for real-time content updates."
	RecommendFallback = "No specific recommendations; check website for additional access methods."
)

// Recommend derives scraping advice from the three reports.
func Recommend(out Outcome) []string {
	var recs []string
	if !out.Policy.Failed() && out.Policy.Allowed {
		recs = append(recs, RecommendStatic)
	}
	if out.Access.IsRenderDependent {
		recs = append(recs, RecommendRenderer)
	}
	if out.Access.APIDetected {
		recs = append(recs, RecommendAPI)
	}
	if len(out.Access.FeedURLs) > 0 {
		recs = append(recs, RecommendFeed)
	}
	if len(recs) == 0 {
		recs = append(recs, RecommendFallback)
	}
	return recs
}
