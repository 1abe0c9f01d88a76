package analysis

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Sentinel values reported when the policy file omits a directive.
const (
	CrawlDelayNotSpecified = "not specified"
	CrawlDelayUnknown      = "Unknown"
	SitemapNoneFound       = "none found"
)

// ErrInvalidURL is returned when a request URL is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid url")

// ErrRenderingDisabled is returned by renderers that are switched off.
var ErrRenderingDisabled = errors.New("browser rendering disabled")

// Request is the unit of work: one absolute URL.
type Request struct {
	URL string
}

// NewRequest validates rawURL and builds a Request.
func NewRequest(rawURL string) (Request, error) {
	trimmed := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return Request{}, fmt.Errorf("%w: %q must be an absolute http(s) URL", ErrInvalidURL, rawURL)
	}
	return Request{URL: trimmed}, nil
}

// Origin returns scheme://host of the request URL.
func (r Request) Origin() string {
	parsed, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	return (&url.URL{Scheme: parsed.Scheme, Host: parsed.Host}).String()
}

// PolicyReport summarizes the site's robots.txt.
type PolicyReport struct {
	Allowed     bool     `json:"can_crawl"`
	CrawlDelay  string   `json:"crawl_delay,omitempty"`
	SitemapURLs []string `json:"sitemap_urls,omitempty"`
	// DisallowAll is set when the wildcard group disallows the site root.
	DisallowAll bool     `json:"disallow_all"`
	Error       string   `json:"error,omitempty"`
}

// Failed reports whether the policy probe ended in error.
func (p PolicyReport) Failed() bool { return p.Error != "" }

// ContentReport carries what was extracted from the page itself.
type ContentReport struct {
	Titles       []string `json:"titles,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
	Links        []string `json:"links,omitempty"`
	NextPage     string   `json:"next_page,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Failed reports whether the content probe ended in error.
func (c ContentReport) Failed() bool { return c.Error != "" }

// AccessReport captures rendering dependence and machine-readable entry points.
type AccessReport struct {
	IsRenderDependent bool     `json:"is_js_heavy"`
	APIDetected       bool     `json:"api_detected"`
	APIEndpoint       string   `json:"api_endpoint,omitempty"`
	FeedURLs          []string `json:"rss_feeds"`
	Error             string   `json:"error,omitempty"`
}

// Outcome holds exactly one report per probe.
type Outcome struct {
	Policy  PolicyReport  `json:"policy"`
	Content ContentReport `json:"content"`
	Access  AccessReport  `json:"access"`
}

// Record is the persisted merge of one request's outcome.
type Record struct {
	ID        int64
	URL       string
	Timestamp time.Time
	Outcome
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Policy.SitemapURLs = cloneStrings(r.Policy.SitemapURLs)
	out.Content.Titles = cloneStrings(r.Content.Titles)
	out.Content.Descriptions = cloneStrings(r.Content.Descriptions)
	out.Content.Links = cloneStrings(r.Content.Links)
	out.Access.FeedURLs = cloneStrings(r.Access.FeedURLs)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// Columns lists the persisted schema in storage order.
var Columns = []string{
	"id",
	"url",
	"timestamp",
	"titles",
	"descriptions",
	"links",
	"can_crawl",
	"crawl_delay",
	"sitemap_urls",
	"is_js_heavy",
	"api_detected",
	"rss_feeds",
}

// TimestampLayout is the ISO-8601 layout used for the timestamp column.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// StoredCrawlDelay returns the crawl_delay column value for the record.
func (r Record) StoredCrawlDelay() string {
	if r.Policy.Failed() || r.Policy.CrawlDelay == "" {
		return CrawlDelayUnknown
	}
	return r.Policy.CrawlDelay
}

// StoredSitemaps returns the sitemap_urls column value for the record.
func (r Record) StoredSitemaps() []string {
	if r.Policy.Failed() {
		return []string{}
	}
	return NonNil(r.Policy.SitemapURLs)
}

// StoredCanCrawl returns the can_crawl column value for the record.
func (r Record) StoredCanCrawl() bool {
	return !r.Policy.Failed() && r.Policy.Allowed
}

// NonNil returns in, or an empty slice when in is nil.
func NonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
