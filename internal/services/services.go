package services

import "context"

// Page is the content extracted for one URL.
type Page struct {
	URL      string
	Title    string
	Markdown string
	Source   string // "firecrawl", "youtube", "pdf", "simulated"
}

// Fetcher turns a URL into markdown text. Implementations make at most one
// logical attempt and never cache.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// SourceFetcher is a Fetcher that only handles some URLs.
type SourceFetcher interface {
	Fetcher
	Name() string
	Supports(url string) bool
}

// ChatEngine answers a single question against page content. Prior turns are
// never sent.
type ChatEngine interface {
	Ask(ctx context.Context, pageContent, question string) (string, error)
}
