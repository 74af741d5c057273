package services

import (
	"context"
	"strings"
)

// SourceRouter sends each URL to the first source that supports it and to the
// fallback otherwise.
type SourceRouter struct {
	sources  []SourceFetcher
	fallback Fetcher
}

func NewSourceRouter(fallback Fetcher, sources ...SourceFetcher) *SourceRouter {
	return &SourceRouter{sources: sources, fallback: fallback}
}

func (r *SourceRouter) Fetch(ctx context.Context, url string) (*Page, error) {
	url = strings.TrimSpace(url)
	for _, src := range r.sources {
		if src.Supports(url) {
			return src.Fetch(ctx, url)
		}
	}
	return r.fallback.Fetch(ctx, url)
}
