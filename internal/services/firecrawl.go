package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// FirecrawlFetcher scrapes pages through the Firecrawl scrape API.
type FirecrawlFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type firecrawlScrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    *struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data,omitempty"`
	// Older API versions returned markdown at the top level.
	Markdown string `json:"markdown,omitempty"`
}

func NewFirecrawlFetcher(baseURL, apiKey string, client *http.Client) *FirecrawlFetcher {
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &FirecrawlFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (f *FirecrawlFetcher) Name() string { return "firecrawl" }

// Supports accepts every URL; Firecrawl is the fallback source.
func (f *FirecrawlFetcher) Supports(string) bool { return true }

// Fetch scrapes a single URL and returns its markdown.
func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	body, err := json.Marshal(firecrawlScrapeRequest{
		URL:     url,
		Formats: []string{"markdown", "html"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newNetworkError("Failed to reach the scraping service", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError("Failed to read scraping response", err)
	}

	var result firecrawlScrapeResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Firecrawl error for %s: status=%d body=%s", url, resp.StatusCode, truncate(string(raw), 500))
		if decodeErr == nil && result.Error != "" {
			return nil, newRemoteRejection(result.Error)
		}
		return nil, newRemoteRejection(fmt.Sprintf("Failed to scrape website (status %d)", resp.StatusCode))
	}

	if decodeErr != nil {
		return nil, newMalformedResponse("Received an unreadable response from the scraping service", decodeErr)
	}

	if !result.Success {
		if result.Error != "" {
			return nil, newRemoteRejection(result.Error)
		}
		return nil, newRemoteRejection("Failed to scrape website")
	}

	page := &Page{URL: url, Source: f.Name()}
	if result.Data != nil {
		page.Markdown = result.Data.Markdown
		page.Title = result.Data.Metadata.Title
	}
	if page.Markdown == "" {
		page.Markdown = result.Markdown
	}

	if page.Markdown == "" {
		return nil, newEmptyResult("No content available from the website")
	}

	return page, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
