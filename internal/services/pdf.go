package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"path"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const maxPDFBytes = 25 * 1024 * 1024

// PDFFetcher downloads PDF documents and extracts their plain text.
type PDFFetcher struct {
	client *http.Client
}

func NewPDFFetcher(client *http.Client) *PDFFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &PDFFetcher{client: client}
}

func (s *PDFFetcher) Name() string { return "pdf" }

func (s *PDFFetcher) Supports(url string) bool {
	parsed, err := urlpkg.Parse(strings.TrimSpace(url))
	if err != nil || parsed.Host == "" {
		return false
	}
	return strings.EqualFold(path.Ext(parsed.Path), ".pdf")
}

func (s *PDFFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newRemoteRejection(fmt.Sprintf("Invalid URL: %s", url))
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, newNetworkError("Failed to download the document", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRemoteRejection(fmt.Sprintf("Failed to download the document (status %d)", resp.StatusCode))
	}

	limited := io.LimitReader(resp.Body, maxPDFBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, newNetworkError("Failed to read the document", err)
	}
	if len(data) > maxPDFBytes {
		return nil, newRemoteRejection(fmt.Sprintf("Document exceeds %d MB limit", maxPDFBytes/(1024*1024)))
	}

	text, err := extractPDFText(data)
	if err != nil {
		return nil, newMalformedResponse("The document is not a readable PDF", err)
	}
	if text == "" {
		return nil, newEmptyResult("No extractable text found in the document")
	}

	return &Page{URL: url, Source: s.Name(), Markdown: text}, nil
}

func extractPDFText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return normalizeExtractedText(b.String()), nil
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
