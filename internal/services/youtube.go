package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
)

// YouTubeFetcher turns video URLs into transcript text. Firecrawl only sees the
// player page for these, so captions are fetched directly.
type YouTubeFetcher struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

type videoMetadata struct {
	Title       string
	Author      string
	Description string
	Duration    time.Duration
}

func NewYouTubeFetcher(client *http.Client) *YouTubeFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTubeFetcher{
		httpClient:    client,
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{HTTPClient: client},
	}
}

func (s *YouTubeFetcher) Name() string { return "youtube" }

func (s *YouTubeFetcher) Supports(url string) bool {
	return extractVideoID(url) != ""
}

// Fetch returns the transcript as markdown, falling back to the video
// description when no captions exist.
func (s *YouTubeFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	videoID := extractVideoID(url)
	if videoID == "" {
		return nil, newRemoteRejection(fmt.Sprintf("Invalid YouTube URL: %s", url))
	}

	meta, metaErr := s.metadata(ctx, url)
	if metaErr != nil {
		log.Printf("YouTube metadata lookup failed for %s: %v", videoID, metaErr)
	}

	transcript, err := s.transcript(ctx, videoID)
	if err != nil {
		log.Printf("Transcript extraction failed for %s: %v", videoID, err)
		if meta == nil || strings.TrimSpace(meta.Description) == "" {
			if metaErr != nil {
				return nil, newNetworkError("Failed to load the video", metaErr)
			}
			return nil, newEmptyResult("No content available for this video")
		}
	}

	page := &Page{URL: url, Source: s.Name(), Markdown: renderVideoMarkdown(meta, transcript)}
	if meta != nil {
		page.Title = meta.Title
	}
	return page, nil
}

func (s *YouTubeFetcher) metadata(ctx context.Context, url string) (*videoMetadata, error) {
	video, err := s.ytClient.GetVideoContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &videoMetadata{
		Title:       video.Title,
		Author:      video.Author,
		Description: video.Description,
		Duration:    video.Duration,
	}, nil
}

func (s *YouTubeFetcher) transcript(ctx context.Context, videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: request any available language
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			legacyTranscript, legacyErr := s.transcriptViaTimedText(ctx, videoID)
			if legacyErr == nil {
				return legacyTranscript, nil
			}
			return "", fmt.Errorf("no subtitles available via transcript API (%v) and timedtext fallback failed (%v)", err, legacyErr)
		}
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", fmt.Errorf("subtitle text resolved to empty content")
	}

	return cleaned, nil
}

func (s *YouTubeFetcher) transcriptViaTimedText(ctx context.Context, videoID string) (string, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read YouTube page: %w", err)
	}

	captionURL, err := extractCaptionURL(string(body))
	if err != nil {
		return "", err
	}

	captionReq, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return "", err
	}
	captionResp, err := s.httpClient.Do(captionReq)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}

	transcript, err := parseCaptionsXML(captionBody)
	if err != nil {
		return "", fmt.Errorf("failed to parse captions XML: %w", err)
	}

	return transcript, nil
}

func renderVideoMarkdown(meta *videoMetadata, transcript string) string {
	var b strings.Builder
	if meta != nil {
		if meta.Title != "" {
			b.WriteString("# " + meta.Title + "\n\n")
		}
		if meta.Author != "" {
			b.WriteString("Channel: " + meta.Author + "\n")
		}
		if meta.Duration > 0 {
			b.WriteString("Duration: " + meta.Duration.String() + "\n")
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
	}

	if transcript != "" {
		b.WriteString("## Transcript\n\n")
		b.WriteString(transcript)
		b.WriteString("\n")
	} else if meta != nil {
		b.WriteString("## Description\n\n")
		b.WriteString(strings.TrimSpace(meta.Description))
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

var (
	captionTracksPattern  = regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	captionTracksPattern2 = regexp.MustCompile(`"playerCaptionsTracklistRenderer"\s*:\s*\{(?:.*?,)?\s*"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	baseURLPattern        = regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	videoIDPattern        = regexp.MustCompile(`(?:v=|\/v\/|youtu\.be\/|embed\/|shorts\/)([a-zA-Z0-9_-]{11})`)
)

func extractCaptionURL(pageHTML string) (string, error) {
	matches := captionTracksPattern.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		matches = captionTracksPattern2.FindStringSubmatch(pageHTML)
		if len(matches) < 2 {
			return "", fmt.Errorf("no captions available for this video")
		}
	}

	urlMatches := baseURLPattern.FindStringSubmatch(matches[1])
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")

	return u, nil
}

func parseCaptionsXML(data []byte) (string, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", err
	}

	var parts []string
	for _, t := range tt.Texts {
		text := html.UnescapeString(t.Text)
		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("captions XML empty")
	}

	return strings.Join(parts, " "), nil
}

func extractVideoID(url string) string {
	parsed, err := urlpkg.Parse(strings.TrimSpace(url))
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	path := strings.Trim(parsed.Path, "/")

	// youtube.com/watch?v=VIDEO_ID
	if host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") {
		if v := parsed.Query().Get("v"); len(v) == 11 {
			return v
		}

		parts := strings.Split(path, "/")
		if len(parts) >= 2 {
			switch parts[0] {
			case "shorts", "embed", "v", "live":
				if len(parts[1]) == 11 {
					return parts[1]
				}
			}
		}
		return ""
	}

	// youtu.be/VIDEO_ID
	if host == "youtu.be" {
		candidate := strings.Split(path, "/")[0]
		if len(candidate) == 11 {
			return candidate
		}
		if m := videoIDPattern.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}

	return ""
}
