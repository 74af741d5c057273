package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SimulatedFetcher stands in for the scraping service when credentials are
// missing. It never touches the network.
type SimulatedFetcher struct {
	delay   time.Duration
	missing []string
}

// NewSimulatedFetcher takes the names of the missing credentials so the
// placeholder can tell the user what to configure.
func NewSimulatedFetcher(delay time.Duration, missing ...string) *SimulatedFetcher {
	return &SimulatedFetcher{delay: delay, missing: missing}
}

func (f *SimulatedFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := sleepContext(ctx, f.delay); err != nil {
		return nil, err
	}
	return &Page{
		URL:      url,
		Title:    "Demo content",
		Markdown: SimulatedContent(url, f.missing...),
		Source:   "simulated",
	}, nil
}

// SimulatedContent is the fixed placeholder page used in demo mode.
func SimulatedContent(url string, missing ...string) string {
	return fmt.Sprintf(`# [Demo mode] Simulated content for %s

This page was not fetched. The service is running in demo mode because the scraping and chat credentials are not configured.

## What you can do
- Ask questions to see how the conversation works
- Configure %s to chat about the real page

Source: %s`, url, credentialList(missing), url)
}

func credentialList(names []string) string {
	switch len(names) {
	case 0:
		return "the scraping and chat credentials"
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// SimulatedChat returns canned, clearly labeled answers.
type SimulatedChat struct {
	delay time.Duration
}

func NewSimulatedChat(delay time.Duration) *SimulatedChat {
	return &SimulatedChat{delay: delay}
}

func (c *SimulatedChat) Ask(ctx context.Context, pageContent, question string) (string, error) {
	if err := sleepContext(ctx, c.delay); err != nil {
		return "", err
	}
	return FormatAnswer(SimulatedAnswer(question)), nil
}

// SimulatedAnswer is the unformatted demo-mode reply to a question.
func SimulatedAnswer(question string) string {
	return fmt.Sprintf("[Demo mode] You asked: %q. This is a simulated answer. No language model was contacted. Configure the chat credentials to get real answers about the page.", question)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
