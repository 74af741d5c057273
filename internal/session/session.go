package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitechat-backend/internal/models"
	"sitechat-backend/internal/services"
)

var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrBusy            = errors.New("session is busy")
	ErrNotReady        = errors.New("no website content loaded")
	ErrSessionNotFound = errors.New("session not found")
)

// ProcessingSteps are reported, in order, while a URL is being processed.
var ProcessingSteps = []string{
	"Starting up Firecrawl engine...",
	"Initializing website processing...",
	"Crawling website content...",
	"Processing website data...",
	"Preparing chat interface...",
}

// Publisher receives session events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, uuid.UUID, models.WSMessage) {}

type Options struct {
	Mode      models.Mode
	Publisher Publisher

	// WarmupDelay follows the first processing step and PrepareDelay the
	// last one.
	WarmupDelay  time.Duration
	PrepareDelay time.Duration

	IdleTTL time.Duration
	// OnEvict runs for every session removed by the idle sweeper.
	OnEvict func(id uuid.UUID)
}

// Session is one conversation about one page. All state changes happen under
// mu; outbound calls are made with mu released.
type Session struct {
	id      uuid.UUID
	fetcher services.Fetcher
	chat    services.ChatEngine
	opts    Options

	mu         sync.Mutex
	phase      models.Phase
	targetURL  string
	content    *string
	source     string
	title      string
	history    []models.Message
	steps      []string
	generation uint64
	lastActive time.Time
}

func newSession(fetcher services.Fetcher, chat services.ChatEngine, opts Options) *Session {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Mode == "" {
		opts.Mode = models.ModeLive
	}
	return &Session{
		id:         uuid.New(),
		fetcher:    fetcher,
		chat:       chat,
		opts:       opts,
		phase:      models.PhaseIdle,
		lastActive: time.Now(),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// SubmitURL fetches the page and makes it the subject of the conversation.
// Fetch failures are recorded in the history, not returned.
func (s *Session) SubmitURL(ctx context.Context, url string) (models.SessionSnapshot, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return s.Snapshot(), ErrEmptyInput
	}

	s.mu.Lock()
	if s.phase == models.PhaseProcessing {
		s.mu.Unlock()
		return s.Snapshot(), ErrBusy
	}
	s.generation++
	gen := s.generation
	s.phase = models.PhaseProcessing
	s.targetURL = url
	s.content = nil
	s.source = ""
	s.title = ""
	s.history = nil
	s.steps = nil
	s.lastActive = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, models.EventPhaseChanged, snap)

	page, err := s.process(ctx, gen, url)

	s.mu.Lock()
	if s.generation != gen {
		snap = s.snapshotLocked()
		s.mu.Unlock()
		log.Printf("Session %s: discarded stale result for %s", s.id, url)
		return snap, nil
	}

	s.steps = nil
	s.lastActive = time.Now()
	if err != nil {
		log.Printf("Session %s: failed to fetch %s: %v", s.id, url, err)
		s.phase = models.PhaseIdle
		s.history = []models.Message{{
			Origin: models.OriginAssistant,
			Text:   fmt.Sprintf("Error: %s. Please try again.", services.UserMessage(err)),
		}}
	} else {
		content := page.Markdown
		s.content = &content
		s.source = page.Source
		s.title = page.Title
		s.phase = models.PhaseReady
		s.history = []models.Message{{
			Origin: models.OriginAssistant,
			Text:   fmt.Sprintf("I've processed %s and I'm ready to chat about it! Ask me anything about the website's content.", url),
		}}
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, models.EventPhaseChanged, snap)
	return snap, nil
}

// process walks the progress steps around the single fetch call. It stops
// reporting steps once the session has moved on, but still returns the fetch
// result so the caller can discard it.
func (s *Session) process(ctx context.Context, gen uint64, url string) (*services.Page, error) {
	s.step(ctx, gen, 0)
	pause(ctx, s.opts.WarmupDelay)
	s.step(ctx, gen, 1)
	s.step(ctx, gen, 2)

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if page == nil || page.Markdown == "" {
		return nil, &services.ServiceError{Kind: services.KindEmptyResult, Message: "No content available from the website"}
	}

	s.step(ctx, gen, 3)
	s.step(ctx, gen, 4)
	pause(ctx, s.opts.PrepareDelay)
	return page, nil
}

func (s *Session) step(ctx context.Context, gen uint64, i int) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.steps = append(s.steps, ProcessingSteps[i])
	s.mu.Unlock()

	s.publish(ctx, models.EventProcessingStep, models.StepUpdate{
		SessionID: s.id,
		Step:      i + 1,
		StepName:  ProcessingSteps[i],
		Total:     len(ProcessingSteps),
	})
}

// SubmitQuestion asks one question about the loaded page. Only one question
// may be outstanding at a time. Chat failures replace the pending answer
// with an error message.
func (s *Session) SubmitQuestion(ctx context.Context, text string) (models.SessionSnapshot, error) {
	if strings.TrimSpace(text) == "" {
		return s.Snapshot(), ErrEmptyInput
	}

	s.mu.Lock()
	if s.content == nil {
		s.mu.Unlock()
		return s.Snapshot(), ErrNotReady
	}
	if n := len(s.history); n > 0 && s.history[n-1].Pending {
		s.mu.Unlock()
		return s.Snapshot(), ErrBusy
	}
	gen := s.generation
	content := *s.content
	s.history = append(s.history,
		models.Message{Origin: models.OriginUser, Text: text},
		models.Message{Origin: models.OriginAssistant, Pending: true},
	)
	idx := len(s.history) - 1
	s.lastActive = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, models.EventMessagePending, snap)

	answer, err := s.chat.Ask(ctx, content, text)

	s.mu.Lock()
	if s.generation != gen {
		snap = s.snapshotLocked()
		s.mu.Unlock()
		log.Printf("Session %s: discarded stale answer", s.id)
		return snap, nil
	}
	resolved := models.Message{Origin: models.OriginAssistant, Text: answer}
	if err != nil {
		log.Printf("Session %s: chat request failed: %v", s.id, err)
		resolved.Text = "Sorry, I encountered an error. Please try again. Error: " + services.UserMessage(err)
	}
	s.history[idx] = resolved
	s.lastActive = time.Now()
	snap = s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, models.EventMessageResolved, snap)
	return snap, nil
}

// Reset returns the session to Idle. Results of calls still in flight are
// dropped when they arrive. The target URL is kept.
func (s *Session) Reset(ctx context.Context) models.SessionSnapshot {
	s.mu.Lock()
	s.generation++
	s.phase = models.PhaseIdle
	s.content = nil
	s.source = ""
	s.title = ""
	s.history = nil
	s.steps = nil
	s.lastActive = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, models.EventSessionReset, snap)
	return snap
}

func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		ID:         s.id,
		Phase:      s.phase,
		Mode:       s.opts.Mode,
		TargetURL:  s.targetURL,
		Source:     s.source,
		Title:      s.title,
		History:    make([]models.Message, len(s.history)),
		LastActive: s.lastActive,
	}
	copy(snap.History, s.history)
	if s.content != nil {
		content := *s.content
		snap.Content = &content
	}
	if len(s.steps) > 0 {
		snap.Steps = append([]string(nil), s.steps...)
	}
	return snap
}

// idle reports whether the session has nothing in flight and has not been
// touched since the cutoff.
func (s *Session) idle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == models.PhaseProcessing {
		return false
	}
	if n := len(s.history); n > 0 && s.history[n-1].Pending {
		return false
	}
	return s.lastActive.Before(cutoff)
}

func (s *Session) publish(ctx context.Context, eventType string, payload interface{}) {
	s.opts.Publisher.Publish(ctx, s.id, models.WSMessage{Type: eventType, Payload: payload})
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
