package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitechat-backend/internal/models"
	"sitechat-backend/internal/services"
)

// Manager owns every live session of the process. Sessions are never
// persisted.
type Manager struct {
	fetcher services.Fetcher
	chat    services.ChatEngine
	opts    Options

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewManager(fetcher services.Fetcher, chat services.ChatEngine, opts Options) *Manager {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Mode == "" {
		opts.Mode = models.ModeLive
	}
	return &Manager{
		fetcher:  fetcher,
		chat:     chat,
		opts:     opts,
		sessions: make(map[uuid.UUID]*Session),
		stopChan: make(chan struct{}),
	}
}

func (m *Manager) Mode() models.Mode { return m.opts.Mode }

func (m *Manager) Create() *Session {
	s := newSession(m.fetcher, m.chat, m.opts)

	m.mu.Lock()
	m.sessions[s.id] = s
	total := len(m.sessions)
	m.mu.Unlock()

	log.Printf("Session %s created (mode: %s, total: %d)", s.id, m.opts.Mode, total)
	return s
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Exists(id uuid.UUID) bool {
	_, err := m.Get(id)
	return err == nil
}

func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start runs the idle sweeper until Stop. A zero IdleTTL disables eviction.
func (m *Manager) Start(interval time.Duration) {
	if m.opts.IdleTTL <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopChan:
				return
			case now := <-ticker.C:
				if n := m.Sweep(now); n > 0 {
					log.Printf("Evicted %d idle sessions", n)
				}
			}
		}
	}()

	log.Printf("Session sweeper started (idle TTL: %s)", m.opts.IdleTTL)
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// Sweep evicts sessions idle for longer than IdleTTL as of now. Sessions with
// a call in flight are kept.
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.opts.IdleTTL)

	m.mu.Lock()
	var evicted []uuid.UUID
	for id, s := range m.sessions {
		if s.idle(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	if m.opts.OnEvict != nil {
		for _, id := range evicted {
			m.opts.OnEvict(id)
		}
	}
	return len(evicted)
}
