package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"localeditor/storage"
	"localeditor/types"
	"localeditor/utils"
	"localeditor/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager creates sessions and persists the shared settings and last
// selections.
type Manager struct {
	fetcher Fetcher
	store   storage.Store
	events  Events

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager wires a manager. events may be nil.
func NewManager(fetcher Fetcher, store storage.Store, events Events) *Manager {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Manager{
		fetcher:  fetcher,
		store:    store,
		events:   events,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Settings returns the saved settings merged over the defaults.
func (m *Manager) Settings(ctx context.Context) types.Settings {
	return storage.LoadJSON(ctx, m.store, storage.KeySettings, types.DefaultSettings(),
		func(saved, defaults types.Settings) types.Settings { return saved.Merge(defaults) })
}

// SaveSettings stores settings; blank fields fall back to the defaults.
func (m *Manager) SaveSettings(ctx context.Context, settings types.Settings) (types.Settings, error) {
	merged := settings.Merge(types.DefaultSettings())
	if err := storage.SaveJSON(ctx, m.store, storage.KeySettings, merged); err != nil {
		return types.Settings{}, err
	}
	return merged, nil
}

// ResetSettings forgets saved settings and returns the defaults.
func (m *Manager) ResetSettings(ctx context.Context) (types.Settings, error) {
	if err := m.store.Delete(ctx, storage.KeySettings); err != nil {
		return types.Settings{}, fmt.Errorf("reset settings: %w", err)
	}
	return types.DefaultSettings(), nil
}

// Selections returns the last saved selections merged over the defaults.
func (m *Manager) Selections(ctx context.Context) types.Selections {
	return storage.LoadJSON(ctx, m.store, storage.KeySelections, types.DefaultSelections(),
		func(saved, defaults types.Selections) types.Selections { return saved.Merge(defaults) })
}

func (m *Manager) saveSelections(ctx context.Context, sel types.Selections) {
	if err := storage.SaveJSON(ctx, m.store, storage.KeySelections, sel); err != nil {
		utils.Logger.Error("Failed to save selections", zap.Error(err))
	}
}

// Create opens a session for the saved selections overlaid by overrides
// and loads it.
func (m *Manager) Create(ctx context.Context, overrides types.Selections) *Session {
	sel := overrides.Merge(m.Selections(ctx))
	session := newSession(uuid.New(), m.fetcher, m.events)

	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	utils.Logger.Info("Session created", zap.String("session_id", session.id.String()))

	m.saveSelections(ctx, sel)
	session.Select(ctx, m.Settings(ctx), sel)
	return session
}

// Get returns a live session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Reselect overlays change on the session's selection, saves it and reloads.
func (m *Manager) Reselect(ctx context.Context, id uuid.UUID, change types.Selections) (*Session, error) {
	session, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	sel := change.Merge(session.Selection())
	m.saveSelections(ctx, sel)
	session.Select(ctx, m.Settings(ctx), sel)
	return session, nil
}

// Close removes a session.
func (m *Manager) Close(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.publish(ctx, websocket.SessionActionClosed, nil)
	utils.Logger.Info("Session closed", zap.String("session_id", id.String()))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were closed.
func (m *Manager) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var idle []uuid.UUID
	for id, session := range m.sessions {
		if session.lastActive().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if err := m.Close(ctx, id); err == nil {
			closed++
		}
	}
	return closed
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Logger.Debug("Session janitor stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(ctx, maxIdle); n > 0 {
				utils.Logger.Info("Closed idle sessions", zap.Int("count", n))
			}
		}
	}
}
