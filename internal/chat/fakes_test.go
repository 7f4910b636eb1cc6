package chat

import (
	"context"
	"io"
	"sort"
	"sync"

	"slimechat/backend/internal/models"
	"slimechat/backend/internal/store"
	"slimechat/backend/pkg/logger"
)

// memMessages is an in-memory MessageRepository for hub and retention tests
type memMessages struct {
	mu        sync.Mutex
	messages  []models.Message
	appendErr error
	listErr   error
	vacuums   int
}

func (m *memMessages) Append(ctx context.Context, message *models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.messages = append(m.messages, *message)
	return nil
}

func (m *memMessages) FindByID(ctx context.Context, id string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			found := m.messages[i]
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memMessages) UpdateContent(ctx context.Context, id string, content string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].Content = content
			found := m.messages[i]
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memMessages) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memMessages) newestFirst() []models.Message {
	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	sort.Slice(out, func(i, j int) bool {
		return out[i].UnixTime > out[j].UnixTime
	})
	return out
}

func (m *memMessages) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := m.newestFirst()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memMessages) ListByUser(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.newestFirst() {
		if msg.UserID == userID {
			out = append(out, msg)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memMessages) RetentionCutoff(ctx context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.newestFirst()
	if len(out) <= keep {
		return 0, nil
	}
	return out[keep].UnixTime, nil
}

func (m *memMessages) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.Message
	var deleted int64
	for _, msg := range m.messages {
		if msg.UnixTime <= cutoff {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return deleted, nil
}

func (m *memMessages) Vacuum(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vacuums++
	return nil
}

func (m *memMessages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// memPresence is an in-memory PresenceRepository
type memPresence struct {
	mu   sync.Mutex
	rows map[string]models.Presence
}

func newMemPresence() *memPresence {
	return &memPresence{rows: make(map[string]models.Presence)}
}

func (m *memPresence) Upsert(ctx context.Context, presence *models.Presence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[presence.ConnectionID] = *presence
	return nil
}

func (m *memPresence) Remove(ctx context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, connectionID)
	return nil
}

func (m *memPresence) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]models.Presence)
	return nil
}

// fakeConn records delivered events for assertions
type fakeConn struct {
	id   string
	mu   sync.Mutex
	got  []Event
	full bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string {
	return c.id
}

func (c *fakeConn) Deliver(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.got = append(c.got, event)
	return true
}

func (c *fakeConn) events(name string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.got {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", JSON: false, Output: io.Discard})
}

func newTestHub(ms *memMessages, ps *memPresence) *Hub {
	return NewHub(HubConfig{
		MaxNameLength:      32,
		MaxMessageLength:   500,
		RateLimitPerMinute: 30,
		HistoryPageSize:    50,
	}, ms, ps, testLogger())
}
