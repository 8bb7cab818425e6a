package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"yomitore/internal/quiz"
)

var ErrInvalidEntry = errors.New("history entry requires session id and verdict")

const defaultListLimit = 500

// Entry is one judgment or dispute of a session.
type Entry struct {
	SessionID     string       `json:"session_id"`
	QuestionNo    int          `json:"question_no"`
	Question      string       `json:"question"`
	ReadingAnswer string       `json:"reading_answer"`
	DisplayAnswer string       `json:"display_answer"`
	Answer        string       `json:"answer"`
	Verdict       quiz.Verdict `json:"verdict"`
	RecordedAt    time.Time    `json:"recorded_at"`
}

func (e Entry) validate() error {
	if e.SessionID == "" || e.Verdict == quiz.VerdictNone {
		return ErrInvalidEntry
	}
	return nil
}

// Recorder is an append-only judgment log.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, sessionID string, limit int) ([]Entry, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}

// MemoryStore keeps entries in process memory, capped per session.
type MemoryStore struct {
	mu         sync.RWMutex
	perSession int
	entries    map[string][]Entry
}

func NewMemoryStore(perSession int) *MemoryStore {
	if perSession <= 0 {
		perSession = 1000
	}
	return &MemoryStore{perSession: perSession, entries: make(map[string][]Entry)}
}

func (m *MemoryStore) Record(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.entries[e.SessionID], e)
	if over := len(list) - m.perSession; over > 0 {
		list = append([]Entry(nil), list[over:]...)
	}
	m.entries[e.SessionID] = list
	return nil
}

// List returns the newest entries of a session in chronological order.
func (m *MemoryStore) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	limit = normalizeLimit(limit)
	m.mu.RLock()
	src := m.entries[sessionID]
	if len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]Entry, len(src))
	copy(out, src)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// Forget drops every entry of a session.
func (m *MemoryStore) Forget(sessionID string) {
	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()
}
