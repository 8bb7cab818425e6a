package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"yomitore/internal/dataset"
	"yomitore/internal/history"
	"yomitore/internal/quiz"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Loader supplies a fresh, unshuffled item list for every new session.
type Loader interface {
	Load(ctx context.Context) ([]quiz.Item, error)
}

type Options struct {
	Reveal      quiz.RevealSettings
	MinInterval time.Duration
	MaxInterval time.Duration
	SessionTTL  time.Duration
	Clock       quiz.Clock
	Shuffle     func([]quiz.Item) []quiz.Item
	NewID       func() string
	Recorder    history.Recorder
	Logger      *zap.Logger
}

type intervalLimits struct {
	min time.Duration
	max time.Duration
}

func (l intervalLimits) clamp(d time.Duration) time.Duration {
	if d < l.min {
		return l.min
	}
	if d > l.max {
		return l.max
	}
	return d
}

// Service owns every live quiz session. Each session has its own lock so
// actions on one session are applied strictly in order.
type Service struct {
	loader   Loader
	recorder history.Recorder
	log      *zap.Logger
	clock    quiz.Clock
	shuffle  func([]quiz.Item) []quiz.Item
	newID    func() string
	reveal   quiz.RevealSettings
	limits   intervalLimits
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu       sync.Mutex
	state    quiz.Session
	lastSeen time.Time

	// recMu orders history writes against discard; gone is set once the
	// session is discarded and blocks later writes.
	recMu sync.Mutex
	gone  bool
}

type StartInput struct {
	RevealEnabled  *bool
	RevealInterval time.Duration
	// Replace is the id of a session this one supersedes; it is discarded.
	Replace string
}

type RevealInput struct {
	Enabled  *bool
	Interval time.Duration
}

func NewService(loader Loader, opts Options) *Service {
	limits := intervalLimits{min: opts.MinInterval, max: opts.MaxInterval}
	if limits.min <= 0 {
		limits.min = 20 * time.Millisecond
	}
	if limits.max < limits.min {
		limits.max = time.Second
		if limits.max < limits.min {
			limits.max = limits.min
		}
	}
	reveal := opts.Reveal
	if reveal.Interval <= 0 {
		reveal.Interval = 100 * time.Millisecond
	}
	reveal.Interval = limits.clamp(reveal.Interval)

	s := &Service{
		loader:   loader,
		recorder: opts.Recorder,
		log:      opts.Logger,
		clock:    opts.Clock,
		shuffle:  opts.Shuffle,
		newID:    opts.NewID,
		reveal:   reveal,
		limits:   limits,
		ttl:      opts.SessionTTL,
		sessions: make(map[string]*sessionEntry),
	}
	if s.recorder == nil {
		s.recorder = history.NewMemoryStore(0)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = quiz.SystemClock{}
	}
	if s.shuffle == nil {
		s.shuffle = func(items []quiz.Item) []quiz.Item { return quiz.Shuffle(items, nil) }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.ttl <= 0 {
		s.ttl = 2 * time.Hour
	}
	return s
}

// Start loads the data, shuffles it once and opens a new session on the
// first question. Load failures are returned as *dataset.LoadError.
func (s *Service) Start(ctx context.Context, in StartInput) (*View, error) {
	items, err := s.loader.Load(ctx)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		if le, ok := dataset.IsLoadError(err); ok {
			fields = append(fields, zap.String("reason", string(le.Reason)), zap.String("source", le.Source))
		}
		s.log.Error("quiz data load failed", fields...)
		return nil, err
	}

	reveal := s.reveal
	if in.RevealEnabled != nil {
		reveal.Enabled = *in.RevealEnabled
	}
	if in.RevealInterval > 0 {
		reveal.Interval = s.limits.clamp(in.RevealInterval)
	}

	now := s.clock.Now()
	state, err := quiz.Reduce(quiz.NewSession(s.shuffle(items), reveal), quiz.Event{Kind: quiz.EventStart, At: now})
	if err != nil {
		return nil, err
	}

	id := s.newID()
	s.mu.Lock()
	s.pruneLocked(now)
	if in.Replace != "" {
		s.discardLocked(in.Replace)
	}
	s.sessions[id] = &sessionEntry{state: state, lastSeen: now}
	s.mu.Unlock()

	s.log.Info("quiz session started",
		zap.String("session_id", id),
		zap.Int("items", len(items)),
		zap.Bool("reveal", reveal.Enabled),
		zap.Duration("reveal_interval", reveal.Interval),
	)
	return buildView(id, state, s.limits), nil
}

func (s *Service) State(ctx context.Context, id string) (*View, error) {
	return s.apply(ctx, id)
}

func (s *Service) Submit(ctx context.Context, id, answer string) (*View, error) {
	return s.apply(ctx, id, quiz.Event{Kind: quiz.EventSubmit, Answer: answer})
}

func (s *Service) Stop(ctx context.Context, id string) (*View, error) {
	return s.apply(ctx, id, quiz.Event{Kind: quiz.EventStop})
}

func (s *Service) Next(ctx context.Context, id string) (*View, error) {
	return s.apply(ctx, id, quiz.Event{Kind: quiz.EventNext})
}

func (s *Service) Dispute(ctx context.Context, id string) (*View, error) {
	return s.apply(ctx, id, quiz.Event{Kind: quiz.EventDispute})
}

func (s *Service) Hint(ctx context.Context, id string) (*View, error) {
	return s.apply(ctx, id, quiz.Event{Kind: quiz.EventHint})
}

// UpdateReveal changes the toggle and/or the speed. Intervals are clamped to
// the configured bounds.
func (s *Service) UpdateReveal(ctx context.Context, id string, in RevealInput) (*View, error) {
	var events []quiz.Event
	if in.Interval > 0 {
		events = append(events, quiz.Event{Kind: quiz.EventSetInterval, Interval: s.limits.clamp(in.Interval)})
	} else if in.Interval < 0 {
		return nil, quiz.ErrInvalidInterval
	}
	if in.Enabled != nil {
		events = append(events, quiz.Event{Kind: quiz.EventSetReveal, Enabled: *in.Enabled})
	}
	return s.apply(ctx, id, events...)
}

// End discards a session.
func (s *Service) End(ctx context.Context, id string) error {
	if _, err := s.lookup(id, s.clock.Now()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	s.discardLocked(id)
	return nil
}

func (s *Service) History(ctx context.Context, id string, limit int) ([]history.Entry, error) {
	if _, err := s.lookup(id, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.recorder.List(ctx, id, limit)
}

// apply syncs the reveal clock and then applies events in order. The state
// after a failed event is the synced state before it.
func (s *Service) apply(ctx context.Context, id string, events ...quiz.Event) (*View, error) {
	entry, err := s.lookup(id, s.clock.Now())
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	now := s.clock.Now()
	entry.lastSeen = now
	state, _ := quiz.Reduce(entry.state, quiz.Event{Kind: quiz.EventSync, At: now})
	var logged []history.Entry
	for _, ev := range events {
		ev.At = now
		next, err := quiz.Reduce(state, ev)
		if err != nil {
			entry.state = state
			entry.mu.Unlock()
			s.record(ctx, entry, logged)
			return nil, err
		}
		state = next
		if rec, ok := historyEntry(id, ev.Kind, state, now); ok {
			logged = append(logged, rec)
		}
	}
	entry.state = state
	view := buildView(id, state, s.limits)
	entry.mu.Unlock()

	s.record(ctx, entry, logged)
	return view, nil
}

func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lookup returns a live session. A session idle past the TTL is discarded
// here so it cannot be used even when no new session prunes it.
func (s *Service) lookup(id string, now time.Time) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.mu.Lock()
	idle := now.Sub(entry.lastSeen)
	entry.mu.Unlock()
	if idle > s.ttl {
		s.discardLocked(id)
		s.log.Debug("quiz session expired", zap.String("session_id", id), zap.Duration("idle", idle))
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// pruneLocked drops sessions idle for longer than the TTL. Caller holds s.mu.
func (s *Service) pruneLocked(now time.Time) {
	for id, entry := range s.sessions {
		entry.mu.Lock()
		idle := now.Sub(entry.lastSeen)
		entry.mu.Unlock()
		if idle > s.ttl {
			s.discardLocked(id)
			s.log.Debug("quiz session expired", zap.String("session_id", id), zap.Duration("idle", idle))
		}
	}
}

// discardLocked removes a session and its in-memory history. Caller holds s.mu.
func (s *Service) discardLocked(id string) {
	entry, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)

	entry.recMu.Lock()
	entry.gone = true
	if f, ok := s.recorder.(interface{ Forget(string) }); ok {
		f.Forget(id)
	}
	entry.recMu.Unlock()
}

// record writes judgments after the session lock is released. Nothing is
// written once the session has been discarded.
func (s *Service) record(ctx context.Context, entry *sessionEntry, entries []history.Entry) {
	if len(entries) == 0 {
		return
	}
	entry.recMu.Lock()
	defer entry.recMu.Unlock()
	if entry.gone {
		return
	}
	for _, e := range entries {
		if err := s.recorder.Record(ctx, e); err != nil {
			s.log.Warn("record judgment failed",
				zap.String("session_id", e.SessionID),
				zap.Int("question_no", e.QuestionNo),
				zap.Error(err),
			)
		}
	}
}

func historyEntry(id string, kind quiz.EventKind, s quiz.Session, at time.Time) (history.Entry, bool) {
	if kind != quiz.EventSubmit && kind != quiz.EventDispute {
		return history.Entry{}, false
	}
	it, ok := s.Current()
	if !ok {
		return history.Entry{}, false
	}
	return history.Entry{
		SessionID:     id,
		QuestionNo:    s.Index + 1,
		Question:      it.Question,
		ReadingAnswer: it.ReadingAnswer,
		DisplayAnswer: it.DisplayAnswer,
		Answer:        s.Answer,
		Verdict:       s.Verdict,
		RecordedAt:    at.UTC(),
	}, true
}
