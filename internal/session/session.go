// Package session keeps per-sender conversational state with write-through
// persistence.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"github.com/GuilhermePossari/Lilabot/internal/store"
)

// Store caches sessions in memory and persists every mutation before it
// becomes visible. A failed write leaves the cached session untouched.
//
// Store does not serialize mutations of the same sender; callers do.
type Store struct {
	kv     store.KV
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]domain.Session
}

// New creates a Store backed by kv.
func New(kv store.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:     kv,
		logger: logger,
		cache:  make(map[string]domain.Session),
	}
}

type record struct {
	Mode    string        `json:"mode"`
	Persona bool          `json:"persona"`
	History []domain.Turn `json:"history"`
}

func decode(data []byte) (domain.Session, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Session{}, err
	}
	s := domain.NewSession()
	s.Mode = domain.ParseMode(r.Mode)
	s.PersonaEnabled = r.Persona
	s.AppendTurns(r.History...)
	return s, nil
}

func encode(s domain.Session) ([]byte, error) {
	history := s.History
	if history == nil {
		history = []domain.Turn{}
	}
	return json.Marshal(record{Mode: string(s.Mode), Persona: s.PersonaEnabled, History: history})
}

// GetOrCreate returns the sender's session, or the default session if the
// sender has never been seen. Reading does not write anything.
func (s *Store) GetOrCreate(ctx context.Context, sender string) (domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.cache[sender]
	s.mu.RUnlock()
	if ok {
		return sess.Clone(), nil
	}

	data, err := s.kv.Get(ctx, sender)
	switch {
	case errors.Is(err, store.ErrNotFound):
		sess = domain.NewSession()
	case err != nil:
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	default:
		sess, err = decode(data)
		if err != nil {
			s.logger.Warn("Discarding unreadable session", "sender", sender, "error", err)
			sess = domain.NewSession()
		}
	}

	s.mu.Lock()
	if cached, ok := s.cache[sender]; ok {
		sess = cached
	} else {
		s.cache[sender] = sess
	}
	s.mu.Unlock()
	return sess.Clone(), nil
}

// Preload fills the cache with every persisted session and returns how many
// were loaded. Unreadable records are skipped and fall back to the default
// session on first use.
func (s *Store) Preload(ctx context.Context) (int, error) {
	all, err := s.kv.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("preload sessions: %w", err)
	}

	loaded := make(map[string]domain.Session, len(all))
	for sender, data := range all {
		sess, err := decode(data)
		if err != nil {
			s.logger.Warn("Discarding unreadable session", "sender", sender, "error", err)
			continue
		}
		loaded[sender] = sess
	}

	s.mu.Lock()
	for sender, sess := range loaded {
		if _, ok := s.cache[sender]; !ok {
			s.cache[sender] = sess
		}
	}
	s.mu.Unlock()
	return len(loaded), nil
}

// update applies fn to a copy of the session, persists the copy and only
// then publishes it.
func (s *Store) update(ctx context.Context, sender string, fn func(*domain.Session)) (domain.Session, error) {
	current, err := s.GetOrCreate(ctx, sender)
	if err != nil {
		return domain.Session{}, err
	}
	next := current.Clone()
	fn(&next)

	data, err := encode(next)
	if err != nil {
		return current, fmt.Errorf("%w: encode session: %w", store.ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, sender, data); err != nil {
		return current, err
	}

	s.mu.Lock()
	s.cache[sender] = next
	s.mu.Unlock()
	return next.Clone(), nil
}

// SetMode changes the sender's conversational mode. Entering a different
// mode starts a fresh history window in the same write.
func (s *Store) SetMode(ctx context.Context, sender string, mode domain.Mode) (domain.Session, error) {
	return s.update(ctx, sender, func(sess *domain.Session) {
		if sess.Mode != mode {
			sess.History = []domain.Turn{}
		}
		sess.Mode = mode
	})
}

// SetPersona turns persona framing on or off.
func (s *Store) SetPersona(ctx context.Context, sender string, enabled bool) (domain.Session, error) {
	return s.update(ctx, sender, func(sess *domain.Session) { sess.PersonaEnabled = enabled })
}

// TogglePersona flips persona framing.
func (s *Store) TogglePersona(ctx context.Context, sender string) (domain.Session, error) {
	return s.update(ctx, sender, func(sess *domain.Session) { sess.PersonaEnabled = !sess.PersonaEnabled })
}

// AppendHistory adds turns in one write, keeping only the most recent
// domain.MaxHistory entries.
func (s *Store) AppendHistory(ctx context.Context, sender string, turns ...domain.Turn) (domain.Session, error) {
	return s.update(ctx, sender, func(sess *domain.Session) { sess.AppendTurns(turns...) })
}

// ClearHistory empties the sender's history.
func (s *Store) ClearHistory(ctx context.Context, sender string) (domain.Session, error) {
	return s.update(ctx, sender, func(sess *domain.Session) { sess.History = []domain.Turn{} })
}
