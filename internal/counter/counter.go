// Package counter keeps the process-wide tally of delivered jokes.
package counter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"github.com/GuilhermePossari/Lilabot/internal/store"
)

const recordKey = "jokes"

// Store holds the CounterRecord in memory and rewrites it on every increment.
type Store struct {
	kv store.KV

	mu  sync.Mutex
	rec domain.CounterRecord
}

// Open loads the persisted record, starting from zero if none exists.
func Open(ctx context.Context, kv store.KV) (*Store, error) {
	rec := domain.NewCounterRecord()
	data, err := kv.Get(ctx, recordKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load counters: %w", err)
	default:
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode counters: %w", err)
		}
		normalize(&rec)
	}
	return &Store{kv: kv, rec: rec}, nil
}

// normalize repairs records written before user_order existed and makes
// sure every category key is present.
func normalize(rec *domain.CounterRecord) {
	if rec.ByCategory == nil {
		rec.ByCategory = make(map[domain.JokeCategory]int)
	}
	for _, c := range domain.Categories {
		if _, ok := rec.ByCategory[c]; !ok {
			rec.ByCategory[c] = 0
		}
	}
	if rec.ByUser == nil {
		rec.ByUser = make(map[string]int)
	}
	seen := make(map[string]bool, len(rec.UserOrder))
	order := make([]string, 0, len(rec.ByUser))
	for _, u := range rec.UserOrder {
		if _, ok := rec.ByUser[u]; ok && !seen[u] {
			seen[u] = true
			order = append(order, u)
		}
	}
	var missing []string
	for u := range rec.ByUser {
		if !seen[u] {
			missing = append(missing, u)
		}
	}
	sort.Strings(missing)
	rec.UserOrder = append(order, missing...)
}

func clone(rec domain.CounterRecord) domain.CounterRecord {
	c := domain.CounterRecord{
		Total:      rec.Total,
		ByCategory: make(map[domain.JokeCategory]int, len(rec.ByCategory)),
		ByUser:     make(map[string]int, len(rec.ByUser)),
		UserOrder:  append([]string(nil), rec.UserOrder...),
	}
	for k, v := range rec.ByCategory {
		c.ByCategory[k] = v
	}
	for k, v := range rec.ByUser {
		c.ByUser[k] = v
	}
	return c
}

// Increment counts one delivered joke for sender in category and persists
// the whole record. On a failed write the in-memory tally is unchanged.
func (s *Store) Increment(ctx context.Context, sender string, category domain.JokeCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := clone(s.rec)
	next.Total++
	next.ByCategory[category]++
	if _, ok := next.ByUser[sender]; !ok {
		next.UserOrder = append(next.UserOrder, sender)
	}
	next.ByUser[sender]++

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: encode counters: %w", store.ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, recordKey, data); err != nil {
		return err
	}
	s.rec = next
	return nil
}

// Summary returns the global tally plus the count for sender.
func (s *Store) Summary(sender string) domain.CounterSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCategory := make(map[domain.JokeCategory]int, len(s.rec.ByCategory))
	for k, v := range s.rec.ByCategory {
		byCategory[k] = v
	}
	return domain.CounterSummary{
		Total:      s.rec.Total,
		ByCategory: byCategory,
		Sender:     s.rec.ByUser[sender],
	}
}

// TopN ranks senders by count, highest first. Ties keep first-seen order.
func (s *Store) TopN(n int) []domain.UserCount {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	ranked := make([]domain.UserCount, 0, len(s.rec.UserOrder))
	for _, u := range s.rec.UserOrder {
		ranked = append(ranked, domain.UserCount{Sender: u, Count: s.rec.ByUser[u]})
	}
	s.mu.Unlock()

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Record returns a copy of the full tally.
func (s *Store) Record() domain.CounterRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.rec)
}
