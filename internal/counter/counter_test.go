package counter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"github.com/GuilhermePossari/Lilabot/internal/store"
)

type failingKV struct{ store.KV }

func (failingKV) Set(context.Context, string, []byte) error {
	return fmt.Errorf("%w: read-only", store.ErrPersistence)
}

func sums(rec domain.CounterRecord) (int, int) {
	var cat, user int
	for _, v := range rec.ByCategory {
		cat += v
	}
	for _, v := range rec.ByUser {
		user += v
	}
	return cat, user
}

func TestIncrementKeepsSumsEqual(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, store.NewMemory().Table(store.TableCounters))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	senders := []string{"a", "b", "c", "a", "a", "b"}
	for i, sender := range senders {
		cat := domain.CategoryGeneral
		if i%3 == 0 {
			cat = domain.CategoryMedical
		}
		if err := s.Increment(ctx, sender, cat); err != nil {
			t.Fatalf("Increment: %v", err)
		}
		rec := s.Record()
		cat1, user := sums(rec)
		if rec.Total != cat1 || rec.Total != user {
			t.Fatalf("counts diverged after %d increments: total=%d categories=%d users=%d", i+1, rec.Total, cat1, user)
		}
	}

	sum := s.Summary("a")
	if sum.Total != 6 || sum.Sender != 3 || sum.ByCategory[domain.CategoryMedical] != 2 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestTopNOrdersByCountThenFirstSeen(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory().Table(store.TableCounters)
	s, err := Open(ctx, kv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, sender := range []string{"z", "y", "x", "x", "w"} {
		if err := s.Increment(ctx, sender, domain.CategoryGeneral); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	check := func(st *Store) {
		t.Helper()
		got := st.TopN(3)
		want := []domain.UserCount{{Sender: "x", Count: 2}, {Sender: "z", Count: 1}, {Sender: "y", Count: 1}}
		if len(got) != len(want) {
			t.Fatalf("Expected %d entries, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("rank %d: expected %+v, got %+v", i, want[i], got[i])
			}
		}
	}
	check(s)

	reopened, err := Open(ctx, kv)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	check(reopened)

	if got := s.TopN(0); len(got) != 0 {
		t.Errorf("Expected empty ranking for n=0, got %v", got)
	}
}

func TestFailedIncrementChangesNothing(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, failingKV{store.NewMemory().Table(store.TableCounters)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = s.Increment(ctx, "a", domain.CategoryGeneral)
	if !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("Expected ErrPersistence, got %v", err)
	}
	if rec := s.Record(); rec.Total != 0 || len(rec.ByUser) != 0 {
		t.Errorf("Expected empty record, got %+v", rec)
	}
}

func TestOpenRepairsMissingOrder(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory().Table(store.TableCounters)
	if err := kv.Set(ctx, "jokes", []byte(`{"total":3,"by_category":{"general":3},"by_user":{"b":2,"a":1}}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := Open(ctx, kv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := s.Record()
	if rec.ByCategory[domain.CategoryMedical] != 0 {
		t.Errorf("Expected medical=0, got %d", rec.ByCategory[domain.CategoryMedical])
	}
	if len(rec.UserOrder) != 2 {
		t.Errorf("Expected 2 ordered users, got %v", rec.UserOrder)
	}
	if top := s.TopN(1); top[0].Sender != "b" {
		t.Errorf("Expected b on top, got %+v", top)
	}
}
