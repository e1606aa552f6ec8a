package session

import (
	"context"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeSummarizer struct {
	reply string
	err   error
	calls int
}

func (f *fakeSummarizer) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestStore(cfg Config, clock Clock) *Store {
	return NewStore(cfg, &fakeSummarizer{reply: "summary"}, clock, nil)
}

func TestAcquireCreatesAndRefreshes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newTestStore(Config{}, clock)

	first := store.Acquire("u1", "en")
	if first == nil {
		t.Fatal("expected session")
	}
	clock.advance(10 * time.Second)
	second := store.Acquire("u1", "en")
	if first != second {
		t.Error("same user and language should reuse the session")
	}
	if got := second.LastAccess; !got.Equal(clock.now) {
		t.Errorf("LastAccess = %v, want %v", got, clock.now)
	}
}

func TestAcquireLanguageSwitchResetsHistory(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newTestStore(Config{}, clock)

	sess := store.Acquire("u1", "en")
	sess.Memory.AddExchange(context.Background(), "hello", "hi there")
	if !strings.Contains(sess.Memory.History(), "hello") {
		t.Fatal("history should contain the first exchange")
	}

	reset := store.Acquire("u1", "ar")
	if reset == sess {
		t.Error("language switch should create a fresh session")
	}
	if reset.Language != "ar" {
		t.Errorf("Language = %q, want ar", reset.Language)
	}
	if got := reset.Memory.History(); got != "" {
		t.Errorf("history after language switch = %q, want empty", got)
	}
}

func TestSweepEvictsByTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newTestStore(Config{TTL: 60 * time.Second}, clock)

	store.Acquire("stale", "en")
	clock.advance(59 * time.Second)
	store.Acquire("fresh", "en")

	clock.advance(2 * time.Second) // stale idle 61s, fresh idle 2s
	store.Sweep()

	stats := store.Stats()
	if stats.Count != 1 {
		t.Fatalf("Count = %d, want 1", stats.Count)
	}
	if _, ok := store.sessions["fresh"]; !ok {
		t.Error("fresh session should survive the sweep")
	}
}

func TestSweepKeepsSessionWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newTestStore(Config{TTL: 60 * time.Second}, clock)

	store.Acquire("u1", "en")
	clock.advance(59 * time.Second)
	store.Sweep()

	if got := store.Stats().Count; got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestSweepEvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newTestStore(Config{TTL: time.Hour, MaxSessions: 2}, clock)

	store.Acquire("u1", "en")
	clock.advance(time.Second)
	store.Acquire("u2", "en")
	clock.advance(time.Second)
	store.Acquire("u3", "en")

	store.Sweep()

	if got := store.Stats().Count; got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
	if _, ok := store.sessions["u1"]; ok {
		t.Error("u1 is the least recently used and should be evicted")
	}
	for _, id := range []string{"u2", "u3"} {
		if _, ok := store.sessions[id]; !ok {
			t.Errorf("%s should survive LRU eviction", id)
		}
	}
}

func TestStats(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := newTestStore(Config{TTL: 30 * time.Minute, MaxSessions: 5}, clock)

	store.Acquire("u1", "en")
	clock.advance(90 * time.Second)
	store.Acquire("u2", "en")

	stats := store.Stats()
	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if stats.Max != 5 {
		t.Errorf("Max = %d, want 5", stats.Max)
	}
	if stats.TTL != 30*time.Minute {
		t.Errorf("TTL = %v, want 30m", stats.TTL)
	}
	if stats.OldestAge != 90*time.Second {
		t.Errorf("OldestAge = %v, want 90s", stats.OldestAge)
	}
}
