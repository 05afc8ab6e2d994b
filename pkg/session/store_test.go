package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// storeFactory builds a fresh store using the given clock and TTL.
type storeFactory func(t *testing.T, clock *fakeClock, ttl time.Duration) Store

func testStores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, clock *fakeClock, ttl time.Duration) Store {
			s := NewMemoryStore(WithTTL(ttl), WithClock(clock.Now), WithCleanupInterval(0))
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"sqlite": func(t *testing.T, clock *fakeClock, ttl time.Duration) Store {
			s, err := OpenSQLite(context.Background(), ":memory:",
				WithSQLTTL(ttl), WithSQLClock(clock.Now), WithSQLCleanupInterval(0))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStoreSetGetDelete(t *testing.T) {
	for name, factory := range testStores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, &fakeClock{now: time.Unix(1_000, 0)}, 0)

			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = _, %v, %v; want false, nil", ok, err)
			}

			if err := s.Set(ctx, PendingLinkKey, "waqiti://pay/m1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, ok, err := s.Get(ctx, PendingLinkKey)
			if err != nil || !ok || got != "waqiti://pay/m1" {
				t.Fatalf("Get = %q, %v, %v; want waqiti://pay/m1, true, nil", got, ok, err)
			}

			if err := s.Set(ctx, PendingLinkKey, "waqiti://home"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, _, _ = s.Get(ctx, PendingLinkKey)
			if got != "waqiti://home" {
				t.Errorf("after overwrite Get = %q, want waqiti://home", got)
			}

			if err := s.Delete(ctx, PendingLinkKey); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := s.Get(ctx, PendingLinkKey); ok {
				t.Error("key still present after Delete")
			}
			if err := s.Delete(ctx, PendingLinkKey); err != nil {
				t.Errorf("Delete of missing key returned %v", err)
			}
		})
	}
}

func TestStoreTTL(t *testing.T) {
	for name, factory := range testStores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Unix(1_000, 0)}
			s := factory(t, clock, time.Minute)

			if err := s.Set(ctx, "k", "v"); err != nil {
				t.Fatal(err)
			}

			clock.Advance(59 * time.Second)
			if _, ok, _ := s.Get(ctx, "k"); !ok {
				t.Fatal("entry expired early")
			}

			clock.Advance(time.Second)
			if _, ok, _ := s.Get(ctx, "k"); ok {
				t.Fatal("entry should have expired")
			}
		})
	}
}

func TestTake(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.Set(ctx, PendingLinkKey, "waqiti://scan")

	got, ok, err := Take(ctx, s, PendingLinkKey)
	if err != nil || !ok || got != "waqiti://scan" {
		t.Fatalf("Take = %q, %v, %v", got, ok, err)
	}
	if _, ok, _ := Take(ctx, s, PendingLinkKey); ok {
		t.Error("second Take should find nothing")
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()

	mem := NewMemoryStore()
	_ = mem.Close()
	if err := mem.Set(ctx, "k", "v"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("memory Set after Close = %v, want ErrStoreClosed", err)
	}

	sqlStore, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	_ = sqlStore.Close()
	if _, _, err := sqlStore.Get(ctx, "k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("sql Get after Close = %v, want ErrStoreClosed", err)
	}
	if err := sqlStore.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestMemoryCleanupRemovesExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_000, 0)}
	s := NewMemoryStore(WithTTL(time.Second), WithClock(clock.Now), WithCleanupInterval(0))
	defer s.Close()

	_ = s.Set(ctx, "a", "1")
	_ = s.Set(ctx, "b", "2")
	clock.Advance(2 * time.Second)
	_ = s.Set(ctx, "c", "3")

	s.cleanup()
	if got := s.Count(); got != 1 {
		t.Errorf("Count() after cleanup = %d, want 1", got)
	}
}

func TestSQLStorePlaceholders(t *testing.T) {
	tests := []struct {
		dialect SQLDialect
		want    string
	}{
		{DialectSQLite, "?"},
		{DialectMySQL, "?"},
		{DialectPostgreSQL, "$2"},
	}
	for _, tt := range tests {
		s := &SQLStore{dialect: tt.dialect}
		if got := s.placeholder(2); got != tt.want {
			t.Errorf("dialect %d placeholder(2) = %q, want %q", tt.dialect, got, tt.want)
		}
	}
}

func TestSQLCleanupLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := &fakeClock{now: time.Unix(1_000, 0)}

	s, err := OpenSQLite(context.Background(), ":memory:",
		WithSQLTTL(time.Minute), WithSQLClock(clock.Now), WithSQLCleanupInterval(0), WithSQLLogger(logger))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Set(context.Background(), PendingLinkKey, "waqiti://pay/m1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clock.Advance(2 * time.Minute)
	s.cleanup()
	if !strings.Contains(buf.String(), "expired links removed") || !strings.Contains(buf.String(), "count=1") {
		t.Errorf("cleanup log = %q, want one removed row", buf.String())
	}

	buf.Reset()
	if _, err := s.db.Exec("DROP TABLE " + DefaultTableName); err != nil {
		t.Fatal(err)
	}
	s.cleanup()
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "expired link cleanup failed") {
		t.Errorf("cleanup log = %q, want a warning", buf.String())
	}
}
