package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/layout"
)

func newController() *interact.Controller {
	cat := catalog.MustNew(catalog.Sample())
	return interact.New(highlight.NewResolver(cat, highlight.Options{}), layout.Compute(cat, layout.Options{}))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(ttl)
	s.now = clock.Now
	return s, clock
}

func TestMemoryStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)

	sess, err := s.Create(ctx, newController())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session ID should not be empty")
	}
	if sess.CatalogVersion == "" {
		t.Error("CatalogVersion should be set")
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != sess {
		t.Error("Get() returned a different session")
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)

	a, _ := s.Create(ctx, newController())
	b, _ := s.Create(ctx, newController())
	if a.ID == b.ID {
		t.Fatal("session IDs should be unique")
	}

	_ = a.Do(func(c *interact.Controller) error {
		c.SelectService("CRM001")
		c.MoveTo("CRM001", layout.Position{X: 50, Y: 50})
		return nil
	})

	_ = b.Do(func(c *interact.Controller) error {
		if !c.Selection().IsNone() {
			t.Errorf("session b selection = %v, want none", c.Selection())
		}
		if p, _ := c.Position("CRM001"); p != (layout.Position{}) {
			t.Errorf("session b CRM001 = %v, want origin", p)
		}
		return nil
	})
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(time.Hour)

	sess, _ := s.Create(ctx, newController())

	// Access slides the expiry forward.
	clock.Advance(50 * time.Minute)
	if _, err := s.Get(ctx, sess.ID); err != nil {
		t.Fatalf("Get() before expiry error: %v", err)
	}
	clock.Advance(50 * time.Minute)
	if _, err := s.Get(ctx, sess.ID); err != nil {
		t.Fatalf("Get() after touch error: %v", err)
	}

	clock.Advance(61 * time.Minute)
	if _, err := s.Get(ctx, sess.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("Get() after ttl error = %v, want ErrExpired", err)
	}
	if s.Len() != 0 {
		t.Errorf("expired session should be removed, Len() = %d", s.Len())
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(time.Hour)

	old, _ := s.Create(ctx, newController())
	clock.Advance(40 * time.Minute)
	fresh, _ := s.Create(ctx, newController())
	clock.Advance(30 * time.Minute)

	n, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Cleanup() removed %d, want 1", n)
	}
	if _, err := s.Get(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old session error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, fresh.ID); err != nil {
		t.Errorf("fresh session error = %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(0)
	if s.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", s.TTL(), DefaultTTL)
	}

	sess, _ := s.Create(ctx, newController())
	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Errorf("Delete() twice error: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSessionDoSerializes(t *testing.T) {
	sess := New(newController(), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sess.Do(func(c *interact.Controller) error {
				c.ClickNode("BIL001")
				return nil
			})
		}()
	}
	wg.Wait()

	_ = sess.Do(func(c *interact.Controller) error {
		if got := c.Revision(); got != 50 {
			t.Errorf("Revision() = %d, want 50", got)
		}
		return nil
	})
}

func TestRunCleanupStops(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunCleanup(ctx, s, time.Millisecond, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunCleanup() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop on cancel")
	}
}
