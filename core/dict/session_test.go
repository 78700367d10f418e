package dict

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/FocuswithJustin/ttldict/core/errors"
)

func TestRollbackIsolation(t *testing.T) {
	ctx := context.Background()
	m, path := testManager(t)

	boom := stderrors.New("boom")
	err := m.Update(ctx, func(c *Conn) error {
		if err := c.Set(ctx, "k", "v"); err != nil {
			return err
		}
		return boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("Update should return the original error, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	m2 := reopen(t, path)
	err = m2.View(ctx, func(c *Conn) error {
		ok, err := c.Contains(ctx, "k")
		if err != nil {
			return err
		}
		if ok {
			t.Error("rolled-back write must not be visible after reopen")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestExplicitSession(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t)

	s, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s.Map().Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Rolled-back sessions discard their writes.
	s, err = m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s.Map().Set(ctx, "gone", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	err = m.View(ctx, func(c *Conn) error {
		if ok, _ := c.Contains(ctx, "k"); !ok {
			t.Error("committed write should be visible")
		}
		if ok, _ := c.Contains(ctx, "gone"); ok {
			t.Error("rolled-back write should not be visible")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestReentrancy(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t)

	s, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if _, err := m.Begin(ctx); !errors.Is(err, errors.ErrReentrancy) {
		t.Errorf("second Begin = %v, want ErrReentrancy", err)
	}
	if err := m.Update(ctx, func(*Conn) error { return nil }); !errors.Is(err, errors.ErrReentrancy) {
		t.Errorf("Update during open session = %v, want ErrReentrancy", err)
	}

	if err := s.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	// Sequential re-entry is fine.
	s, err = m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin after release failed: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestSessionFinishedTwice(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t)

	s, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := s.Commit(); !errors.Is(err, errors.ErrSessionClosed) {
		t.Errorf("second Commit = %v, want ErrSessionClosed", err)
	}
	if err := s.Rollback(); !errors.Is(err, errors.ErrSessionClosed) {
		t.Errorf("Rollback after Commit = %v, want ErrSessionClosed", err)
	}
}

func TestViewRejectsMutation(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t)

	// Initialize the schema first.
	if err := m.Update(ctx, func(c *Conn) error { return c.Set(ctx, "k", "v") }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err := m.View(ctx, func(c *Conn) error {
		if err := c.Set(ctx, "x", "y"); !errors.Is(err, errors.ErrReadOnly) {
			t.Errorf("Set in View = %v, want ErrReadOnly", err)
		}
		if err := c.Delete(ctx, "k"); !errors.Is(err, errors.ErrReadOnly) {
			t.Errorf("Delete in View = %v, want ErrReadOnly", err)
		}
		if err := c.Clear(ctx); !errors.Is(err, errors.ErrReadOnly) {
			t.Errorf("Clear in View = %v, want ErrReadOnly", err)
		}
		if err := c.Postpone(ctx, "k"); !errors.Is(err, errors.ErrReadOnly) {
			t.Errorf("Postpone in View = %v, want ErrReadOnly", err)
		}
		if err := c.PostponeAll(ctx); !errors.Is(err, errors.ErrReadOnly) {
			t.Errorf("PostponeAll in View = %v, want ErrReadOnly", err)
		}
		// Reads still work.
		if v, err := c.Get(ctx, "k"); err != nil || v != "v" {
			t.Errorf("Get in View = %#v, %v", v, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestReadOnlyManager(t *testing.T) {
	ctx := context.Background()
	m, path := testManager(t)

	if err := m.Update(ctx, func(c *Conn) error { return c.Set(ctx, "k", "v") }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ro := reopen(t, path, WithReadOnly())
	s, err := ro.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin on read-only manager failed: %v", err)
	}
	if v, err := s.Map().Get(ctx, "k"); err != nil || v != "v" {
		t.Errorf("Get = %#v, %v", v, err)
	}
	if err := s.Map().Set(ctx, "x", "y"); !errors.Is(err, errors.ErrReadOnly) {
		t.Errorf("Set on read-only manager = %v, want ErrReadOnly", err)
	}
	if err := s.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
}

func TestUpdatePanicReleasesSession(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic should propagate out of Update")
			}
		}()
		_ = m.Update(ctx, func(*Conn) error { panic("kaboom") })
	}()

	// The session must have been released on the panic path.
	if err := m.Update(ctx, func(c *Conn) error { return c.Set(ctx, "k", "v") }); err != nil {
		t.Fatalf("Update after panic failed: %v", err)
	}
}

func TestManagerLifespanAppliesToNextSession(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t, WithLifespan(time.Minute))

	if m.Lifespan() != time.Minute {
		t.Errorf("Lifespan = %v, want 1m", m.Lifespan())
	}
	m.SetLifespan(2 * time.Hour)

	err := m.Update(ctx, func(c *Conn) error {
		if c.Lifespan() != 2*time.Hour {
			t.Errorf("session lifespan = %v, want 2h", c.Lifespan())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestManagerReusableAfterClose(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t)

	if err := m.Update(ctx, func(c *Conn) error { return c.Set(ctx, "k", "v") }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// The handle reopens lazily.
	err := m.View(ctx, func(c *Conn) error {
		if ok, _ := c.Contains(ctx, "k"); !ok {
			t.Error("data should survive Close")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View after Close failed: %v", err)
	}
}
