package session

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"pocket-calc/internal/engine"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s := NewStore(ttl, time.Hour, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t, time.Minute)

	sess, err := s.Create()
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if _, err := uuid.Parse(sess.ID); err != nil {
		t.Fatalf("expected UUID session id, got %q: %v", sess.ID, err)
	}

	got, err := s.Get(sess.ID)
	if err != nil {
		t.Fatalf("getting session: %v", err)
	}
	if got != sess {
		t.Fatal("expected the same session back")
	}

	if v := got.View(); v.Result != "0" {
		t.Fatalf("expected idle result %q, got %q", "0", v.Result)
	}
}

func TestSessionPress(t *testing.T) {
	s := newTestStore(t, time.Minute)
	sess, _ := s.Create()

	v, ignored := sess.Press("2", "+", "?", "3", "=")
	if v.Result != "5" {
		t.Fatalf("expected result %q, got %q", "5", v.Result)
	}
	if len(ignored) != 1 || ignored[0] != "?" {
		t.Fatalf("expected [?] ignored, got %v", ignored)
	}

	if h := sess.History(); len(h) != 1 || h[0].Expression != "2 + 3" {
		t.Fatalf("unexpected history %+v", h)
	}
}

func parseTokens(t *testing.T, keys ...string) []engine.Token {
	t.Helper()
	tokens := make([]engine.Token, 0, len(keys))
	for _, k := range keys {
		tok, ok := engine.ParseToken(k)
		if !ok {
			t.Fatalf("unexpected unknown key %q", k)
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func TestSessionPressTokensReportsFailure(t *testing.T) {
	s := newTestStore(t, time.Minute)
	sess, _ := s.Create()

	var errs []error
	v := sess.PressTokens(parseTokens(t, "8", "÷", "0", "="), func(i int, tok engine.Token, apply func() (engine.View, error)) {
		if _, err := apply(); err != nil {
			errs = append(errs, err)
		}
	})

	if len(errs) != 1 || !errors.Is(errs[0], engine.ErrDivisionByZero) {
		t.Fatalf("expected one ErrDivisionByZero, got %v", errs)
	}
	if v.Result != engine.ErrorMarker {
		t.Fatalf("expected %q, got %q", engine.ErrorMarker, v.Result)
	}
}

func TestSessionPressTokensWithoutObserver(t *testing.T) {
	s := newTestStore(t, time.Minute)
	sess, _ := s.Create()

	if v := sess.PressTokens(parseTokens(t, "6", "×", "7", "="), nil); v.Result != "42" {
		t.Fatalf("expected result %q, got %q", "42", v.Result)
	}
}

func TestSessionPressTokensBatchesDoNotInterleave(t *testing.T) {
	s := newTestStore(t, time.Minute)
	sess, _ := s.Create()
	batch := parseTokens(t, "C", "1", "+", "1", "=")

	const workers, rounds = 8, 200

	var wg sync.WaitGroup
	results := make(chan string, workers*rounds)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				observe := func(i int, tok engine.Token, apply func() (engine.View, error)) {
					apply()
					runtime.Gosched()
				}
				results <- sess.PressTokens(batch, observe).Result
			}
		}()
	}

	wg.Wait()
	close(results)

	for got := range results {
		if got != "2" {
			t.Fatalf("expected every batch to yield %q, got %q", "2", got)
		}
	}
}

func TestGetUnknownAndDeleted(t *testing.T) {
	s := newTestStore(t, time.Minute)

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sess, _ := s.Create()
	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("deleting session: %v", err)
	}
	if err := s.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestExpiredSessionIsNotReturned(t *testing.T) {
	s := newTestStore(t, 10*time.Millisecond)
	sess, _ := s.Create()

	time.Sleep(30 * time.Millisecond)

	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s.cleanExpired()
	if n := s.Len(); n != 0 {
		t.Fatalf("expected 0 sessions after cleanup, got %d", n)
	}
}

func TestJanitorEvictsExpiredSessions(t *testing.T) {
	s := NewStore(5*time.Millisecond, 5*time.Millisecond, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })

	_, _ = s.Create()
	_, _ = s.Create()

	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected janitor to evict sessions, %d left", s.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShutdown(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		s := NewStore(time.Minute, time.Hour, zap.NewNop())

		if err := s.Shutdown(context.Background()); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if _, err := s.Create(); !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("waits for expiry", func(t *testing.T) {
		s := NewStore(20*time.Millisecond, time.Hour, zap.NewNop())
		_, _ = s.Create()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("context deadline", func(t *testing.T) {
		s := NewStore(time.Hour, time.Hour, zap.NewNop())
		_, _ = s.Create()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if err := s.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context.DeadlineExceeded, got %v", err)
		}
	})
}

func TestCloseTwice(t *testing.T) {
	s := NewStore(time.Minute, time.Hour, zap.NewNop())
	_, _ = s.Create()

	if err := s.Close(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if n := s.Len(); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCollectorReportsLiveSessions(t *testing.T) {
	s := newTestStore(t, time.Minute)
	c := s.Collector()

	_, _ = s.Create()
	_, _ = s.Create()

	if got := testutil.ToFloat64(c); got != 2 {
		t.Fatalf("expected 2 active sessions, got %v", got)
	}
}

func TestCloseAfterInterruptedShutdown(t *testing.T) {
	s := NewStore(time.Hour, time.Hour, zap.NewNop())
	_, _ = s.Create()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if n := s.Len(); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
}
