package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeStore struct {
	before  []time.Time
	deleted int64
	err     error
}

func (f *fakeStore) DeleteFinishedBefore(_ context.Context, before time.Time) (int64, error) {
	f.before = append(f.before, before)
	return f.deleted, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"0 3 * * *", time.Date(2024, 5, 11, 3, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2024, 5, 10, 14, 45, 0, 0, time.UTC)},
		{"@hourly", time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)},
		{"0 0 1 * *", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := NextRun(tt.expr, from)
			if err != nil {
				t.Fatalf("NextRun: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 3 * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	for _, expr := range []string{"", "60 * * * *", "* * *", "0 0 0 * * *"} {
		if err := ValidateCronExpr(expr); !errors.Is(err, ErrInvalidCron) {
			t.Errorf("%q: expected ErrInvalidCron, got %v", expr, err)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	j, err := New(Config{Store: &fakeStore{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if j.cronExpr != DefaultCronExpr {
		t.Errorf("cron = %q", j.cronExpr)
	}
	if j.maxAge != DefaultMaxAge {
		t.Errorf("max age = %s", j.maxAge)
	}

	if _, err := New(Config{Store: &fakeStore{}, CronExpr: "bogus"}); !errors.Is(err, ErrInvalidCron) {
		t.Errorf("expected ErrInvalidCron, got %v", err)
	}
}

func TestTick(t *testing.T) {
	store := &fakeStore{deleted: 7}
	j, err := New(Config{Store: store, MaxAge: 48 * time.Hour, Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	deleted, err := j.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if deleted != 7 {
		t.Errorf("deleted = %d, want 7", deleted)
	}
	if len(store.before) != 1 || !store.before[0].Equal(now.Add(-48*time.Hour)) {
		t.Errorf("cutoff = %v", store.before)
	}
}

func TestTickError(t *testing.T) {
	storeErr := errors.New("db down")
	j, _ := New(Config{Store: &fakeStore{err: storeErr}, Logger: testLogger()})

	if _, err := j.Tick(context.Background()); !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	j, _ := New(Config{Store: store, Logger: testLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if len(store.before) != 0 {
		t.Errorf("no tick expected before the next scheduled run, got %d", len(store.before))
	}
}
