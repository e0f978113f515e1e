package worker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shpitdev/tabletalk/pkg/worker"
)

func TestProcessAll(t *testing.T) {
	t.Run("results keep input order", func(t *testing.T) {
		items := []int{1, 2, 3, 4, 5}
		out, err := worker.ProcessAll(context.Background(), items,
			func(ctx context.Context, n int) (int, error) { return n * 10, nil },
			worker.Options{Workers: 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, res := range out {
			if res.Output != items[i]*10 {
				t.Fatalf("out[%d] = %#v", i, res)
			}
		}
	})

	t.Run("item errors are recorded, not fatal", func(t *testing.T) {
		out, err := worker.ProcessAll(context.Background(), []string{"ok", "bad"},
			func(ctx context.Context, s string) (string, error) {
				if s == "bad" {
					return "", errors.New("forced error")
				}
				return s, nil
			},
			worker.Options{Workers: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Err != nil {
			t.Fatalf("unexpected error on ok item: %v", out[0].Err)
		}
		if out[1].Err == nil || !strings.Contains(out[1].Err.Error(), "forced error") {
			t.Fatalf("unexpected error: %v", out[1].Err)
		}
	})

	t.Run("fail fast aborts the batch", func(t *testing.T) {
		_, err := worker.ProcessAll(context.Background(), []string{"bad"},
			func(ctx context.Context, s string) (string, error) {
				return "", errors.New("forced error")
			},
			worker.Options{Workers: 1, FailFast: true})
		if err == nil || !strings.Contains(err.Error(), "forced error") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("transient errors retry", func(t *testing.T) {
		var calls atomic.Int32
		out, err := worker.ProcessAll(context.Background(), []string{"x"},
			func(ctx context.Context, s string) (string, error) {
				if calls.Add(1) < 3 {
					return "", &worker.TransientError{Err: errors.New("flaky")}
				}
				return "done", nil
			},
			worker.Options{Workers: 1, MaxRetries: 3, BackoffInitial: time.Millisecond, BackoffMax: 2 * time.Millisecond})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Err != nil || out[0].Output != "done" {
			t.Fatalf("unexpected result: %#v", out[0])
		}
		if got := calls.Load(); got != 3 {
			t.Fatalf("got %d calls", got)
		}
	})

	t.Run("permanent errors do not retry", func(t *testing.T) {
		var calls atomic.Int32
		out, err := worker.ProcessAll(context.Background(), []string{"x"},
			func(ctx context.Context, s string) (string, error) {
				calls.Add(1)
				return "", fmt.Errorf("permanent")
			},
			worker.Options{Workers: 1, MaxRetries: 3, BackoffInitial: time.Millisecond})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Err == nil {
			t.Fatalf("expected item error")
		}
		if got := calls.Load(); got != 1 {
			t.Fatalf("got %d calls", got)
		}
	})

	t.Run("canceled context stops the batch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := worker.ProcessAll(ctx, []int{1, 2, 3},
			func(ctx context.Context, n int) (int, error) { return n, nil },
			worker.Options{Workers: 1})
		if err == nil {
			t.Fatalf("expected error")
		}
	})
}
