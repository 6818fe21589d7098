package executor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTrySubmit_RespectsMaxConcurrency(t *testing.T) {
	e := New(Config{MaxConcurrency: 2})

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	done := make(chan Completion, 2)

	blockingTask := Task{
		Run: func(ctx context.Context) (any, error) {
			started <- struct{}{}
			<-release
			return nil, nil
		},
	}
	onDone := func(c Completion) { done <- c }

	if !e.TrySubmit(context.Background(), blockingTask, onDone) {
		t.Fatal("first submit should succeed")
	}
	if !e.TrySubmit(context.Background(), blockingTask, onDone) {
		t.Fatal("second submit should succeed (at capacity 2)")
	}

	<-started
	<-started

	if e.TrySubmit(context.Background(), blockingTask, onDone) {
		t.Fatal("third submit should be rejected: executor is at capacity")
	}
	if got := e.InFlight(); got != 2 {
		t.Fatalf("InFlight() = %d, want 2", got)
	}

	close(release)
	<-done
	<-done

	deadline := time.Now().Add(time.Second)
	for e.InFlight() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := e.InFlight(); got != 0 {
		t.Fatalf("InFlight() = %d, want 0 after all tasks complete", got)
	}
}

func TestTrySubmit_ReportsCompletionError(t *testing.T) {
	e := New(Config{MaxConcurrency: 1})
	wantErr := errors.New("fetch failed")

	done := make(chan Completion, 1)
	ok := e.TrySubmit(context.Background(), Task{
		Run: func(ctx context.Context) (any, error) { return nil, wantErr },
	}, func(c Completion) { done <- c })

	if !ok {
		t.Fatal("TrySubmit should succeed under capacity")
	}

	select {
	case c := <-done:
		if !errors.Is(c.Err, wantErr) {
			t.Fatalf("Completion.Err = %v, want %v", c.Err, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestNew_FloorsMaxConcurrencyAtOne(t *testing.T) {
	e := New(Config{MaxConcurrency: 0})
	done := make(chan struct{})

	ok := e.TrySubmit(context.Background(), Task{
		Run: func(ctx context.Context) (any, error) { return nil, nil },
	}, func(Completion) { close(done) })

	if !ok {
		t.Fatal("TrySubmit should succeed with floored concurrency of 1")
	}
	<-done
}
