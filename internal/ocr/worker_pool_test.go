package ocr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewWorkerPool_ZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	if pool.Workers() <= 0 {
		t.Errorf("Expected CPU-count workers, got %d", pool.Workers())
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		pool.Submit(context.Background(), func() {
			mu.Lock()
			counter++
			mu.Unlock()
		})
	}

	pool.Wait()

	if counter != 5 {
		t.Errorf("Expected counter to be 5, got %d", counter)
	}
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)

	// Start should be idempotent
	pool.Start()
	pool.Start()
	defer pool.Close()

	var executed bool
	pool.Submit(context.Background(), func() {
		executed = true
	})
	pool.Wait()

	if !executed {
		t.Error("Expected job to be executed")
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	pool.Close()
	pool.Close() // idempotent

	if pool.Submit(context.Background(), func() {}) {
		t.Error("Expected submit to fail after close")
	}
}

func TestWorkerPool_Stats(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Close()

	const numJobs = 5
	for i := 0; i < numJobs; i++ {
		pool.Submit(context.Background(), func() {
			for j := 0; j < 1000; j++ {
				_ = j * j
			}
		})
	}
	pool.Wait()

	stats := pool.GetStats()
	if stats.TotalJobs != numJobs {
		t.Errorf("Expected %d total jobs, got %d", numJobs, stats.TotalJobs)
	}
	if stats.CompletedJobs != numJobs {
		t.Errorf("Expected %d completed jobs, got %d", numJobs, stats.CompletedJobs)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("Expected 0 active workers after completion, got %d", stats.ActiveWorkers)
	}
}

// fillPool occupies the single worker and the whole queue until release is closed
func fillPool(t *testing.T, pool *WorkerPool, release chan struct{}) {
	t.Helper()
	running := make(chan struct{})
	if err := pool.Submit(context.Background(), func() {
		close(running)
		<-release
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	<-running
	for i := 0; i < cap(pool.jobQueue); i++ {
		if err := pool.Submit(context.Background(), func() {}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
}

func TestWorkerPool_SubmitHonoursContextWhenFull(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	release := make(chan struct{})
	fillPool(t, pool, release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- pool.Submit(ctx, func() {}) }()

	select {
	case err := <-result:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected context.DeadlineExceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Submit to return once its context ended")
	}

	close(release)
	pool.Wait()
	pool.Close()

	expected := int64(1 + cap(pool.jobQueue))
	if stats := pool.GetStats(); stats.TotalJobs != expected {
		t.Errorf("Expected %d total jobs, got %d", expected, stats.TotalJobs)
	}
}

func TestWorkerPool_CloseReleasesBlockedSubmit(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	release := make(chan struct{})
	fillPool(t, pool, release)

	result := make(chan error, 1)
	go func() { result <- pool.Submit(context.Background(), func() {}) }()

	// Give the submitter time to block on the full queue.
	time.Sleep(20 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		pool.Close()
		close(closed)
	}()

	select {
	case err := <-result:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Close to release the blocked submitter")
	}
	<-closed

	close(release)
	pool.Wait()
}
