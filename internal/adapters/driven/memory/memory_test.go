package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

func TestJobStoreCreateAndGet(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := &domain.ConversionJob{ID: "job-1", Filename: "doc.pdf", State: domain.JobSubmitted}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Filename != "doc.pdf" {
		t.Errorf("filename = %q, want doc.pdf", got.Filename)
	}

	// The store must hand out copies, not shared pointers.
	got.Filename = "mutated.pdf"
	again, _ := store.Get(ctx, "job-1")
	if again.Filename != "doc.pdf" {
		t.Error("store leaked mutable state to caller")
	}
}

func TestJobStoreCreateDuplicate(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := &domain.ConversionJob{ID: "job-1"}
	if err := store.Create(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, job); err == nil {
		t.Error("duplicate Create() should fail")
	}
}

func TestJobStoreUpdate(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := &domain.ConversionJob{ID: "job-1", State: domain.JobSubmitted}
	if err := store.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	job.State = domain.JobCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := store.Get(ctx, "job-1")
	if got.State != domain.JobCompleted {
		t.Errorf("state = %s, want %s", got.State, domain.JobCompleted)
	}
}

func TestJobStoreUpdateMissing(t *testing.T) {
	store := NewJobStore()
	err := store.Update(context.Background(), &domain.ConversionJob{ID: "nope"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestJobStoreGetMissing(t *testing.T) {
	store := NewJobStore()
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestKeyStoreGetByHash(t *testing.T) {
	store := NewKeyStore()
	key := &domain.APIKey{ID: "key-1", KeyHash: domain.HashKey("sk-test"), Active: true}
	store.Put(key)

	got, err := store.GetByHash(context.Background(), domain.HashKey("sk-test"))
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if got.ID != "key-1" {
		t.Errorf("key id = %q, want key-1", got.ID)
	}

	_, err = store.GetByHash(context.Background(), domain.HashKey("sk-unknown"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown hash error = %v, want ErrNotFound", err)
	}
}

func TestQueueEnqueueDequeue(t *testing.T) {
	q := NewQueue(8)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := q.Enqueue(ctx, "job-2"); err != nil {
		t.Fatal(err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("DequeueWithTimeout() error = %v", err)
	}
	if got != "job-1" {
		t.Errorf("dequeued %q, want job-1", got)
	}
	if err := q.Ack(ctx, got); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}

	got, _ = q.DequeueWithTimeout(ctx, 1)
	if got != "job-2" {
		t.Errorf("dequeued %q, want job-2", got)
	}
}

func TestQueueNackRequeues(t *testing.T) {
	q := NewQueue(8)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatal(err)
	}
	jobID, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || jobID != "job-1" {
		t.Fatalf("dequeue = %q, %v", jobID, err)
	}

	if err := q.Nack(ctx, jobID, "worker failed"); err != nil {
		t.Fatalf("Nack() error = %v", err)
	}

	again, _ := q.DequeueWithTimeout(ctx, 1)
	if again != "job-1" {
		t.Errorf("nacked job not redelivered: got %q", again)
	}
}

func TestQueueEmptyTimesOut(t *testing.T) {
	q := NewQueue(8)

	start := time.Now()
	got, err := q.DequeueWithTimeout(context.Background(), 1)
	if err != nil {
		t.Fatalf("DequeueWithTimeout() error = %v", err)
	}
	if got != "" {
		t.Errorf("dequeued %q from empty queue", got)
	}
	if time.Since(start) < 500*time.Millisecond {
		t.Error("dequeue returned before the timeout elapsed")
	}
}

func TestQueueRejectsEmptyJobID(t *testing.T) {
	q := NewQueue(8)
	if err := q.Enqueue(context.Background(), ""); err == nil {
		t.Error("Enqueue(\"\") should fail")
	}
}

func TestQueueCloseWakesConsumer(t *testing.T) {
	q := NewQueue(8)

	done := make(chan string, 1)
	go func() {
		jobID, _ := q.DequeueWithTimeout(context.Background(), 5)
		done <- jobID
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case jobID := <-done:
		if jobID != "" {
			t.Errorf("closed queue delivered %q", jobID)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer not woken by Close()")
	}
}
