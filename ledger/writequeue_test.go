package ledger

import (
	"testing"
	"time"
)

func TestWriteQueueFIFOOrdering(t *testing.T) {
	q := NewWriteQueue()
	q.Wait(WriterProcessBatch)

	order := make(chan Writer, 2)
	done := make(chan struct{})

	go func() {
		q.Wait(WriterConfirmationHeight)
		order <- WriterConfirmationHeight
		q.Release()
		close(done)
	}()
	go func() {
		// Give the confirmation-height waiter time to queue up first.
		time.Sleep(10 * time.Millisecond)
		q.Wait(WriterPruning)
		order <- WriterPruning
		q.Release()
	}()

	time.Sleep(20 * time.Millisecond)
	q.Release()

	first := <-order
	second := <-order
	if first != WriterConfirmationHeight || second != WriterPruning {
		t.Fatalf("got order %v, %v; want ConfirmationHeight then Pruning", first, second)
	}
}

func TestWriteQueueTryLockFailsWhenHeld(t *testing.T) {
	q := NewWriteQueue()
	q.Wait(WriterProcessBatch)
	if q.TryLock(WriterTesting) {
		t.Fatalf("TryLock should fail while another writer holds the queue")
	}
	q.Release()
	if !q.TryLock(WriterTesting) {
		t.Fatalf("TryLock should succeed once the queue is free")
	}
	q.Release()
}

func TestWriteQueueContains(t *testing.T) {
	q := NewWriteQueue()
	q.Wait(WriterProcessBatch)
	done := make(chan struct{})
	go func() {
		q.Wait(WriterPruning)
		q.Release()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	if !q.Contains(WriterPruning) {
		t.Fatalf("expected queue to contain the waiting pruning writer")
	}
	q.Release()
	<-done
}
