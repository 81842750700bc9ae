package core

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/tolelom/tolchain/crypto"
)

// Default work thresholds, tabulated per the two difficulty classes the
// validator checks against (§4.A): sends and changes need the higher
// threshold, receives, opens and epoch blocks the lower one.
const (
	defaultSendThreshold    uint64 = 0xfffffff800000000
	defaultReceiveThreshold uint64 = 0xffffffc000000000
)

// WorkThresholds holds the two difficulty classes for one epoch policy.
// A real node loads these from genesis/network configuration; tests use
// DefaultWorkThresholds.
type WorkThresholds struct {
	Send    uint64
	Receive uint64
}

// DefaultWorkThresholds returns the thresholds used when a node has not
// been configured with network-specific values.
func DefaultWorkThresholds() WorkThresholds {
	return WorkThresholds{Send: defaultSendThreshold, Receive: defaultReceiveThreshold}
}

// ThresholdFor returns the difficulty threshold a block with the given
// details must meet.
func (t WorkThresholds) ThresholdFor(d BlockDetails) uint64 {
	if d.IsReceive || d.IsEpoch {
		return t.Receive
	}
	return t.Send
}

// workHash combines the PoW root (previous hash, or the account for an
// open block) with the candidate work nonce.
func workHash(root BlockHash, work Work) [32]byte {
	var workBytes [8]byte
	binary.LittleEndian.PutUint64(workBytes[:], uint64(work))
	return crypto.Blake2b256(workBytes[:], root[:])
}

// IsValidPoW reports whether work meets threshold for the given root.
func IsValidPoW(root BlockHash, work Work, threshold uint64) bool {
	digest := workHash(root, work)
	// The difficulty value is the hash's last 8 bytes read as a
	// little-endian integer, matching the original implementation's
	// convention of treating the digest as a reversed big number.
	value := binary.LittleEndian.Uint64(digest[len(digest)-8:])
	return value >= threshold
}

// WorkCounter is the process-wide cancellation counter described in §5:
// generating work for a root captures the current value as a WorkTicket;
// cancelling bumps the counter and wakes anyone blocked in Wait.
type WorkCounter struct {
	value atomic.Uint64

	mu   sync.Mutex
	cond *sync.Cond
}

// NewWorkCounter returns a counter starting at zero.
func NewWorkCounter() *WorkCounter {
	c := &WorkCounter{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Ticket captures the counter's current value.
func (c *WorkCounter) Ticket() WorkTicket {
	return WorkTicket{counter: c, value: c.value.Load()}
}

// CancelAll invalidates every outstanding ticket and wakes waiters.
func (c *WorkCounter) CancelAll() {
	c.value.Add(1)
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Wait blocks until the next CancelAll. Work-pool goroutines call this
// between PoW attempts so they notice cancellation promptly without
// polling.
func (c *WorkCounter) Wait() {
	c.mu.Lock()
	c.cond.Wait()
	c.mu.Unlock()
}

// WorkTicket is a snapshot of a WorkCounter taken when a work request
// began. Expired once the counter has since advanced.
type WorkTicket struct {
	counter *WorkCounter
	value   uint64
}

// Expired reports whether the counter has advanced since the ticket was
// issued, meaning the in-flight work request should stop.
func (t WorkTicket) Expired() bool {
	return t.counter.value.Load() != t.value
}
