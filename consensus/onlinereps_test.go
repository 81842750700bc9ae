package consensus

import (
	"testing"
	"time"

	"github.com/tolelom/tolchain/core"
)

func TestOnlineRepsOnlineSumsRecentlySeen(t *testing.T) {
	rep1 := core.Account{1}
	rep2 := core.Account{2}
	weights := weightsWith(t, map[core.Account]uint64{rep1: 30, rep2: 70})
	online := NewOnlineReps(weights, core.ZeroAmount)

	now := time.Now()
	online.Observe(rep1, now)
	online.Observe(rep2, now.Add(-3*time.Minute)) // outside onlineWindow

	if got := online.Online(now).String(); got != "30" {
		t.Fatalf("Online = %s, want 30", got)
	}
}

func TestOnlineRepsSampleTracksHighWaterMark(t *testing.T) {
	rep := core.Account{1}
	weights := weightsWith(t, map[core.Account]uint64{rep: 100})
	online := NewOnlineReps(weights, core.ZeroAmount)

	now := time.Now()
	online.Observe(rep, now)
	online.Sample(now)
	if got := online.Trended().String(); got != "100" {
		t.Fatalf("Trended = %s, want 100", got)
	}

	// A later sample with no one online should not pull trended back down.
	later := now.Add(10 * time.Minute)
	online.Sample(later)
	if got := online.Trended().String(); got != "100" {
		t.Fatalf("Trended after drop = %s, want 100 (sticky high-water mark)", got)
	}
}

func TestOnlineRepsQuorumDeltaIsSixtySevenPercentOfMax(t *testing.T) {
	rep := core.Account{1}
	weights := weightsWith(t, map[core.Account]uint64{rep: 100})
	online := NewOnlineReps(weights, core.ZeroAmount)

	now := time.Now()
	online.Observe(rep, now)
	online.Sample(now) // trended = 100

	if got := online.QuorumDelta(now).String(); got != "67" {
		t.Fatalf("QuorumDelta = %s, want 67", got)
	}
}

func TestOnlineRepsQuorumDeltaUsesMaxOfOnlineAndTrended(t *testing.T) {
	rep1 := core.Account{1}
	rep2 := core.Account{2}
	weights := weightsWith(t, map[core.Account]uint64{rep1: 100, rep2: 100})
	online := NewOnlineReps(weights, core.ZeroAmount)

	now := time.Now()
	online.Observe(rep1, now)
	online.Observe(rep2, now)
	online.Sample(now) // trended = 200

	// rep1 keeps voting; rep2 goes quiet long enough to drop out of the
	// online window, so online weight falls to 100 while trended stays 200.
	later := now.Add(150 * time.Second)
	online.Observe(rep1, later)
	if got := online.QuorumDelta(later).String(); got != "134" {
		t.Fatalf("QuorumDelta = %s, want 134 (67%% of max(online=100, trended=200))", got)
	}
}
