package consensus

import (
	"sync"
	"time"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/ledger"
)

// onlineWindow is how long a representative is still counted "online"
// after its last observed vote.
const onlineWindow = 2 * time.Minute

// quorumDeltaPercent is the fraction of the effective online weight a
// block's tally must reach before an election can confirm.
const quorumDeltaPercent = 67

// OnlineReps tracks which representatives have voted recently and
// derives the online, trended and quorum-delta weight figures the
// election engine and vote prioritization need.
type OnlineReps struct {
	mu                  sync.Mutex
	weights             *ledger.RepWeights
	lastSeen            map[core.Account]time.Time
	trended             core.Amount
	onlineWeightMinimum core.Amount
}

// NewOnlineReps returns a tracker backed by weights, with the
// configured network floor for trended weight.
func NewOnlineReps(weights *ledger.RepWeights, onlineWeightMinimum core.Amount) *OnlineReps {
	return &OnlineReps{
		weights:             weights,
		lastSeen:            make(map[core.Account]time.Time),
		trended:             onlineWeightMinimum,
		onlineWeightMinimum: onlineWeightMinimum,
	}
}

// Observe records that rep was just seen voting (or heard from in a
// keepalive), at now.
func (o *OnlineReps) Observe(rep core.Account, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastSeen[rep] = now
}

// Online returns the sum of weight held by representatives seen within
// onlineWindow of now.
func (o *OnlineReps) Online(now time.Time) core.Amount {
	o.mu.Lock()
	reps := make([]core.Account, 0, len(o.lastSeen))
	for rep, seen := range o.lastSeen {
		if now.Sub(seen) <= onlineWindow {
			reps = append(reps, rep)
		} else {
			delete(o.lastSeen, rep)
		}
	}
	o.mu.Unlock()

	total := core.ZeroAmount
	for _, rep := range reps {
		total = total.Add(o.weights.Weight(rep))
	}
	return total
}

// Sample folds the current online weight into the trended figure. Called
// on a slow periodic timer (minutes, not seconds) by the node's
// background maintenance loop; trended is a slow-moving floor so a
// temporary drop in online peers can't by itself lower quorum enough to
// let a minority confirm.
func (o *OnlineReps) Sample(now time.Time) {
	online := o.Online(now)
	o.mu.Lock()
	defer o.mu.Unlock()
	if online.Cmp(o.trended) > 0 {
		o.trended = online
	}
	if o.trended.Cmp(o.onlineWeightMinimum) < 0 {
		o.trended = o.onlineWeightMinimum
	}
}

// Trended returns the current trended weight floor.
func (o *OnlineReps) Trended() core.Amount {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trended
}

// QuorumDelta returns the weight a block's tally must reach to confirm:
// quorumDeltaPercent of the greatest of the current online weight, the
// trended floor and the configured online weight minimum, so a sudden
// loss of online peers can't be exploited to lower the bar below what
// the network has sustained historically.
func (o *OnlineReps) QuorumDelta(now time.Time) core.Amount {
	online := o.Online(now)
	trended := o.Trended()
	basis := online
	if trended.Cmp(basis) > 0 {
		basis = trended
	}
	if o.onlineWeightMinimum.Cmp(basis) > 0 {
		basis = o.onlineWeightMinimum
	}
	return basis.MulPercent(quorumDeltaPercent)
}

// MinimumPrincipalWeight is the delegated-weight floor (0.1% of trended
// weight) below which a representative's votes are still recorded by an
// election but contribute nothing to its tally.
func (o *OnlineReps) MinimumPrincipalWeight() core.Amount {
	return o.Trended().DivUint64(1000)
}
