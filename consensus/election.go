package consensus

import (
	"sync"
	"time"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/ledger"
)

// ElectionState is the lifecycle stage of one election.
type ElectionState int

const (
	ElectionPassive ElectionState = iota
	ElectionActive
	ElectionConfirmed
	ElectionExpired
)

// electionDuration bounds how long an election stays Active before it is
// expired if it has not confirmed.
const electionDuration = 5 * time.Minute

// Election tracks the tally for every competing block at one (account,
// root) position: a fork set. Exactly one (account,root) key maps to one
// *Election at a time, owned by the Router.
type Election struct {
	mu sync.Mutex

	Account core.Account
	Root    core.BlockHash
	State   ElectionState
	Started time.Time

	blocks map[core.BlockHash]core.Block
	// votes is the last vote seen from each representative, enforcing
	// strict per-representative monotonicity: a new vote only replaces
	// the stored one if it is final, or if the stored one isn't final
	// and the new timestamp is strictly greater.
	votes map[core.Account]*Vote

	winner    core.BlockHash
	confirmed bool
}

// NewElection starts a passive election for root.
func NewElection(account core.Account, root core.BlockHash, now time.Time) *Election {
	return &Election{
		Account: account,
		Root:    root,
		State:   ElectionPassive,
		Started: now,
		blocks:  make(map[core.BlockHash]core.Block),
		votes:   make(map[core.Account]*Vote),
	}
}

// Activate promotes a passive election to active, meaning the node now
// actively requests and broadcasts votes for it instead of only
// listening.
func (e *Election) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State == ElectionPassive {
		e.State = ElectionActive
	}
}

// AddCandidate registers a competing block for this root. The first
// candidate registered becomes the tie-break winner until tally says
// otherwise.
func (e *Election) AddCandidate(block core.Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := block.Hash()
	if _, ok := e.blocks[h]; ok {
		return
	}
	e.blocks[h] = block
	if e.winner.IsZero() {
		e.winner = h
	}
}

// ProcessVote is the four-step algorithm: (1) reject a replay — a vote
// whose timestamp is no greater than the previous stored one, unless the
// new vote is final and the stored one wasn't; (2) record it as this
// representative's latest vote; (3) re-tally every candidate's weight,
// ignoring voters below minimumPrincipalWeight; (4) check the quorum rule
// and move to Confirmed if it's met.
func (e *Election) ProcessVote(v *Vote, weights *ledger.RepWeights, quorumDelta, minimumPrincipalWeight core.Amount) VoteCode {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State == ElectionExpired || e.confirmed {
		return VoteCodeIgnored
	}

	prev, seen := e.votes[v.Account]
	if seen {
		if prev.IsFinal() {
			return VoteCodeReplay
		}
		if !v.IsFinal() && v.Timestamp <= prev.Timestamp {
			return VoteCodeReplay
		}
	}
	e.votes[v.Account] = v

	tally := e.tallyLocked(weights, minimumPrincipalWeight)
	best, bestWeight := bestCandidate(tally)
	if best.IsZero() {
		return VoteCodeIndeterminate
	}
	e.winner = best

	if bestWeight.Cmp(quorumDelta) >= 0 {
		e.State = ElectionConfirmed
		e.confirmed = true
	}
	return VoteCodeVote
}

// tallyLocked sums, for every candidate block, the weight of every
// representative whose latest recorded vote names it and whose weight
// meets minimumPrincipalWeight; sub-principal reps don't count toward
// quorum even though their vote is still recorded. Caller must hold e.mu.
func (e *Election) tallyLocked(weights *ledger.RepWeights, minimumPrincipalWeight core.Amount) map[core.BlockHash]core.Amount {
	tally := make(map[core.BlockHash]core.Amount, len(e.blocks))
	for h := range e.blocks {
		tally[h] = core.ZeroAmount
	}
	for rep, vote := range e.votes {
		w := weights.Weight(rep)
		if w.IsZero() || w.Cmp(minimumPrincipalWeight) < 0 {
			continue
		}
		for _, h := range vote.Hashes {
			if _, ok := tally[h]; ok {
				tally[h] = tally[h].Add(w)
			}
		}
	}
	return tally
}

func bestCandidate(tally map[core.BlockHash]core.Amount) (core.BlockHash, core.Amount) {
	var best core.BlockHash
	bestWeight := core.ZeroAmount
	for h, w := range tally {
		if w.Cmp(bestWeight) > 0 {
			best, bestWeight = h, w
		}
	}
	return best, bestWeight
}

// Winner returns the currently leading block hash: the first candidate
// added until a tally names a leader, or the zero hash if the election
// has no candidate.
func (e *Election) Winner() core.BlockHash {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner
}

// Confirmed reports whether quorum has been reached.
func (e *Election) Confirmed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed
}

// MaybeExpire moves an Active election past its deadline to Expired,
// returning true if it did.
func (e *Election) MaybeExpire(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State == ElectionActive && !e.confirmed && now.Sub(e.Started) > electionDuration {
		e.State = ElectionExpired
		return true
	}
	return false
}
