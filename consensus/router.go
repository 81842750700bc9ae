package consensus

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/ledger"
)

// voteCacheSize bounds the router's cache of votes that arrived for a
// root with no live election, so a late-starting election can replay
// them instead of waiting for the network to resend.
const voteCacheSize = 4096

// Router dispatches incoming votes to the live Election for their root
// (if any), and caches votes that arrive before an election exists so the
// Hinted scheduler can use them to jump-start one.
type Router struct {
	mu        sync.RWMutex
	elections map[core.BlockHash]*Election
	byAccount map[core.Account]core.BlockHash

	weights *ledger.RepWeights
	online  *OnlineReps

	voteCache *lru.Cache[core.BlockHash, []*Vote]
}

// NewRouter returns a router backed by weights and online.
func NewRouter(weights *ledger.RepWeights, online *OnlineReps) *Router {
	cache, _ := lru.New[core.BlockHash, []*Vote](voteCacheSize)
	return &Router{
		elections: make(map[core.BlockHash]*Election),
		byAccount: make(map[core.Account]core.BlockHash),
		weights:   weights,
		online:    online,
		voteCache: cache,
	}
}

// Insert registers a new election, replacing any existing one for the
// same account (a new fork root supersedes the account's prior election).
func (r *Router) Insert(e *Election) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byAccount[e.Account]; ok {
		delete(r.elections, old)
	}
	r.elections[e.Root] = e
	r.byAccount[e.Account] = e.Root
}

// Get returns the live election for root, if any.
func (r *Router) Get(root core.BlockHash) (*Election, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.elections[root]
	return e, ok
}

// Remove drops root's election (on confirmation or expiry).
func (r *Router) Remove(root core.BlockHash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.elections[root]; ok {
		delete(r.byAccount, e.Account)
	}
	delete(r.elections, root)
}

// ProcessVote routes v to every root it names: if a live election exists
// for a hash, the vote is tallied there; otherwise it is cached for a
// future Hinted-scheduler election.
func (r *Router) ProcessVote(v *Vote, now time.Time) VoteCode {
	if err := ValidateVote(v); err != nil {
		return VoteCodeInvalid
	}
	r.online.Observe(v.Account, now)

	quorumDelta := r.online.QuorumDelta(now)
	minimumPrincipalWeight := r.online.MinimumPrincipalWeight()
	best := VoteCodeIndeterminate
	matched := false

	for _, h := range v.Hashes {
		r.mu.RLock()
		var election *Election
		for _, e := range r.elections {
			if _, ok := e.blocks[h]; ok {
				election = e
				break
			}
		}
		r.mu.RUnlock()

		if election == nil {
			r.cacheVote(h, v)
			continue
		}
		matched = true
		code := election.ProcessVote(v, r.weights, quorumDelta, minimumPrincipalWeight)
		if code == VoteCodeVote {
			best = VoteCodeVote
		} else if code == VoteCodeReplay && best != VoteCodeVote {
			best = VoteCodeReplay
		}
	}
	if !matched {
		return VoteCodeIndeterminate
	}
	return best
}

func (r *Router) cacheVote(h core.BlockHash, v *Vote) {
	existing, _ := r.voteCache.Get(h)
	existing = append(existing, v)
	r.voteCache.Add(h, existing)
}

// CachedVotes returns and clears any votes cached for h, for a scheduler
// that is about to start an election on it.
func (r *Router) CachedVotes(h core.BlockHash) []*Vote {
	votes, _ := r.voteCache.Get(h)
	r.voteCache.Remove(h)
	return votes
}

// Active returns every election currently in the Active state, used by
// the maintenance loop to check for quorum/expiry on a timer.
func (r *Router) Active() []*Election {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Election, 0, len(r.elections))
	for _, e := range r.elections {
		e.mu.Lock()
		state := e.State
		e.mu.Unlock()
		if state == ElectionActive {
			out = append(out, e)
		}
	}
	return out
}
