package consensus

import (
	"time"

	"github.com/tolelom/tolchain/core"
)

// ContainerInfo reports a scheduler's current queue depth, surfaced
// through RPC/metrics so an operator can see which scheduler is backed
// up.
type ContainerInfo struct {
	Name string
	Size int
}

// Scheduler is the shared lifecycle every election scheduler implements:
// a start/stop/notify goroutine loop (the same shape the teacher's
// network.Node uses for its accept/read loops) that decides which
// accounts get a new election.
type Scheduler interface {
	Start()
	Stop()
	// Notify wakes the scheduler's loop immediately instead of waiting
	// for its next tick, called whenever the ledger changes in a way
	// that might affect this scheduler's candidate set.
	Notify()
	ContainerInfo() ContainerInfo
}

// candidate is one block a scheduler wants to start (or activate) an
// election for.
type candidate struct {
	account core.Account
	root    core.BlockHash
	block   core.Block
}

// startElection is shared by every scheduler: insert a (possibly already
// passive) election into the router and activate it.
func startElection(router *Router, c candidate, active bool) {
	now := time.Now()
	e, ok := router.Get(c.root)
	if !ok {
		e = NewElection(c.account, c.root, now)
		e.AddCandidate(c.block)
		for _, v := range router.CachedVotes(c.root) {
			e.ProcessVote(v, router.weights, router.online.QuorumDelta(now), router.online.MinimumPrincipalWeight())
		}
		router.Insert(e)
	}
	if active {
		e.Activate()
	}
}
