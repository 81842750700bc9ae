package consensus

import (
	"time"

	"github.com/tolelom/tolchain/core"
)

// hintedRatio is the fraction of quorum a hash's cached votes must
// already represent before the hinted scheduler promotes it straight to
// an Active election, skipping the usual passive warm-up.
const hintedRatio = 0.10

// HintedSource resolves a hash the vote cache named into the block and
// owning account the scheduler needs to start an election.
type HintedSource interface {
	BlockByHash(h core.BlockHash) (core.Account, core.Block, error)
}

// HintedScheduler watches the router's vote cache for hashes that have
// accumulated enough weight to be worth an election even though nothing
// else has requested one yet — typically a block this node hasn't
// processed yet but that much of the network has already voted for.
type HintedScheduler struct {
	router *Router
	source HintedSource

	notifyCh chan struct{}
	stopCh   chan struct{}
}

func NewHintedScheduler(router *Router, source HintedSource) *HintedScheduler {
	return &HintedScheduler{
		router:   router,
		source:   source,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

func (s *HintedScheduler) Start() { go s.run() }
func (s *HintedScheduler) Stop()  { close(s.stopCh) }

func (s *HintedScheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *HintedScheduler) ContainerInfo() ContainerInfo {
	return ContainerInfo{Name: "hinted", Size: s.router.voteCache.Len()}
}

func (s *HintedScheduler) run() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.notifyCh:
			s.tick()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *HintedScheduler) tick() {
	now := time.Now()
	quorum := s.router.online.QuorumDelta(now)
	threshold := quorum.MulPercent(int64(hintedRatio * 100))

	for _, h := range s.router.voteCache.Keys() {
		votes, ok := s.router.voteCache.Peek(h)
		if !ok {
			continue
		}
		weight := core.ZeroAmount
		for _, v := range votes {
			weight = weight.Add(s.router.weights.Weight(v.Account))
		}
		if weight.Cmp(threshold) < 0 {
			continue
		}
		account, block, err := s.source.BlockByHash(h)
		if err != nil {
			continue
		}
		startElection(s.router, candidate{account: account, root: h, block: block}, true)
	}
}
