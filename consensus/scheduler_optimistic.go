package consensus

import (
	"time"

	"github.com/tolelom/tolchain/core"
)

// optimisticGapThreshold is how many unconfirmed blocks an account chain
// may accumulate above its confirmation height before the optimistic
// scheduler starts an election for it even without having seen any vote
// — a backstop against an account whose votes never happen to get
// requested by the priority scheduler's normal cadence.
const optimisticGapThreshold = 32

// OptimisticSource is the ledger view the optimistic scheduler needs.
type OptimisticSource interface {
	UnconfirmedFrontiers() ([]core.Account, error)
	Frontier(account core.Account) (core.Block, error)
	Gap(account core.Account) (uint64, error)
}

// OptimisticScheduler starts elections for accounts whose confirmation
// gap has grown past optimisticGapThreshold.
type OptimisticScheduler struct {
	router *Router
	source OptimisticSource

	notifyCh chan struct{}
	stopCh   chan struct{}
}

func NewOptimisticScheduler(router *Router, source OptimisticSource) *OptimisticScheduler {
	return &OptimisticScheduler{
		router:   router,
		source:   source,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

func (s *OptimisticScheduler) Start() { go s.run() }
func (s *OptimisticScheduler) Stop()  { close(s.stopCh) }

func (s *OptimisticScheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *OptimisticScheduler) ContainerInfo() ContainerInfo {
	return ContainerInfo{Name: "optimistic", Size: 0}
}

func (s *OptimisticScheduler) run() {
	ticker := time.NewTicker(5 * time.Second)
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

func (s *OptimisticScheduler) tick() {
	accounts, err := s.source.UnconfirmedFrontiers()
	if err != nil {
		return
	}
	for _, a := range accounts {
		gap, err := s.source.Gap(a)
		if err != nil || gap < optimisticGapThreshold {
			continue
		}
		block, err := s.source.Frontier(a)
		if err != nil {
			continue
		}
		startElection(s.router, candidate{account: a, root: block.Hash(), block: block}, true)
	}
}
