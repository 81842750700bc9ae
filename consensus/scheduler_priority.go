package consensus

import (
	"sort"
	"time"

	"github.com/tolelom/tolchain/core"
)

// priorityBucketEdges splits accounts into balance buckets (in raw units)
// so a handful of low-balance spam accounts can't crowd out elections for
// high-value accounts. A tick visits buckets from highest to lowest; it
// does not interleave the buckets round-robin.
var priorityBucketEdges = []uint64{0, 1_000, 1_000_000, 1_000_000_000}

// PrioritySource is the subset of ledger state the priority scheduler
// needs: every account with a frontier block not yet confirmed.
type PrioritySource interface {
	UnconfirmedFrontiers() ([]core.Account, error)
	Frontier(account core.Account) (core.Block, error)
	AccountBalance(account core.Account) (core.Amount, error)
}

// PriorityScheduler starts elections for account frontiers. Each tick
// starts every unconfirmed frontier in one pass, highest balance bucket
// first and highest balance first within a bucket, so large accounts are
// never starved by a flood of small ones.
type PriorityScheduler struct {
	router *Router
	source PrioritySource

	notifyCh chan struct{}
	stopCh   chan struct{}
}

func NewPriorityScheduler(router *Router, source PrioritySource) *PriorityScheduler {
	return &PriorityScheduler{
		router:   router,
		source:   source,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

func (s *PriorityScheduler) Start() { go s.run() }

func (s *PriorityScheduler) Stop() { close(s.stopCh) }

func (s *PriorityScheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *PriorityScheduler) ContainerInfo() ContainerInfo {
	accounts, _ := s.source.UnconfirmedFrontiers()
	return ContainerInfo{Name: "priority", Size: len(accounts)}
}

func (s *PriorityScheduler) run() {
	ticker := time.NewTicker(time.Second)
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

func (s *PriorityScheduler) tick() {
	accounts, err := s.source.UnconfirmedFrontiers()
	if err != nil {
		return
	}

	type bucketed struct {
		account core.Account
		bucket  int
		balance core.Amount
	}
	items := make([]bucketed, 0, len(accounts))
	for _, a := range accounts {
		balance, err := s.source.AccountBalance(a)
		if err != nil {
			continue
		}
		items = append(items, bucketed{account: a, bucket: bucketFor(balance), balance: balance})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].bucket != items[j].bucket {
			return items[i].bucket > items[j].bucket
		}
		return items[i].balance.Cmp(items[j].balance) > 0
	})

	for _, it := range items {
		block, err := s.source.Frontier(it.account)
		if err != nil {
			continue
		}
		startElection(s.router, candidate{account: it.account, root: block.Hash(), block: block}, true)
	}
}

func bucketFor(balance core.Amount) int {
	bucket := 0
	for i, edge := range priorityBucketEdges {
		if balance.Cmp(core.AmountFromUint64(edge)) >= 0 {
			bucket = i
		}
	}
	return bucket
}
