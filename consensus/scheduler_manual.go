package consensus

import "github.com/tolelom/tolchain/core"

// ManualScheduler starts elections for roots explicitly requested (by
// RPC, or by the wallet auto-receive path), in FIFO order. Unlike the
// other three schedulers it has no polling loop of its own — Queue only
// enqueues, and the goroutine Start launches drains the queue — but it
// still implements Scheduler so the node's scheduler registry can treat
// all four uniformly.
type ManualScheduler struct {
	router *Router
	queue  chan candidate
	stopCh chan struct{}
}

func NewManualScheduler(router *Router) *ManualScheduler {
	return &ManualScheduler{
		router: router,
		queue:  make(chan candidate, 1024),
		stopCh: make(chan struct{}),
	}
}

// Queue enqueues block for an immediate, active election.
func (s *ManualScheduler) Queue(account core.Account, block core.Block) {
	select {
	case s.queue <- candidate{account: account, root: block.Hash(), block: block}:
	default:
		// Queue full: caller's request is dropped rather than blocking
		// the RPC/wallet path that submitted it.
	}
}

func (s *ManualScheduler) Start() {
	go func() {
		for {
			select {
			case <-s.stopCh:
				return
			case c := <-s.queue:
				startElection(s.router, c, true)
			}
		}
	}()
}

func (s *ManualScheduler) Stop() { close(s.stopCh) }

// Notify is a no-op: ManualScheduler reacts to Queue, not polling.
func (s *ManualScheduler) Notify() {}

func (s *ManualScheduler) ContainerInfo() ContainerInfo {
	return ContainerInfo{Name: "manual", Size: len(s.queue)}
}
