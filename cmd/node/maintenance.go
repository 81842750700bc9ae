package main

import (
	"log"
	"time"

	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/ledger"
	"github.com/tolelom/tolchain/network"
)

// maintenanceTick is how often the maintenance loop checks active
// elections for quorum or expiry. Short enough that a confirmed block
// cements promptly, long enough not to spin the write queue.
const maintenanceTick = 500 * time.Millisecond

// runOnlineRepsSampler periodically records the current online weight
// into OnlineReps' trended window, the input to the quorum rule's
// max(online, trended, minimum) term.
func runOnlineRepsSampler(online *consensus.OnlineReps, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case t := <-ticker.C:
			online.Sample(t)
		}
	}
}

// runMaintenance drives every active election to its conclusion: once
// quorum is reached it cements the winner's chain and broadcasts the
// confirmation, and it expires elections that have run past their
// deadline without confirming.
func runMaintenance(store *ledger.Store, queue *ledger.WriteQueue, router *consensus.Router, recentlyConfirmed *consensus.RecentlyConfirmed, recentlyCemented *consensus.RecentlyCemented, emitter *events.Emitter, node *network.Node, maxBlocks int, done <-chan struct{}) {
	ticker := time.NewTicker(maintenanceTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			for _, election := range router.Active() {
				if election.Confirmed() {
					cementElection(store, queue, router, recentlyConfirmed, recentlyCemented, emitter, node, maxBlocks, election)
					continue
				}
				if election.MaybeExpire(now) {
					router.Remove(election.Root)
					emitter.Emit(events.Event{
						Type:    events.EventElectionExpired,
						Account: core.EncodeAccount(election.Account),
					})
				}
			}
		}
	}
}

func cementElection(store *ledger.Store, queue *ledger.WriteQueue, router *consensus.Router, recentlyConfirmed *consensus.RecentlyConfirmed, recentlyCemented *consensus.RecentlyCemented, emitter *events.Emitter, node *network.Node, maxBlocks int, election *consensus.Election) {
	winner := election.Winner()
	if winner.IsZero() {
		return
	}
	recentlyConfirmed.Put(winner, election.Account)
	emitter.Emit(events.Event{
		Type:      events.EventElectionConfirmed,
		Account:   core.EncodeAccount(election.Account),
		BlockHash: winner.Hex(),
	})

	// Confirm caps each call at maxBlocks; a chain longer than that drains
	// across repeated calls here rather than one unbounded pass.
	var confirmedHashes []core.BlockHash
	for {
		batch, err := ledger.Confirm(store, queue, election.Account, winner, maxBlocks)
		if err != nil {
			log.Printf("[maintenance] confirm %s: %v", winner.Hex(), err)
			return
		}
		confirmedHashes = append(confirmedHashes, batch...)
		if maxBlocks <= 0 || len(batch) < maxBlocks {
			break
		}
	}
	router.Remove(election.Root)

	txn := store.TxBeginRead()
	for _, hash := range confirmedHashes {
		stored, err := txn.GetBlock(hash)
		if err != nil {
			continue
		}
		account := stored.Sideband.Account
		height, err := txn.GetConfirmationHeight(account)
		if err != nil {
			continue
		}
		recentlyCemented.Put(hash, height)
		emitter.Emit(events.Event{
			Type:      events.EventBlockCemented,
			Account:   core.EncodeAccount(account),
			BlockHash: hash.Hex(),
		})
	}

	if block, err := electionWinnerBlock(store, winner); err == nil {
		node.PublishBlock(block, true)
	}
}

func electionWinnerBlock(store *ledger.Store, hash core.BlockHash) (core.Block, error) {
	txn := store.TxBeginRead()
	stored, err := txn.GetBlock(hash)
	if err != nil {
		return nil, err
	}
	return stored.Block, nil
}
