package main

import (
	"time"

	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/indexer"
	"github.com/tolelom/tolchain/ledger"
)

// ledgerAdapter is the single type that satisfies every ledger-facing
// interface the network, consensus and rpc packages declare
// (network.BlockSink/ChainSource, consensus.PrioritySource/
// OptimisticSource/HintedSource/AggregatorSource, rpc.Processor), so
// those packages stay independent of each other and of the concrete
// ledger.Store/ledger.WriteQueue wiring this command assembles.
type ledgerAdapter struct {
	store      *ledger.Store
	weights    *ledger.RepWeights
	queue      *ledger.WriteQueue
	epochs     *core.Epochs
	thresholds core.WorkThresholds
	emitter    *events.Emitter
	indexer    *indexer.Indexer
	router     *consensus.Router

	schedulers []consensus.Scheduler
}

func newLedgerAdapter(store *ledger.Store, weights *ledger.RepWeights, queue *ledger.WriteQueue, epochs *core.Epochs, thresholds core.WorkThresholds, emitter *events.Emitter, idx *indexer.Indexer, router *consensus.Router) *ledgerAdapter {
	return &ledgerAdapter{
		store:      store,
		weights:    weights,
		queue:      queue,
		epochs:     epochs,
		thresholds: thresholds,
		emitter:    emitter,
		indexer:    idx,
		router:     router,
	}
}

// ProcessBlock validates and applies block under the write queue's
// ProcessBatch slot — the single entry point for network-received,
// RPC-submitted and bootstrap-pulled blocks alike.
func (a *ledgerAdapter) ProcessBlock(block core.Block) error {
	a.queue.Wait(ledger.WriterProcessBatch)
	defer a.queue.Release()

	txn := a.store.TxBeginWrite()

	var oldRep core.Account
	if sb, ok := block.(*core.StateBlock); ok {
		if info, err := txn.GetAccountInfo(sb.Account); err == nil {
			oldRep = info.Representative
		}
	}

	sideband, err := ledger.ProcessBlock(txn, a.epochs, a.thresholds, a.weights, time.Now().Unix(), block)
	if err != nil {
		return err
	}
	newInfo, err := txn.GetAccountInfo(sideband.Account)
	if err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	a.emitter.Emit(events.Event{
		Type:      events.EventBlockProcessed,
		Account:   core.EncodeAccount(sideband.Account),
		BlockHash: block.Hash().Hex(),
		Data: map[string]any{
			"old_representative": core.EncodeAccount(oldRep),
			"new_representative": core.EncodeAccount(newInfo.Representative),
		},
	})
	for _, s := range a.schedulers {
		s.Notify()
	}
	return nil
}

// ProcessVote implements network.VoteSink by routing v at the current
// time.
func (a *ledgerAdapter) ProcessVote(v *consensus.Vote) consensus.VoteCode {
	return a.router.ProcessVote(v, time.Now())
}

// ChainFrom implements network.ChainSource: it streams account's chain
// starting with the block immediately after start (the open block if
// start is zero), following each block's sideband successor pointer.
func (a *ledgerAdapter) ChainFrom(account core.Account, start core.BlockHash, count uint32) ([]core.Block, error) {
	txn := a.store.TxBeginRead()

	var cursor core.BlockHash
	if start.IsZero() {
		info, err := txn.GetAccountInfo(account)
		if err != nil {
			return nil, err
		}
		cursor = info.OpenBlock
	} else {
		stored, err := txn.GetBlock(start)
		if err != nil {
			return nil, err
		}
		cursor = stored.Sideband.Successor
	}

	out := make([]core.Block, 0, count)
	for i := uint32(0); i < count && !cursor.IsZero(); i++ {
		stored, err := txn.GetBlock(cursor)
		if err != nil {
			break
		}
		out = append(out, stored.Block)
		cursor = stored.Sideband.Successor
	}
	return out, nil
}

// UnconfirmedFrontiers implements the PrioritySource/OptimisticSource
// leg shared by both pulling schedulers.
func (a *ledgerAdapter) UnconfirmedFrontiers() ([]core.Account, error) {
	ids, err := a.indexer.GetUnconfirmed()
	if err != nil {
		return nil, err
	}
	out := make([]core.Account, 0, len(ids))
	for _, s := range ids {
		account, err := core.DecodeAccount(s)
		if err != nil {
			continue
		}
		out = append(out, account)
	}
	return out, nil
}

func (a *ledgerAdapter) Frontier(account core.Account) (core.Block, error) {
	txn := a.store.TxBeginRead()
	info, err := txn.GetAccountInfo(account)
	if err != nil {
		return nil, err
	}
	stored, err := txn.GetBlock(info.Head)
	if err != nil {
		return nil, err
	}
	return stored.Block, nil
}

func (a *ledgerAdapter) AccountBalance(account core.Account) (core.Amount, error) {
	txn := a.store.TxBeginRead()
	info, err := txn.GetAccountInfo(account)
	if err != nil {
		return core.ZeroAmount, err
	}
	return info.Balance, nil
}

func (a *ledgerAdapter) Gap(account core.Account) (uint64, error) {
	txn := a.store.TxBeginRead()
	info, err := txn.GetAccountInfo(account)
	if err != nil {
		return 0, err
	}
	height, err := txn.GetConfirmationHeight(account)
	if err != nil {
		return 0, err
	}
	if info.BlockCount <= height.Height {
		return 0, nil
	}
	return info.BlockCount - height.Height, nil
}

// BlockByHash implements consensus.HintedSource/AggregatorSource.
func (a *ledgerAdapter) BlockByHash(h core.BlockHash) (core.Account, core.Block, error) {
	txn := a.store.TxBeginRead()
	stored, err := txn.GetBlock(h)
	if err != nil {
		return core.Account{}, nil, err
	}
	return stored.Sideband.Account, stored.Block, nil
}

// ConfirmationHeight implements consensus.AggregatorSource.
func (a *ledgerAdapter) ConfirmationHeight(account core.Account) (core.ConfirmationHeightInfo, error) {
	txn := a.store.TxBeginRead()
	return txn.GetConfirmationHeight(account)
}
