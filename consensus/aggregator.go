package consensus

import (
	"github.com/tolelom/tolchain/core"
)

// AggregatorSource is the ledger view the request aggregator needs to
// answer a confirm-req it has no live election for.
type AggregatorSource interface {
	ConfirmationHeight(account core.Account) (core.ConfirmationHeightInfo, error)
	BlockByHash(h core.BlockHash) (core.Account, core.Block, error)
}

// Signer produces this node's vote (live or final) for a block, or
// reports that it holds no voting key able to vote on root's account.
type Signer interface {
	Sign(account core.Account, hashes []core.BlockHash, final bool) (*Vote, bool)
}

// Aggregator answers incoming confirm-req messages with the best
// available confirm-ack, in four steps: an already-cemented frontier, a
// live election's current winner, a freshly generated vote over the
// requested block, or — if none of those apply — no response (the
// requester's gap must be filled some other way, e.g. a bootstrap pull).
type Aggregator struct {
	router   *Router
	cemented *RecentlyCemented
	source   AggregatorSource
	signer   Signer
	final    *FinalVotes
}

func NewAggregator(router *Router, cemented *RecentlyCemented, source AggregatorSource, signer Signer, final *FinalVotes) *Aggregator {
	return &Aggregator{router: router, cemented: cemented, source: source, signer: signer, final: final}
}

// Answer resolves one requested hash into a vote to send back, if any.
func (a *Aggregator) Answer(hash core.BlockHash) (*Vote, bool) {
	account, block, err := a.source.BlockByHash(hash)
	if err != nil {
		return nil, false
	}

	if info, ok := a.cemented.Get(hash); ok && info.Frontier == hash {
		return a.signer.Sign(account, []core.BlockHash{hash}, true)
	}

	if election, ok := a.router.Get(hash); ok {
		winner := election.Winner()
		if !winner.IsZero() {
			final := election.Confirmed()
			vote, ok := a.signer.Sign(account, []core.BlockHash{winner}, final)
			if ok && final {
				if !a.final.TryRecord(hash, winner) {
					return nil, false
				}
			}
			return vote, ok
		}
	}

	return a.signer.Sign(account, []core.BlockHash{block.Hash()}, false)
}
