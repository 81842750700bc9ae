package ledger

import (
	"sync"

	"github.com/tolelom/tolchain/core"
)

// RepWeights is the durable map from representative account to its total
// delegated balance, mirrored in an in-memory mutex-guarded map for the
// hot read path (tally, quorum, online-representatives). Grounded on
// _examples/original_source/rust/ledger/src/rep_weights.rs: a RAM cache
// backed by a durable table, updated by the same dual add/subtract call
// used whenever a representative change moves weight between two
// accounts (including the "from none" / "to none" cases at account
// open/close).
type RepWeights struct {
	mu      sync.RWMutex
	weights map[core.Account]core.Amount
	store   *Store
}

// NewRepWeights loads the full table into RAM. Called once at node start;
// the table is small enough (one entry per representative, not per
// account) to keep entirely in memory.
func NewRepWeights(store *Store) (*RepWeights, error) {
	r := &RepWeights{weights: make(map[core.Account]core.Amount), store: store}
	txn := store.TxBeginRead()
	it := txn.db.NewIterator(repWeightPrefix())
	defer it.Release()
	for it.Next() {
		var rep core.Account
		copy(rep[:], it.Key()[1:])
		amount, err := parseAmount(string(it.Value()))
		if err != nil {
			return nil, err
		}
		r.weights[rep] = amount
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return r, nil
}

// Weight returns the current delegated balance for rep, zero if it has
// none.
func (r *RepWeights) Weight(rep core.Account) core.Amount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.weights[rep]; ok {
		return w
	}
	return core.ZeroAmount
}

// Total returns the sum of every representative's weight (the
// network's total stake, used for quorum and percent-of-supply checks).
func (r *RepWeights) Total() core.Amount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := core.ZeroAmount
	for _, w := range r.weights {
		total = total.Add(w)
	}
	return total
}

// AddDual moves amount of weight from `from` to `to` atomically, so
// callers never observe a transient state where the weight has left one
// representative but not yet arrived at the other. Either side may be the
// zero account (weight entering or leaving circulation at account
// open/close).
func (r *RepWeights) AddDual(txn *WriteTxn, from, to core.Account, amount core.Amount) error {
	if amount.IsZero() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !from.IsZero() {
		w := r.weights[from]
		w = w.Sub(amount)
		r.weights[from] = w
		if err := r.persist(txn, from, w); err != nil {
			return err
		}
	}
	if !to.IsZero() {
		w := r.weights[to]
		w = w.Add(amount)
		r.weights[to] = w
		if err := r.persist(txn, to, w); err != nil {
			return err
		}
	}
	return nil
}

func (r *RepWeights) persist(txn *WriteTxn, rep core.Account, amount core.Amount) error {
	if amount.IsZero() {
		txn.del(repWeightKey(rep))
		return nil
	}
	txn.set(repWeightKey(rep), []byte(amount.String()))
	return nil
}
