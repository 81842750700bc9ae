package ledger

import "github.com/tolelom/tolchain/core"

// Plan walks forward from hash to the tip of its account chain and
// returns every block that would need to be rolled back to remove hash,
// tip-first (the order Rollback must undo them in) so dependents never
// outlive what they depend on.
func Plan(txn *WriteTxn, hash core.BlockHash) ([]core.BlockHash, error) {
	stored, err := txn.GetBlock(hash)
	if err != nil {
		return nil, err
	}
	var chain []core.BlockHash
	cursor := hash
	for {
		chain = append(chain, cursor)
		stored, err = txn.GetBlock(cursor)
		if err != nil {
			return nil, err
		}
		if stored.Sideband.Successor.IsZero() {
			break
		}
		cursor = stored.Sideband.Successor
	}
	// Reverse so the tip comes first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Rollback undoes exactly one block, the current head of its account
// chain. Callers must process Plan's output in order so every block is
// the head at the moment it is rolled back.
func Rollback(txn *WriteTxn, hash core.BlockHash) error {
	stored, err := txn.GetBlock(hash)
	if err != nil {
		return err
	}
	account := stored.Sideband.Account
	info, err := txn.GetAccountInfo(account)
	if err != nil {
		return err
	}
	if info.Head != hash {
		return ErrBlockPosition
	}

	if stored.Sideband.Details.IsSend {
		// The corresponding pending entry was created by this block;
		// removing the block must remove the receivable too, whether or
		// not it has since been received (if it was received, that
		// receiving block is a dependent already rolled back by Plan's
		// ordering, and re-rolling it back here would be a double
		// removal — so only delete if still outstanding).
		destination := sendDestination(stored.Block)
		key := core.PendingKey{Account: destination, Hash: hash}
		if _, err := txn.GetPending(key); err == nil {
			txn.DelPending(key)
		}
	}
	if stored.Sideband.Details.IsReceive {
		source := receiveSource(stored.Block)
		sourceStored, err := txn.GetBlock(source)
		if err == nil {
			amount := stored.Sideband.Balance.Sub(balanceBefore(txn, stored))
			if err := txn.PutPending(
				core.PendingKey{Account: account, Hash: source},
				core.PendingInfo{Source: sourceStored.Sideband.Account, Amount: amount, Epoch: stored.Sideband.SourceEpoch},
			); err != nil {
				return err
			}
		}
	}

	txn.DelBlock(hash)

	if core.IsOpen(stored.Block) {
		txn.DelAccountInfo(account)
		return nil
	}

	previous := stored.Block.PreviousHash()
	prevStored, err := txn.GetBlock(previous)
	if err != nil {
		return err
	}
	representative, err := representativeAt(txn, previous)
	if err != nil {
		return err
	}
	info.Head = previous
	info.Balance = prevStored.Sideband.Balance
	info.BlockCount--
	info.Epoch = prevStored.Sideband.Details.Epoch
	info.Representative = representative
	if err := txn.PutAccountInfo(account, info); err != nil {
		return err
	}
	return txn.SetSuccessor(previous, core.BlockHash{})
}

// representativeAt returns the representative in effect immediately after
// hash was processed. Open, change, and state blocks carry their own
// representative; legacy send/receive blocks don't touch it, so the walk
// continues back through the chain until it reaches a block that does
// (every chain starts with an open block, which always does).
func representativeAt(txn *WriteTxn, hash core.BlockHash) (core.Account, error) {
	for {
		stored, err := txn.GetBlock(hash)
		if err != nil {
			return core.Account{}, err
		}
		switch b := stored.Block.(type) {
		case *core.LegacyOpenBlock:
			return b.Representative, nil
		case *core.LegacyChangeBlock:
			return b.Representative, nil
		case *core.StateBlock:
			return b.Representative, nil
		default:
			prev := stored.Block.PreviousHash()
			if prev.IsZero() {
				return core.Account{}, nil
			}
			hash = prev
		}
	}
}

func sendDestination(b core.Block) core.Account {
	switch v := b.(type) {
	case *core.LegacySendBlock:
		return v.Destination
	case *core.StateBlock:
		return v.Link.AsAccount()
	default:
		return core.Account{}
	}
}

func receiveSource(b core.Block) core.BlockHash {
	switch v := b.(type) {
	case *core.LegacyOpenBlock:
		return v.Source
	case *core.LegacyReceiveBlock:
		return v.Source
	case *core.StateBlock:
		return v.Link.AsBlockHash()
	default:
		return core.BlockHash{}
	}
}

// balanceBefore returns the account's balance immediately before stored
// was applied, used to recompute the receivable amount being restored.
func balanceBefore(txn *WriteTxn, stored core.StoredBlock) core.Amount {
	if core.IsOpen(stored.Block) {
		return core.ZeroAmount
	}
	prev, err := txn.GetBlock(stored.Block.PreviousHash())
	if err != nil {
		return core.ZeroAmount
	}
	return prev.Sideband.Balance
}
