package ledger

import "github.com/tolelom/tolchain/core"

// ProcessBlock is the single entry point the write-queue-serialized block
// processor (network inbound, RPC process/, wallet auto-receive) calls to
// validate a block, persist it, and keep representative weights in sync.
// txn must belong to the Writer that currently holds the write queue.
func ProcessBlock(txn *WriteTxn, epochs *core.Epochs, thresholds core.WorkThresholds, weights *RepWeights, timestamp int64, block core.Block) (core.Sideband, error) {
	oldRep, oldBalance, hadAccount := accountBefore(txn, block)

	sideband, err := Validate(txn, epochs, thresholds, block)
	if err != nil {
		return core.Sideband{}, err
	}
	sideband.Timestamp = timestamp

	stored := core.StoredBlock{Block: block, Sideband: sideband}
	if err := txn.PutBlock(stored); err != nil {
		return core.Sideband{}, err
	}
	if prev := block.PreviousHash(); !prev.IsZero() {
		if err := txn.SetSuccessor(prev, block.Hash()); err != nil {
			return core.Sideband{}, err
		}
	}

	newInfo, err := txn.GetAccountInfo(sideband.Account)
	if err != nil {
		return core.Sideband{}, err
	}

	if !hadAccount {
		oldRep = core.Account{}
		oldBalance = core.ZeroAmount
	}
	if err := applyWeightDelta(weights, txn, oldRep, oldBalance, newInfo.Representative, newInfo.Balance); err != nil {
		return core.Sideband{}, err
	}

	return sideband, nil
}

func accountBefore(txn *WriteTxn, block core.Block) (core.Account, core.Amount, bool) {
	account := resolveAccount(txn, block)
	info, err := txn.GetAccountInfo(account)
	if err != nil {
		return core.Account{}, core.ZeroAmount, false
	}
	return info.Representative, info.Balance, true
}

// resolveAccount recovers the owning account of a candidate block before
// it has been validated: state blocks carry it directly, legacy variants
// must be traced back through their previous block's sideband.
func resolveAccount(txn *WriteTxn, block core.Block) core.Account {
	if sb, ok := block.(*core.StateBlock); ok {
		return sb.Account
	}
	prev := block.PreviousHash()
	if prev.IsZero() {
		return core.Account{}
	}
	stored, err := txn.GetBlock(prev)
	if err != nil {
		return core.Account{}
	}
	return stored.Sideband.Account
}

func applyWeightDelta(weights *RepWeights, txn *WriteTxn, oldRep core.Account, oldBalance core.Amount, newRep core.Account, newBalance core.Amount) error {
	if oldRep == newRep {
		if newBalance.Cmp(oldBalance) >= 0 {
			return weights.AddDual(txn, core.Account{}, newRep, newBalance.Sub(oldBalance))
		}
		return weights.AddDual(txn, newRep, core.Account{}, oldBalance.Sub(newBalance))
	}
	if err := weights.AddDual(txn, oldRep, core.Account{}, oldBalance); err != nil {
		return err
	}
	return weights.AddDual(txn, core.Account{}, newRep, newBalance)
}

// ProcessRollback undoes block and reverses its representative-weight
// contribution.
func ProcessRollback(txn *WriteTxn, weights *RepWeights, hash core.BlockHash) error {
	stored, err := txn.GetBlock(hash)
	if err != nil {
		return err
	}
	account := stored.Sideband.Account
	infoBefore, err := txn.GetAccountInfo(account)
	if err != nil {
		return err
	}
	oldRep, oldBalance := infoBefore.Representative, infoBefore.Balance

	if err := Rollback(txn, hash); err != nil {
		return err
	}

	newRep, newBalance := core.Account{}, core.ZeroAmount
	if infoAfter, err := txn.GetAccountInfo(account); err == nil {
		newRep, newBalance = infoAfter.Representative, infoAfter.Balance
	}
	return applyWeightDelta(weights, txn, oldRep, oldBalance, newRep, newBalance)
}
