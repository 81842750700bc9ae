package ledger

import (
	"fmt"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
)

// Validate checks one candidate block against the ledger's current state
// and, if it is legal, returns the Sideband it should be stored with.
// Once every check has passed it writes the account-info and pending-entry
// changes into txn; it does not store the block itself — the caller (the
// write-queue-serialized block processor) does that with WriteTxn.PutBlock
// and the returned sideband. Every variant is handled by name; any other
// type is rejected with an error.
func Validate(txn *WriteTxn, epochs *core.Epochs, thresholds core.WorkThresholds, block core.Block) (core.Sideband, error) {
	switch b := block.(type) {
	case *core.LegacyOpenBlock:
		return validateOpen(txn, thresholds, block, b.Account, b.Representative, core.LinkFromBlockHash(b.Source))
	case *core.LegacyReceiveBlock:
		return validateReceive(txn, thresholds, block, b.Previous, core.LinkFromBlockHash(b.Source))
	case *core.LegacySendBlock:
		return validateSend(txn, thresholds, block, b.Previous, b.Destination, b.Balance)
	case *core.LegacyChangeBlock:
		return validateChange(txn, thresholds, block, b.Previous, b.Representative)
	case *core.StateBlock:
		return validateState(txn, epochs, thresholds, b)
	default:
		return core.Sideband{}, fmt.Errorf("ledger: unknown block type %T", block)
	}
}

func verifySignature(account core.Account, block core.Block) error {
	hash := block.Hash()
	sig := block.SignatureValue()
	return crypto.VerifyRaw(crypto.PublicKey(account[:]), hash[:], sig[:])
}

func verifyWork(root core.BlockHash, block core.Block, threshold uint64) error {
	if !core.IsValidPoW(root, block.WorkValue(), threshold) {
		return ErrInsufficientWork
	}
	return nil
}

func validateOpen(txn *WriteTxn, thresholds core.WorkThresholds, block core.Block, account, representative core.Account, source core.Link) (core.Sideband, error) {
	if _, err := txn.GetAccountInfo(account); err == nil {
		return core.Sideband{}, ErrForkDetected
	}
	if err := verifySignature(account, block); err != nil {
		return core.Sideband{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	threshold := thresholds.ThresholdFor(core.BlockDetails{IsReceive: true})
	if err := verifyWork(core.BlockHash(account), block, threshold); err != nil {
		return core.Sideband{}, err
	}

	sourceHash := source.AsBlockHash()
	pendingKey := core.PendingKey{Account: account, Hash: sourceHash}
	pending, err := txn.GetPending(pendingKey)
	if err != nil {
		if !txn.BlockExistsOrPruned(sourceHash) {
			return core.Sideband{}, ErrGapSource
		}
		return core.Sideband{}, ErrUnreceivable
	}

	info := core.AccountInfo{
		Head:           block.Hash(),
		Representative: representative,
		OpenBlock:      block.Hash(),
		Balance:        pending.Amount,
		BlockCount:     1,
		Epoch:          pending.Epoch,
	}
	if err := txn.PutAccountInfo(account, info); err != nil {
		return core.Sideband{}, err
	}
	txn.DelPending(pendingKey)

	return core.Sideband{
		Height:      1,
		Account:     account,
		Balance:     pending.Amount,
		Details:     core.BlockDetails{Epoch: pending.Epoch, IsReceive: true},
		SourceEpoch: pending.Epoch,
	}, nil
}

// resolveChainHead looks up the account owning previous and its current
// head, catching forks and replays before any variant-specific logic runs.
func resolveChainHead(txn *WriteTxn, previous core.BlockHash) (core.Account, core.AccountInfo, error) {
	// The legacy variants don't carry an account field, so the account
	// owning `previous` must be recovered from the stored predecessor's
	// sideband.
	prevStored, err := txn.GetBlock(previous)
	if err != nil {
		return core.Account{}, core.AccountInfo{}, ErrGapPrevious
	}
	account := prevStored.Sideband.Account
	info, err := txn.GetAccountInfo(account)
	if err != nil {
		return core.Account{}, core.AccountInfo{}, ErrGapPrevious
	}
	if info.Head != previous {
		if txn.BlockExistsOrPruned(previous) {
			return core.Account{}, core.AccountInfo{}, ErrOldBlock
		}
		return core.Account{}, core.AccountInfo{}, ErrForkDetected
	}
	return account, info, nil
}

func validateReceive(txn *WriteTxn, thresholds core.WorkThresholds, block core.Block, previous core.BlockHash, source core.Link) (core.Sideband, error) {
	account, info, err := resolveChainHead(txn, previous)
	if err != nil {
		return core.Sideband{}, err
	}
	if err := verifySignature(account, block); err != nil {
		return core.Sideband{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	threshold := thresholds.ThresholdFor(core.BlockDetails{IsReceive: true})
	if err := verifyWork(previous, block, threshold); err != nil {
		return core.Sideband{}, err
	}

	sourceHash := source.AsBlockHash()
	pendingKey := core.PendingKey{Account: account, Hash: sourceHash}
	pending, err := txn.GetPending(pendingKey)
	if err != nil {
		if !txn.BlockExistsOrPruned(sourceHash) {
			return core.Sideband{}, ErrGapSource
		}
		return core.Sideband{}, ErrUnreceivable
	}

	newBalance := info.Balance.Add(pending.Amount)
	info.Head = block.Hash()
	info.Balance = newBalance
	info.BlockCount++
	if err := txn.PutAccountInfo(account, info); err != nil {
		return core.Sideband{}, err
	}
	txn.DelPending(pendingKey)

	return core.Sideband{
		Height:      info.BlockCount,
		Account:     account,
		Balance:     newBalance,
		Details:     core.BlockDetails{Epoch: info.Epoch, IsReceive: true},
		SourceEpoch: pending.Epoch,
	}, nil
}

func validateSend(txn *WriteTxn, thresholds core.WorkThresholds, block core.Block, previous core.BlockHash, destination core.Account, newBalance core.Amount) (core.Sideband, error) {
	account, info, err := resolveChainHead(txn, previous)
	if err != nil {
		return core.Sideband{}, err
	}
	if err := verifySignature(account, block); err != nil {
		return core.Sideband{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	threshold := thresholds.ThresholdFor(core.BlockDetails{IsSend: true})
	if err := verifyWork(previous, block, threshold); err != nil {
		return core.Sideband{}, err
	}
	switch newBalance.Cmp(info.Balance) {
	case 0:
		return core.Sideband{}, ErrBlockPosition
	case 1:
		return core.Sideband{}, ErrNegativeBalance
	}

	sent := info.Balance.Sub(newBalance)
	info.Head = block.Hash()
	info.Balance = newBalance
	info.BlockCount++
	if err := txn.PutAccountInfo(account, info); err != nil {
		return core.Sideband{}, err
	}
	if err := txn.PutPending(
		core.PendingKey{Account: destination, Hash: block.Hash()},
		core.PendingInfo{Source: account, Amount: sent, Epoch: info.Epoch},
	); err != nil {
		return core.Sideband{}, err
	}

	return core.Sideband{
		Height:  info.BlockCount,
		Account: account,
		Balance: newBalance,
		Details: core.BlockDetails{Epoch: info.Epoch, IsSend: true},
	}, nil
}

func validateChange(txn *WriteTxn, thresholds core.WorkThresholds, block core.Block, previous core.BlockHash, representative core.Account) (core.Sideband, error) {
	account, info, err := resolveChainHead(txn, previous)
	if err != nil {
		return core.Sideband{}, err
	}
	if err := verifySignature(account, block); err != nil {
		return core.Sideband{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	threshold := thresholds.ThresholdFor(core.BlockDetails{})
	if err := verifyWork(previous, block, threshold); err != nil {
		return core.Sideband{}, err
	}

	info.Head = block.Hash()
	info.Representative = representative
	info.BlockCount++
	if err := txn.PutAccountInfo(account, info); err != nil {
		return core.Sideband{}, err
	}

	return core.Sideband{
		Height:  info.BlockCount,
		Account: account,
		Balance: info.Balance,
		Details: core.BlockDetails{Epoch: info.Epoch},
	}, nil
}

// validateState handles the unified state block, including the epoch
// special case: a state block whose Link matches a registered epoch tag,
// whose balance is unchanged, and whose signer is the epoch's registered
// authority (not the account itself) bumps the account straight to the
// next epoch instead of being treated as a send/receive/change.
func validateState(txn *WriteTxn, epochs *core.Epochs, thresholds core.WorkThresholds, b *core.StateBlock) (core.Sideband, error) {
	if core.IsOpen(b) {
		return validateStateOpen(txn, epochs, thresholds, b)
	}

	info, err := txn.GetAccountInfo(b.Account)
	if err != nil {
		return core.Sideband{}, ErrGapPrevious
	}
	if info.Head != b.Previous {
		if txn.BlockExistsOrPruned(b.Previous) {
			return core.Sideband{}, ErrOldBlock
		}
		return core.Sideband{}, ErrForkDetected
	}

	if epoch, ok := epochs.EpochOf(b.Link); ok && b.Balance.Cmp(info.Balance) == 0 {
		return validateEpochUpgrade(txn, epochs, thresholds, b, info, epoch)
	}

	if err := verifySignature(b.Account, b); err != nil {
		return core.Sideband{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	switch cmp := b.Balance.Cmp(info.Balance); {
	case cmp < 0:
		return validateStateSend(txn, thresholds, b, info)
	case cmp > 0:
		return validateStateReceive(txn, thresholds, b, info)
	default:
		return validateStateChange(txn, thresholds, b, info)
	}
}

func validateStateOpen(txn *WriteTxn, epochs *core.Epochs, thresholds core.WorkThresholds, b *core.StateBlock) (core.Sideband, error) {
	if _, err := txn.GetAccountInfo(b.Account); err == nil {
		return core.Sideband{}, ErrForkDetected
	}
	if err := verifySignature(b.Account, b); err != nil {
		return core.Sideband{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	threshold := thresholds.ThresholdFor(core.BlockDetails{IsReceive: true})
	if err := verifyWork(core.BlockHash(b.Account), b, threshold); err != nil {
		return core.Sideband{}, err
	}

	sourceHash := b.Link.AsBlockHash()
	pendingKey := core.PendingKey{Account: b.Account, Hash: sourceHash}
	pending, err := txn.GetPending(pendingKey)
	if err != nil {
		if !txn.BlockExistsOrPruned(sourceHash) {
			return core.Sideband{}, ErrGapSource
		}
		return core.Sideband{}, ErrUnreceivable
	}
	if b.Balance.Cmp(pending.Amount) != 0 {
		return core.Sideband{}, ErrBlockPosition
	}

	openEpoch := pending.Epoch
	if openEpoch < core.EpochBegin {
		openEpoch = core.EpochBegin
	}
	info := core.AccountInfo{
		Head:           b.Hash(),
		Representative: b.Representative,
		OpenBlock:      b.Hash(),
		Balance:        b.Balance,
		BlockCount:     1,
		Epoch:          openEpoch,
	}
	if err := txn.PutAccountInfo(b.Account, info); err != nil {
		return core.Sideband{}, err
	}
	txn.DelPending(pendingKey)

	return core.Sideband{
		Height:      1,
		Account:     b.Account,
		Balance:     b.Balance,
		Details:     core.BlockDetails{Epoch: info.Epoch, IsReceive: true},
		SourceEpoch: pending.Epoch,
	}, nil
}

func validateStateSend(txn *WriteTxn, thresholds core.WorkThresholds, b *core.StateBlock, info core.AccountInfo) (core.Sideband, error) {
	threshold := thresholds.ThresholdFor(core.BlockDetails{IsSend: true})
	if err := verifyWork(b.Previous, b, threshold); err != nil {
		return core.Sideband{}, err
	}

	sent := info.Balance.Sub(b.Balance)
	info.Head = b.Hash()
	info.Balance = b.Balance
	info.Representative = b.Representative
	info.BlockCount++
	if err := txn.PutAccountInfo(b.Account, info); err != nil {
		return core.Sideband{}, err
	}
	destination := b.Link.AsAccount()
	if err := txn.PutPending(
		core.PendingKey{Account: destination, Hash: b.Hash()},
		core.PendingInfo{Source: b.Account, Amount: sent, Epoch: info.Epoch},
	); err != nil {
		return core.Sideband{}, err
	}

	return core.Sideband{
		Height:  info.BlockCount,
		Account: b.Account,
		Balance: b.Balance,
		Details: core.BlockDetails{Epoch: info.Epoch, IsSend: true},
	}, nil
}

func validateStateReceive(txn *WriteTxn, thresholds core.WorkThresholds, b *core.StateBlock, info core.AccountInfo) (core.Sideband, error) {
	threshold := thresholds.ThresholdFor(core.BlockDetails{IsReceive: true})
	if err := verifyWork(b.Previous, b, threshold); err != nil {
		return core.Sideband{}, err
	}

	sourceHash := b.Link.AsBlockHash()
	pendingKey := core.PendingKey{Account: b.Account, Hash: sourceHash}
	pending, err := txn.GetPending(pendingKey)
	if err != nil {
		if !txn.BlockExistsOrPruned(sourceHash) {
			return core.Sideband{}, ErrGapSource
		}
		return core.Sideband{}, ErrUnreceivable
	}
	if b.Balance.Cmp(info.Balance.Add(pending.Amount)) != 0 {
		return core.Sideband{}, ErrBlockPosition
	}

	info.Head = b.Hash()
	info.Balance = b.Balance
	info.Representative = b.Representative
	info.BlockCount++
	if err := txn.PutAccountInfo(b.Account, info); err != nil {
		return core.Sideband{}, err
	}
	txn.DelPending(pendingKey)

	return core.Sideband{
		Height:      info.BlockCount,
		Account:     b.Account,
		Balance:     b.Balance,
		Details:     core.BlockDetails{Epoch: info.Epoch, IsReceive: true},
		SourceEpoch: pending.Epoch,
	}, nil
}

func validateStateChange(txn *WriteTxn, thresholds core.WorkThresholds, b *core.StateBlock, info core.AccountInfo) (core.Sideband, error) {
	threshold := thresholds.ThresholdFor(core.BlockDetails{})
	if err := verifyWork(b.Previous, b, threshold); err != nil {
		return core.Sideband{}, err
	}

	info.Head = b.Hash()
	info.Representative = b.Representative
	info.BlockCount++
	if err := txn.PutAccountInfo(b.Account, info); err != nil {
		return core.Sideband{}, err
	}

	return core.Sideband{
		Height:  info.BlockCount,
		Account: b.Account,
		Balance: info.Balance,
		Details: core.BlockDetails{Epoch: info.Epoch},
	}, nil
}

func validateEpochUpgrade(txn *WriteTxn, epochs *core.Epochs, thresholds core.WorkThresholds, b *core.StateBlock, info core.AccountInfo, epoch core.Epoch) (core.Sideband, error) {
	signer, ok := epochs.Signer(epoch)
	if !ok {
		return core.Sideband{}, ErrBlockPosition
	}
	if err := verifySignature(signer, b); err != nil {
		return core.Sideband{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !core.IsSequential(info.Epoch, epoch) {
		return core.Sideband{}, ErrBlockPosition
	}
	if b.Representative != info.Representative {
		return core.Sideband{}, ErrRepresentativeChange
	}
	threshold := thresholds.ThresholdFor(core.BlockDetails{IsEpoch: true})
	if err := verifyWork(b.Previous, b, threshold); err != nil {
		return core.Sideband{}, err
	}

	info.Head = b.Hash()
	info.Epoch = epoch
	info.BlockCount++
	if err := txn.PutAccountInfo(b.Account, info); err != nil {
		return core.Sideband{}, err
	}

	return core.Sideband{
		Height:  info.BlockCount,
		Account: b.Account,
		Balance: info.Balance,
		Details: core.BlockDetails{Epoch: epoch, IsEpoch: true},
	}, nil
}
