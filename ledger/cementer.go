package ledger

import "github.com/tolelom/tolchain/core"

// maxCementingStack bounds how many pending blocks Confirm keeps on its
// explicit dependency stack before it starts evicting from the bottom
// (the oldest, least-likely-to-still-be-needed entries) rather than
// growing without limit. A confirmed account chain can be arbitrarily
// long; this keeps one Confirm call's memory bounded regardless of how
// far behind an account's confirmation height has fallen. Ported from
// _examples/original_source/ledger/src/block_cementer.rs, which uses the
// same bottom-eviction bound for its write-transaction-scoped dependency
// stack.
const maxCementingStack = 1 << 16

// cementFrame is one entry on the explicit DFS stack: the account whose
// chain is being advanced and the block hash it still needs to reach.
type cementFrame struct {
	account core.Account
	target  core.BlockHash
}

// Confirm advances confirmation height for target's account (and,
// transitively, for every account target's chain has pending receives
// from) up to and including target. It is the cementer: the only path
// by which ConfirmationHeightInfo advances, separate from and lagging
// behind the tip of each account chain.
//
// Confirm takes the WriterConfirmationHeight writer slot on queue for its
// entire run and periodically calls WriteTxn.RefreshIfNeeded so a long
// confirmation chain doesn't hold one giant uncommitted batch.
//
// maxBlocks caps how many hashes a single call returns; once the returned
// list reaches it, Confirm stops and the caller loops to drain the rest. A
// maxBlocks of 0 means unbounded.
func Confirm(store *Store, queue *WriteQueue, target core.Account, targetHash core.BlockHash, maxBlocks int) (confirmedHashes []core.BlockHash, err error) {
	queue.Wait(WriterConfirmationHeight)
	defer queue.Release()

	txn := store.TxBeginWrite()
	defer txn.Commit()

	stack := []cementFrame{{account: target, target: targetHash}}

	for len(stack) > 0 {
		if len(stack) > maxCementingStack {
			// Evict the bottom (oldest) frame: it will be revisited on a
			// future Confirm call once its dependents have drained the
			// stack down. This trades a slower multi-pass confirmation
			// for bounded memory.
			stack = stack[1:]
			continue
		}

		frame := stack[len(stack)-1]
		current, err := txn.GetConfirmationHeight(frame.account)
		if err != nil {
			return confirmedHashes, err
		}

		targetStored, err := txn.GetBlock(frame.target)
		if err != nil {
			return confirmedHashes, err
		}
		if current.Height >= targetStored.Sideband.Height {
			stack = stack[:len(stack)-1]
			continue
		}

		// Walk from just above the current confirmation height up to
		// target, pushing a dependency frame for any receive whose
		// source account is not yet confirmed far enough to guarantee
		// the receivable existed.
		pushedDependency := false
		cursor := frame.target
		var chain []core.StoredBlock
		for {
			stored, err := txn.GetBlock(cursor)
			if err != nil {
				return confirmedHashes, err
			}
			if stored.Sideband.Height <= current.Height {
				break
			}
			chain = append(chain, stored)
			if stored.Sideband.Height == current.Height+1 {
				break
			}
			cursor = stored.Block.PreviousHash()
		}
		// chain is tip-first; reverse so we cement oldest-first.
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}

		for _, stored := range chain {
			if stored.Sideband.Details.IsReceive {
				source := receiveSource(stored.Block)
				sourceStored, err := txn.GetBlock(source)
				if err == nil {
					sourceHeight, err := txn.GetConfirmationHeight(sourceStored.Sideband.Account)
					if err != nil {
						return confirmedHashes, err
					}
					if sourceHeight.Height < sourceStored.Sideband.Height {
						stack = append(stack, cementFrame{account: sourceStored.Sideband.Account, target: source})
						pushedDependency = true
						break
					}
				}
			}
			if err := txn.PutConfirmationHeight(frame.account, core.ConfirmationHeightInfo{
				Height:   stored.Sideband.Height,
				Frontier: stored.Block.Hash(),
			}); err != nil {
				return confirmedHashes, err
			}
			confirmedHashes = append(confirmedHashes, stored.Block.Hash())
			if err := txn.RefreshIfNeeded(); err != nil {
				return confirmedHashes, err
			}
			if maxBlocks > 0 && len(confirmedHashes) >= maxBlocks {
				return confirmedHashes, nil
			}
		}

		if !pushedDependency {
			stack = stack[:len(stack)-1]
		}
	}

	return confirmedHashes, nil
}
