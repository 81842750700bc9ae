// Package ledger is the durable DAG-ledger store: block/account/pending/
// confirmation-height/representative-weight tables, block validation,
// rollback planning, and confirmation cementing. It is the direct
// replacement for the teacher's game-economy StateDB, built on the same
// goleveldb-backed storage.DB engine and the same dirty/deleted
// write-buffer-overlay shape (see txn.go).
package ledger

import (
	"encoding/binary"

	"github.com/tolelom/tolchain/core"
)

// Single-byte table prefixes, one per §6 table. Keeping them one byte
// (rather than the teacher's readable "acct:"/"asset:" string prefixes)
// matters here because accounts/hashes are fixed-width binary keys and a
// short prefix avoids an extra variable-length field in every key.
const (
	tableBlocks              byte = 'B'
	tableAccounts            byte = 'A'
	tablePending             byte = 'P'
	tableConfirmationHeight  byte = 'C'
	tableRepWeights          byte = 'W'
	tableOnlineWeight        byte = 'O'
	tableFinalVotes          byte = 'F'
	tablePeers               byte = 'N'
	tablePruned              byte = 'U'
)

func blockKey(h core.BlockHash) []byte {
	k := make([]byte, 1+32)
	k[0] = tableBlocks
	copy(k[1:], h[:])
	return k
}

func accountKey(a core.Account) []byte {
	k := make([]byte, 1+32)
	k[0] = tableAccounts
	copy(k[1:], a[:])
	return k
}

// pendingKey orders by destination account then source hash, so an
// account's receivables are contiguous under one prefix scan.
func pendingKey(pk core.PendingKey) []byte {
	k := make([]byte, 1+32+32)
	k[0] = tablePending
	copy(k[1:33], pk.Account[:])
	copy(k[33:], pk.Hash[:])
	return k
}

func pendingPrefix(a core.Account) []byte {
	k := make([]byte, 1+32)
	k[0] = tablePending
	copy(k[1:], a[:])
	return k
}

func confirmationHeightKey(a core.Account) []byte {
	k := make([]byte, 1+32)
	k[0] = tableConfirmationHeight
	copy(k[1:], a[:])
	return k
}

func repWeightKey(a core.Account) []byte {
	k := make([]byte, 1+32)
	k[0] = tableRepWeights
	copy(k[1:], a[:])
	return k
}

func repWeightPrefix() []byte { return []byte{tableRepWeights} }

func onlineWeightKey() []byte { return []byte{tableOnlineWeight} }

func prunedKey(h core.BlockHash) []byte {
	k := make([]byte, 1+32)
	k[0] = tablePruned
	copy(k[1:], h[:])
	return k
}

// putUint64 / getUint64 convert between a uint64 and its 8-byte
// big-endian form. The stored records themselves are JSON (see codec.go).
func putUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func getUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
