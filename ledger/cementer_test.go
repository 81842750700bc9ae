package ledger

import (
	"testing"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/internal/testutil"
)

// buildSendReceiveChain seeds a genesis account A, then processes a send
// from A to a freshly generated account B and B's open-by-receive block,
// returning the hashes needed to drive Confirm.
func buildSendReceiveChain(t *testing.T) (store *Store, queue *WriteQueue, accountA, accountB core.Account, genesisHash, sendHash, openHash core.BlockHash) {
	t.Helper()
	store = testutil.NewLedgerStore()
	weights, err := NewRepWeights(store)
	if err != nil {
		t.Fatalf("NewRepWeights: %v", err)
	}
	epochs := core.NewEpochs()
	thresholds := zeroThresholds()
	queue = NewWriteQueue()

	privA, pubA, _ := crypto.GenerateKeyPair()
	privB, pubB, _ := crypto.GenerateKeyPair()
	accountA = mustAccount(pubA)
	accountB = mustAccount(pubB)

	genesisHash = seedGenesisAccount(t, store, weights, accountA, accountA, core.AmountFromUint64(1000))

	send := &core.StateBlock{
		Account:        accountA,
		Previous:       genesisHash,
		Representative: accountA,
		Balance:        core.AmountFromUint64(900),
		Link:           core.LinkFromAccount(accountB),
	}
	send.SetSignature(signBlock(privA, send))
	txn := store.TxBeginWrite()
	if _, err := ProcessBlock(txn, epochs, thresholds, weights, 1, send); err != nil {
		t.Fatalf("ProcessBlock(send): %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit send: %v", err)
	}
	sendHash = send.Hash()

	open := &core.StateBlock{
		Account:        accountB,
		Representative: accountB,
		Balance:        core.AmountFromUint64(100),
		Link:           core.LinkFromBlockHash(sendHash),
	}
	open.SetSignature(signBlock(privB, open))
	txn = store.TxBeginWrite()
	if _, err := ProcessBlock(txn, epochs, thresholds, weights, 2, open); err != nil {
		t.Fatalf("ProcessBlock(open): %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit open: %v", err)
	}
	openHash = open.Hash()

	return store, queue, accountA, accountB, genesisHash, sendHash, openHash
}

func TestConfirmCementsDependencyChainInOrder(t *testing.T) {
	store, queue, accountA, accountB, _, sendHash, openHash := buildSendReceiveChain(t)

	confirmed, err := Confirm(store, queue, accountB, openHash, 0)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// Genesis is seeded already cemented at height 1, so only the send
	// and the open above it are newly confirmed.
	want := []core.BlockHash{sendHash, openHash}
	if len(confirmed) != len(want) {
		t.Fatalf("confirmed %d hashes, want %d: %v", len(confirmed), len(want), confirmed)
	}
	for i, h := range want {
		if confirmed[i] != h {
			t.Fatalf("confirmed[%d] = %x, want %x", i, confirmed[i], h)
		}
	}

	txn := store.TxBeginRead()
	infoA, err := txn.GetConfirmationHeight(accountA)
	if err != nil {
		t.Fatalf("GetConfirmationHeight(A): %v", err)
	}
	if infoA.Height != 2 || infoA.Frontier != sendHash {
		t.Fatalf("A confirmation height = %+v, want height 2 frontier %x", infoA, sendHash)
	}

	infoB, err := txn.GetConfirmationHeight(accountB)
	if err != nil {
		t.Fatalf("GetConfirmationHeight(B): %v", err)
	}
	if infoB.Height != 1 || infoB.Frontier != openHash {
		t.Fatalf("B confirmation height = %+v, want height 1 frontier %x", infoB, openHash)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	store, queue, _, accountB, _, _, openHash := buildSendReceiveChain(t)

	if _, err := Confirm(store, queue, accountB, openHash, 0); err != nil {
		t.Fatalf("first Confirm: %v", err)
	}
	confirmedAgain, err := Confirm(store, queue, accountB, openHash, 0)
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	if len(confirmedAgain) != 0 {
		t.Fatalf("expected no further hashes confirmed, got %v", confirmedAgain)
	}
}

// TestConfirmMaxBlocksSaturatesAcrossCalls drives the chain built by
// buildSendReceiveChain through Confirm with maxBlocks=1. Genesis is
// seeded already cemented, leaving two blocks (send, open): each call
// should cement exactly one block, and draining both requires two calls
// (the ⌈N/K⌉ saturation property).
func TestConfirmMaxBlocksSaturatesAcrossCalls(t *testing.T) {
	store, queue, _, accountB, _, sendHash, openHash := buildSendReceiveChain(t)

	want := []core.BlockHash{sendHash, openHash}
	var got []core.BlockHash
	calls := 0
	for len(got) < len(want) {
		calls++
		if calls > len(want) {
			t.Fatalf("Confirm did not saturate after %d calls, got %v", calls, got)
		}
		batch, err := Confirm(store, queue, accountB, openHash, 1)
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if len(batch) != 1 {
			t.Fatalf("call %d: confirmed %d hashes, want 1", calls, len(batch))
		}
		got = append(got, batch...)
	}
	if calls != len(want) {
		t.Fatalf("Confirm took %d calls to drain %d blocks with maxBlocks=1, want %d", calls, len(want), len(want))
	}
	for i, h := range want {
		if got[i] != h {
			t.Fatalf("got[%d] = %x, want %x", i, got[i], h)
		}
	}
}
