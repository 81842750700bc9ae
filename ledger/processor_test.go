package ledger

import (
	"testing"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/internal/testutil"
)

func zeroThresholds() core.WorkThresholds {
	return core.WorkThresholds{Send: 0, Receive: 0}
}

// seedGenesisAccount writes a single open account directly into the
// store, the way config.SeedGenesis bootstraps the chain's initial
// accounts without going through Validate.
func seedGenesisAccount(t *testing.T, store *Store, weights *RepWeights, account, rep core.Account, balance core.Amount) core.BlockHash {
	t.Helper()
	block := &core.StateBlock{
		Account:        account,
		Representative: rep,
		Balance:        balance,
		Link:           core.LinkFromBlockHash(core.BlockHash{0xff}),
	}
	hash := block.Hash()

	txn := store.TxBeginWrite()
	if err := txn.PutBlock(core.StoredBlock{
		Block: block,
		Sideband: core.Sideband{
			Height:      1,
			Account:     account,
			Balance:     balance,
			Details:     core.BlockDetails{Epoch: core.Epoch0, IsReceive: true},
			SourceEpoch: core.Epoch0,
		},
	}); err != nil {
		t.Fatalf("seed put block: %v", err)
	}
	if err := txn.PutAccountInfo(account, core.AccountInfo{
		Head:           hash,
		Representative: rep,
		OpenBlock:      hash,
		Balance:        balance,
		BlockCount:     1,
		Epoch:          core.Epoch0,
	}); err != nil {
		t.Fatalf("seed put account info: %v", err)
	}
	if err := txn.PutConfirmationHeight(account, core.ConfirmationHeightInfo{Height: 1, Frontier: hash}); err != nil {
		t.Fatalf("seed put confirmation height: %v", err)
	}
	if err := weights.AddDual(txn, core.Account{}, rep, balance); err != nil {
		t.Fatalf("seed weight: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("seed commit: %v", err)
	}
	return hash
}

func mustAccount(pub crypto.PublicKey) core.Account {
	var a core.Account
	copy(a[:], pub)
	return a
}

func TestProcessBlockSendAndReceiveUpdatesWeights(t *testing.T) {
	store := testutil.NewLedgerStore()
	weights, err := NewRepWeights(store)
	if err != nil {
		t.Fatalf("NewRepWeights: %v", err)
	}
	epochs := core.NewEpochs()
	thresholds := zeroThresholds()

	privA, pubA, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair A: %v", err)
	}
	privB, pubB, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair B: %v", err)
	}
	accountA := mustAccount(pubA)
	accountB := mustAccount(pubB)

	genesisHash := seedGenesisAccount(t, store, weights, accountA, accountA, core.AmountFromUint64(1000))

	send := &core.StateBlock{
		Account:        accountA,
		Previous:       genesisHash,
		Representative: accountA,
		Balance:        core.AmountFromUint64(900),
		Link:           core.LinkFromAccount(accountB),
	}
	send.SetSignature(signBlock(privA, send))

	txn := store.TxBeginWrite()
	if _, err := ProcessBlock(txn, epochs, thresholds, weights, 1000, send); err != nil {
		t.Fatalf("ProcessBlock(send): %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit send: %v", err)
	}

	open := &core.StateBlock{
		Account:        accountB,
		Representative: accountB,
		Balance:        core.AmountFromUint64(100),
		Link:           core.LinkFromBlockHash(send.Hash()),
	}
	open.SetSignature(signBlock(privB, open))

	txn = store.TxBeginWrite()
	sideband, err := ProcessBlock(txn, epochs, thresholds, weights, 1001, open)
	if err != nil {
		t.Fatalf("ProcessBlock(open): %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit open: %v", err)
	}
	if sideband.Balance.Cmp(core.AmountFromUint64(100)) != 0 {
		t.Fatalf("open sideband balance = %s, want 100", sideband.Balance.String())
	}

	if got := weights.Weight(accountA).String(); got != "900" {
		t.Fatalf("weight(A) = %s, want 900", got)
	}
	if got := weights.Weight(accountB).String(); got != "100" {
		t.Fatalf("weight(B) = %s, want 100", got)
	}
	if got := weights.Total().String(); got != "1000" {
		t.Fatalf("total weight = %s, want 1000 (conserved)", got)
	}
}

func TestProcessBlockRejectsBadSignature(t *testing.T) {
	store := testutil.NewLedgerStore()
	weights, err := NewRepWeights(store)
	if err != nil {
		t.Fatalf("NewRepWeights: %v", err)
	}
	epochs := core.NewEpochs()
	thresholds := zeroThresholds()

	privA, pubA, _ := crypto.GenerateKeyPair()
	_, pubOther, _ := crypto.GenerateKeyPair()
	_ = pubOther
	accountA := mustAccount(pubA)
	genesisHash := seedGenesisAccount(t, store, weights, accountA, accountA, core.AmountFromUint64(1000))

	send := &core.StateBlock{
		Account:        accountA,
		Previous:       genesisHash,
		Representative: accountA,
		Balance:        core.AmountFromUint64(900),
		Link:           core.LinkFromAccount(core.Account{1}),
	}
	// Sign with the wrong key.
	wrongPriv, _, _ := crypto.GenerateKeyPair()
	send.SetSignature(signBlock(wrongPriv, send))
	_ = privA

	txn := store.TxBeginWrite()
	if _, err := ProcessBlock(txn, epochs, thresholds, weights, 1000, send); err == nil {
		t.Fatalf("expected signature verification failure")
	}
}

func TestProcessRollbackReversesWeightDelta(t *testing.T) {
	store := testutil.NewLedgerStore()
	weights, err := NewRepWeights(store)
	if err != nil {
		t.Fatalf("NewRepWeights: %v", err)
	}
	epochs := core.NewEpochs()
	thresholds := zeroThresholds()

	privA, pubA, _ := crypto.GenerateKeyPair()
	accountA := mustAccount(pubA)
	genesisHash := seedGenesisAccount(t, store, weights, accountA, accountA, core.AmountFromUint64(1000))

	change := &core.StateBlock{
		Account:        accountA,
		Previous:       genesisHash,
		Representative: core.Account{9},
		Balance:        core.AmountFromUint64(1000),
		Link:           core.Link{},
	}
	change.SetSignature(signBlock(privA, change))

	txn := store.TxBeginWrite()
	if _, err := ProcessBlock(txn, epochs, thresholds, weights, 1, change); err != nil {
		t.Fatalf("ProcessBlock(change): %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := weights.Weight(core.Account{9}).String(); got != "1000" {
		t.Fatalf("weight(new rep) = %s, want 1000", got)
	}
	if got := weights.Weight(accountA).String(); got != "0" {
		t.Fatalf("weight(old rep) = %s, want 0", got)
	}

	txn = store.TxBeginWrite()
	if err := ProcessRollback(txn, weights, change.Hash()); err != nil {
		t.Fatalf("ProcessRollback: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit rollback: %v", err)
	}

	if got := weights.Weight(core.Account{9}).String(); got != "0" {
		t.Fatalf("weight(new rep) after rollback = %s, want 0", got)
	}
	if got := weights.Weight(accountA).String(); got != "1000" {
		t.Fatalf("weight(old rep) after rollback = %s, want 1000", got)
	}

	info, err := store.TxBeginRead().GetAccountInfo(accountA)
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info.Head != genesisHash {
		t.Fatalf("head after rollback = %x, want genesis %x", info.Head, genesisHash)
	}
}

func signBlock(priv crypto.PrivateKey, b core.Block) core.Signature {
	hash := b.Hash()
	raw := crypto.SignRaw(priv, hash[:])
	var sig core.Signature
	copy(sig[:], raw)
	return sig
}
