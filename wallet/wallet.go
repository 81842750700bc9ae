package wallet

import (
	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
)

// Wallet holds a key pair and provides block- and vote-signing helpers
// for one account chain.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// Account returns the 32-byte account identifier (this wallet's ed25519
// public key).
func (w *Wallet) Account() core.Account {
	var a core.Account
	copy(a[:], w.pub)
	return a
}

// AccountString returns the checksummed, human-readable account string.
func (w *Wallet) AccountString() string {
	return core.EncodeAccount(w.Account())
}

// BuildStateBlock constructs and signs the next block in this wallet's
// chain. Every ledger operation (open, send, receive, change) is the
// same state-block shape; the validator tells them apart by comparing
// balance and link against the account's prior head, not by a field on
// the block itself.
func (w *Wallet) BuildStateBlock(previous core.BlockHash, representative core.Account, balance core.Amount, link core.Link) *core.StateBlock {
	b := &core.StateBlock{
		Account:        w.Account(),
		Previous:       previous,
		Representative: representative,
		Balance:        balance,
		Link:           link,
	}
	b.Signature = crypto.SignRaw(w.priv, signableBytes(b))
	return b
}

// signableBytes returns the bytes a state block's signature covers: its
// hash. Work is attached separately and is not covered by the signature.
func signableBytes(b *core.StateBlock) []byte {
	h := b.Hash()
	return h[:]
}

// Sign implements consensus.Signer for a representative's own vote key:
// it produces a vote over hashes for account, used by the aggregator
// when no cached or in-flight vote answers a confirm-req. It reports
// false when account is not this wallet's own account, since a node
// only holds the voting key for the representatives it runs locally.
func (w *Wallet) Sign(account core.Account, hashes []core.BlockHash, final bool) (*consensus.Vote, bool) {
	if account != w.Account() {
		return nil, false
	}
	timestamp := uint64(0)
	if final {
		timestamp = consensus.FinalTimestamp
	}
	v := &consensus.Vote{
		Account:   account,
		Timestamp: timestamp,
		Hashes:    hashes,
	}
	digest := v.Hash()
	sig := crypto.SignRaw(w.priv, digest[:])
	copy(v.Signature[:], sig)
	return v, true
}
