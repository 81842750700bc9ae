package consensus

import (
	"testing"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
)

func signedVote(t *testing.T, priv crypto.PrivateKey, account core.Account, timestamp uint64, hashes ...core.BlockHash) *Vote {
	t.Helper()
	v := &Vote{Account: account, Timestamp: timestamp, Hashes: hashes}
	digest := v.Hash()
	raw := crypto.SignRaw(priv, digest[:])
	copy(v.Signature[:], raw)
	return v
}

func TestValidateVoteAcceptsWellFormedVote(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	var account core.Account
	copy(account[:], pub)

	v := signedVote(t, priv, account, 1, core.BlockHash{1})
	if err := ValidateVote(v); err != nil {
		t.Fatalf("ValidateVote: %v", err)
	}
}

func TestValidateVoteRejectsEmptyHashes(t *testing.T) {
	priv, pub, _ := crypto.GenerateKeyPair()
	var account core.Account
	copy(account[:], pub)
	v := signedVote(t, priv, account, 1)
	if err := ValidateVote(v); err == nil {
		t.Fatalf("expected error for empty hash list")
	}
}

func TestValidateVoteRejectsBadSignature(t *testing.T) {
	_, pub, _ := crypto.GenerateKeyPair()
	var account core.Account
	copy(account[:], pub)
	wrongPriv, _, _ := crypto.GenerateKeyPair()
	v := signedVote(t, wrongPriv, account, 1, core.BlockHash{1})
	if err := ValidateVote(v); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestVoteIsFinal(t *testing.T) {
	v := &Vote{Timestamp: FinalTimestamp}
	if !v.IsFinal() {
		t.Fatalf("expected final vote")
	}
	v2 := &Vote{Timestamp: 5}
	if v2.IsFinal() {
		t.Fatalf("timestamp 5 should not be final")
	}
}
