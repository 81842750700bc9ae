package consensus

import (
	"errors"
	"math"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
)

// FinalTimestamp is the sentinel vote timestamp meaning "this is a final
// vote": it can never be superseded by a later timestamped vote from the
// same representative, the opposite of the normal rule where only a
// strictly larger timestamp replaces the previous one.
const FinalTimestamp uint64 = math.MaxUint64

// Vote is one representative's signed statement about which block(s) it
// believes are the true tip of the given root's election. A live vote
// names one block hash; a final vote commits the representative to it
// permanently.
type Vote struct {
	Account   core.Account
	Timestamp uint64
	Hashes    []core.BlockHash
	Signature core.Signature
}

// IsFinal reports whether v is a final vote.
func (v *Vote) IsFinal() bool { return v.Timestamp == FinalTimestamp }

// hashableBytes is the byte sequence the vote signature covers: the
// timestamp followed by every hash, in order.
func (v *Vote) hashableBytes() []byte {
	buf := make([]byte, 0, 8+32*len(v.Hashes))
	var ts [8]byte
	for i := 0; i < 8; i++ {
		ts[i] = byte(v.Timestamp >> (56 - 8*i))
	}
	buf = append(buf, ts[:]...)
	for _, h := range v.Hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// Hash returns the digest used to key cached votes and detect duplicates.
func (v *Vote) Hash() core.BlockHash {
	return core.BlockHash(crypto.Blake2b256(v.hashableBytes()))
}

var errEmptyVote = errors.New("consensus: vote has no hashes")

// ValidateVote checks a vote's signature and shape, independent of any
// particular election (the router looks up the matching election(s)
// separately).
func ValidateVote(v *Vote) error {
	if len(v.Hashes) == 0 {
		return errEmptyVote
	}
	digest := v.Hash()
	return crypto.VerifyRaw(crypto.PublicKey(v.Account[:]), digest[:], v.Signature[:])
}
