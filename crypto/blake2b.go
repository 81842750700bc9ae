package crypto

import "golang.org/x/crypto/blake2b"

// BlockHashSize is the width of a block/vote/work hash in bytes.
const BlockHashSize = 32

// Blake2b256 hashes data with BLAKE2b-256. This is the hash used for block
// and vote content (as opposed to Hash/HashBytes, which remain SHA-256 and
// back the legacy hex address of PublicKey.Address).
func Blake2b256(parts ...[]byte) [BlockHashSize]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors for an oversized key, which we never pass.
		panic("crypto: blake2b.New256: " + err.Error())
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out [BlockHashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
