package core

import "github.com/tolelom/tolchain/crypto"

// BlockType discriminates the five block variants. Validator, rollback
// planner and cementer all dispatch on this via an exhaustive type switch
// over the Block interface — no open-set/registry polymorphism (see
// DESIGN.md for why that pattern is wrong here).
type BlockType uint8

const (
	BlockTypeInvalid BlockType = iota
	BlockTypeLegacyOpen
	BlockTypeLegacyReceive
	BlockTypeLegacySend
	BlockTypeLegacyChange
	BlockTypeState
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeLegacyOpen:
		return "open"
	case BlockTypeLegacyReceive:
		return "receive"
	case BlockTypeLegacySend:
		return "send"
	case BlockTypeLegacyChange:
		return "change"
	case BlockTypeState:
		return "state"
	default:
		return "invalid"
	}
}

// Block is implemented by exactly the five variants below. The interface
// only exposes what every variant has; variant-specific fields (source,
// destination, link, balance, representative) are read via a type switch
// on the concrete type.
type Block interface {
	Type() BlockType
	Hash() BlockHash
	PreviousHash() BlockHash
	SignatureValue() Signature
	WorkValue() Work
	SetSignature(Signature)
	SetWork(Work)
}

// BlockDetails classifies a block for proof-of-work and sideband purposes.
// Computed by the validator, not stored on the block itself.
type BlockDetails struct {
	Epoch     Epoch
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
}

// ---- LegacyOpenBlock ----

type LegacyOpenBlock struct {
	Source         BlockHash
	Representative Account
	Account        Account
	Signature      Signature
	Work           Work
}

func (b *LegacyOpenBlock) Type() BlockType { return BlockTypeLegacyOpen }

func (b *LegacyOpenBlock) Hash() BlockHash {
	return BlockHash(crypto.Blake2b256(
		[]byte{byte(BlockTypeLegacyOpen)},
		b.Source[:], b.Representative[:], b.Account[:],
	))
}

func (b *LegacyOpenBlock) PreviousHash() BlockHash   { return BlockHash{} }
func (b *LegacyOpenBlock) SignatureValue() Signature { return b.Signature }
func (b *LegacyOpenBlock) WorkValue() Work           { return b.Work }
func (b *LegacyOpenBlock) SetSignature(s Signature)  { b.Signature = s }
func (b *LegacyOpenBlock) SetWork(w Work)             { b.Work = w }

// ---- LegacyReceiveBlock ----

type LegacyReceiveBlock struct {
	Previous  BlockHash
	Source    BlockHash
	Signature Signature
	Work      Work
}

func (b *LegacyReceiveBlock) Type() BlockType { return BlockTypeLegacyReceive }

func (b *LegacyReceiveBlock) Hash() BlockHash {
	return BlockHash(crypto.Blake2b256(
		[]byte{byte(BlockTypeLegacyReceive)},
		b.Previous[:], b.Source[:],
	))
}

func (b *LegacyReceiveBlock) PreviousHash() BlockHash   { return b.Previous }
func (b *LegacyReceiveBlock) SignatureValue() Signature { return b.Signature }
func (b *LegacyReceiveBlock) WorkValue() Work           { return b.Work }
func (b *LegacyReceiveBlock) SetSignature(s Signature)  { b.Signature = s }
func (b *LegacyReceiveBlock) SetWork(w Work)            { b.Work = w }

// ---- LegacySendBlock ----

type LegacySendBlock struct {
	Previous    BlockHash
	Destination Account
	Balance     Amount
	Signature   Signature
	Work        Work
}

func (b *LegacySendBlock) Type() BlockType { return BlockTypeLegacySend }

func (b *LegacySendBlock) Hash() BlockHash {
	balance := b.Balance.Bytes()
	return BlockHash(crypto.Blake2b256(
		[]byte{byte(BlockTypeLegacySend)},
		b.Previous[:], b.Destination[:], balance[:],
	))
}

func (b *LegacySendBlock) PreviousHash() BlockHash   { return b.Previous }
func (b *LegacySendBlock) SignatureValue() Signature { return b.Signature }
func (b *LegacySendBlock) WorkValue() Work           { return b.Work }
func (b *LegacySendBlock) SetSignature(s Signature)  { b.Signature = s }
func (b *LegacySendBlock) SetWork(w Work)            { b.Work = w }

// ---- LegacyChangeBlock ----

type LegacyChangeBlock struct {
	Previous       BlockHash
	Representative Account
	Signature      Signature
	Work           Work
}

func (b *LegacyChangeBlock) Type() BlockType { return BlockTypeLegacyChange }

func (b *LegacyChangeBlock) Hash() BlockHash {
	return BlockHash(crypto.Blake2b256(
		[]byte{byte(BlockTypeLegacyChange)},
		b.Previous[:], b.Representative[:],
	))
}

func (b *LegacyChangeBlock) PreviousHash() BlockHash   { return b.Previous }
func (b *LegacyChangeBlock) SignatureValue() Signature { return b.Signature }
func (b *LegacyChangeBlock) WorkValue() Work           { return b.Work }
func (b *LegacyChangeBlock) SetSignature(s Signature)  { b.Signature = s }
func (b *LegacyChangeBlock) SetWork(w Work)            { b.Work = w }

// ---- StateBlock ----

// StateBlock is the unified block variant. Link is overloaded: a send
// destination, a receive source hash, or (when it matches a registered
// epoch tag and the other epoch conditions hold — see ledger.Validate)
// an epoch marker.
type StateBlock struct {
	Account        Account
	Previous       BlockHash
	Representative Account
	Balance        Amount
	Link           Link
	Signature      Signature
	Work           Work
}

func (b *StateBlock) Type() BlockType { return BlockTypeState }

func (b *StateBlock) Hash() BlockHash {
	balance := b.Balance.Bytes()
	return BlockHash(crypto.Blake2b256(
		[]byte{byte(BlockTypeState)},
		b.Account[:], b.Previous[:], b.Representative[:], balance[:], b.Link[:],
	))
}

func (b *StateBlock) PreviousHash() BlockHash   { return b.Previous }
func (b *StateBlock) SignatureValue() Signature { return b.Signature }
func (b *StateBlock) WorkValue() Work           { return b.Work }
func (b *StateBlock) SetSignature(s Signature)  { b.Signature = s }
func (b *StateBlock) SetWork(w Work)            { b.Work = w }

// IsOpen reports whether this is the first block of its account (Previous
// is zero): a LegacyOpenBlock, or a State block with a zero Previous.
func IsOpen(b Block) bool {
	switch v := b.(type) {
	case *LegacyOpenBlock:
		return true
	case *StateBlock:
		return v.Previous.IsZero()
	default:
		return false
	}
}

// Sideband is persistent metadata attached to every stored block,
// reconstructed on insert and back-patched (successor) when the next
// block lands.
type Sideband struct {
	Height      uint64
	Timestamp   int64
	Successor   BlockHash
	Account     Account
	Balance     Amount
	Details     BlockDetails
	SourceEpoch Epoch
}

// StoredBlock pairs a block with its sideband, the unit persisted in and
// retrieved from the ledger's blocks table.
type StoredBlock struct {
	Block    Block
	Sideband Sideband
}
