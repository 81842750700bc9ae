package core

import "fmt"

// Epoch tags which protocol generation an account (or a pending receivable)
// belongs to. Invalid and Unspecified are distinct zero/default slots so a
// zero-value Epoch never silently compares equal to Epoch0 (grounded on
// original_source/rust/core/src/epoch.rs, which keeps the same two slots
// ahead of Epoch0 for exactly this reason).
type Epoch uint8

const (
	EpochInvalid Epoch = iota
	EpochUnspecified
	Epoch0
	Epoch1
	Epoch2

	// EpochMax is the highest epoch a block may declare.
	EpochMax = Epoch2
	// EpochBegin is the first real epoch an opened account can sit in.
	EpochBegin = Epoch0
)

func (e Epoch) String() string {
	switch e {
	case EpochInvalid:
		return "invalid"
	case EpochUnspecified:
		return "unspecified"
	case Epoch0:
		return "epoch_0"
	case Epoch1:
		return "epoch_1"
	case Epoch2:
		return "epoch_2"
	default:
		return fmt.Sprintf("epoch(%d)", uint8(e))
	}
}

// epochInfo binds one epoch to its signer key and its link tag.
type epochInfo struct {
	signer Account
	link   Link
}

// Epochs is the registry of epoch-link tags and their signing keys.
// Constructed once at node start; epochs are registered with Add.
type Epochs struct {
	byEpoch map[Epoch]epochInfo
}

// NewEpochs returns an empty registry.
func NewEpochs() *Epochs {
	return &Epochs{byEpoch: make(map[Epoch]epochInfo)}
}

// Add registers the link tag and signer for epoch.
func (e *Epochs) Add(epoch Epoch, signer Account, link Link) {
	e.byEpoch[epoch] = epochInfo{signer: signer, link: link}
}

// IsEpochLink reports whether link matches one of the registered epoch tags.
//
// WARNING: a legal block can carry an epoch link as an ordinary send
// destination. Matching the link alone does not make a block an epoch
// block — callers must also check the balance-unchanged and
// special-signer conditions (see ledger.Validate).
func (e *Epochs) IsEpochLink(link Link) bool {
	for _, info := range e.byEpoch {
		if info.link == link {
			return true
		}
	}
	return false
}

// EpochOf returns the epoch whose link tag matches link.
func (e *Epochs) EpochOf(link Link) (Epoch, bool) {
	for epoch, info := range e.byEpoch {
		if info.link == link {
			return epoch, true
		}
	}
	return EpochInvalid, false
}

// Signer returns the registered signer key for epoch.
func (e *Epochs) Signer(epoch Epoch) (Account, bool) {
	info, ok := e.byEpoch[epoch]
	return info.signer, ok
}

// Link returns the registered link tag for epoch.
func (e *Epochs) Link(epoch Epoch) (Link, bool) {
	info, ok := e.byEpoch[epoch]
	return info.link, ok
}

// IsSequential reports whether newEpoch is exactly one version above old.
func IsSequential(old, newEpoch Epoch) bool {
	return old >= Epoch0 && uint8(newEpoch) == uint8(old)+1
}
