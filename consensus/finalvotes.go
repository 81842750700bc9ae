package consensus

import (
	"sync"

	"github.com/tolelom/tolchain/core"
)

// FinalVotes is the in-process record of every final vote this node's
// representative keys have cast, keyed by root. A representative must
// never cast two different final votes for the same root — doing so is
// equivocation — so this table is consulted before signing one.
type FinalVotes struct {
	mu   sync.Mutex
	byRoot map[core.BlockHash]core.BlockHash // root -> hash voted final
}

func NewFinalVotes() *FinalVotes {
	return &FinalVotes{byRoot: make(map[core.BlockHash]core.BlockHash)}
}

// TryRecord registers that this node is about to cast a final vote for
// hash at root. It returns false (refusing the vote) if a different hash
// was already voted final for the same root.
func (f *FinalVotes) TryRecord(root, hash core.BlockHash) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byRoot[root]; ok {
		return existing == hash
	}
	f.byRoot[root] = hash
	return true
}
