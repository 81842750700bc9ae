package consensus

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tolelom/tolchain/core"
)

const (
	recentlyConfirmedSize = 65536
	recentlyCementedSize  = 65536
)

// RecentlyConfirmed remembers elections that recently reached quorum, so
// a block arriving moments after confirmation (a slow peer's retransmit,
// a duplicate publish) is recognized and dropped instead of spawning a
// redundant election.
type RecentlyConfirmed struct {
	cache *lru.Cache[core.BlockHash, core.Account]
}

func NewRecentlyConfirmed() *RecentlyConfirmed {
	c, _ := lru.New[core.BlockHash, core.Account](recentlyConfirmedSize)
	return &RecentlyConfirmed{cache: c}
}

func (r *RecentlyConfirmed) Put(hash core.BlockHash, account core.Account) {
	r.cache.Add(hash, account)
}

func (r *RecentlyConfirmed) Contains(hash core.BlockHash) bool {
	return r.cache.Contains(hash)
}

// RecentlyCemented remembers the last batch of blocks the cementer wrote
// confirmation height for, independent of RecentlyConfirmed: a block can
// be confirmed (quorum reached) well before the cementer gets around to
// advancing that account's confirmation height, and RPC/event-subscriber
// consumers care about the cementing event specifically.
type RecentlyCemented struct {
	cache *lru.Cache[core.BlockHash, core.ConfirmationHeightInfo]
}

func NewRecentlyCemented() *RecentlyCemented {
	c, _ := lru.New[core.BlockHash, core.ConfirmationHeightInfo](recentlyCementedSize)
	return &RecentlyCemented{cache: c}
}

func (r *RecentlyCemented) Put(hash core.BlockHash, info core.ConfirmationHeightInfo) {
	r.cache.Add(hash, info)
}

func (r *RecentlyCemented) Get(hash core.BlockHash) (core.ConfirmationHeightInfo, bool) {
	return r.cache.Get(hash)
}
