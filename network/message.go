package network

import (
	"encoding/json"

	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
)

// PublishExtensions is the bit-packed word riding alongside a Publish
// message's block: bits 8-11 name the BlockType so a peer can route the
// wire block to the right decoder without probing every variant, and bit
// 2 flags that the sender considers this a confirmed block (lets a
// receiver skip starting its own election for something already settled
// upstream).
type PublishExtensions uint16

func NewPublishExtensions(t core.BlockType, confirmed bool) PublishExtensions {
	e := PublishExtensions(t&0x0F) << 8
	if confirmed {
		e |= 1 << 2
	}
	return e
}

func (e PublishExtensions) BlockType() core.BlockType { return core.BlockType((e >> 8) & 0x0F) }
func (e PublishExtensions) Confirmed() bool           { return e&(1<<2) != 0 }

// PublishPayload carries one block to gossip to peers.
type PublishPayload struct {
	Extensions PublishExtensions `json:"extensions"`
	Block      json.RawMessage   `json:"block"`
}

// ConfirmReqPayload asks peers to vote on (or return their cemented
// frontier for) a set of roots.
type ConfirmReqPayload struct {
	Hashes []core.BlockHash `json:"hashes"`
}

// ConfirmAckPayload carries a vote (live or final) in response to a
// ConfirmReq, or is sent unsolicited when an election concludes.
type ConfirmAckPayload struct {
	Account   core.Account      `json:"account"`
	Timestamp uint64            `json:"timestamp"`
	Hashes    []core.BlockHash  `json:"hashes"`
	Signature core.Signature    `json:"signature"`
}

func VoteToPayload(v *consensus.Vote) ConfirmAckPayload {
	return ConfirmAckPayload{Account: v.Account, Timestamp: v.Timestamp, Hashes: v.Hashes, Signature: v.Signature}
}

func PayloadToVote(p ConfirmAckPayload) *consensus.Vote {
	return &consensus.Vote{Account: p.Account, Timestamp: p.Timestamp, Hashes: p.Hashes, Signature: p.Signature}
}

// AscPullReqPayload asks a peer to stream blocks for account starting
// just after start, up to count blocks — the bootstrap/catch-up pull
// used when this node's frontier for account lags the network's.
type AscPullReqPayload struct {
	Account core.Account   `json:"account"`
	Start   core.BlockHash `json:"start"`
	Count   uint32         `json:"count"`
}

// AscPullAckPayload is the streamed response: wire-encoded blocks in
// chain order starting just after Start.
type AscPullAckPayload struct {
	Account core.Account      `json:"account"`
	Blocks  []json.RawMessage `json:"blocks"`
}
