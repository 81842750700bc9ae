package network

import (
	"encoding/json"
	"log"

	"github.com/tolelom/tolchain/core"
)

// maxAscPullCount bounds how many blocks one AscPullAck streams, so a
// single bootstrap request can't be used to force a peer to hold an
// unbounded response in memory.
const maxAscPullCount = 128

// ChainSource lets the syncer answer AscPullReq without depending on the
// ledger package directly.
type ChainSource interface {
	// ChainFrom returns up to count blocks belonging to account, starting
	// with the block immediately after start (the zero hash means "from
	// the open block").
	ChainFrom(account core.Account, start core.BlockHash, count uint32) ([]core.Block, error)
}

// BlockProcessor validates and applies one received block to the ledger.
type BlockProcessor interface {
	ProcessBlock(block core.Block) error
}

// Syncer answers and issues AscPullReq/AscPullAck exchanges: the
// per-account catch-up mechanism a node uses when it notices its local
// frontier for an account lags what a peer is publishing.
type Syncer struct {
	node      *Node
	source    ChainSource
	processor BlockProcessor
}

// NewSyncer wires a Syncer into node, answering pull requests from
// source and applying pulled blocks through processor.
func NewSyncer(node *Node, source ChainSource, processor BlockProcessor) *Syncer {
	s := &Syncer{node: node, source: source, processor: processor}
	node.Handle(MsgAscPullReq, s.handlePullReq)
	node.Handle(MsgAscPullAck, s.handlePullAck)
	return s
}

// RequestChain asks peer for account's chain starting just after start.
func (s *Syncer) RequestChain(peer *Peer, account core.Account, start core.BlockHash) error {
	req, err := json.Marshal(AscPullReqPayload{Account: account, Start: start, Count: maxAscPullCount})
	if err != nil {
		return err
	}
	return peer.Send(Message{Type: MsgAscPullReq, Payload: req})
}

func (s *Syncer) handlePullReq(peer *Peer, msg Message) {
	var req AscPullReqPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return
	}
	count := req.Count
	if count == 0 || count > maxAscPullCount {
		count = maxAscPullCount
	}
	blocks, err := s.source.ChainFrom(req.Account, req.Start, count)
	if err != nil {
		log.Printf("[sync] chain lookup for %s failed: %v", req.Account.Hex(), err)
		return
	}

	wire := make([]json.RawMessage, 0, len(blocks))
	for _, b := range blocks {
		data, err := core.MarshalBlockJSON(b)
		if err != nil {
			continue
		}
		wire = append(wire, data)
	}
	resp, err := json.Marshal(AscPullAckPayload{Account: req.Account, Blocks: wire})
	if err != nil {
		return
	}
	_ = peer.Send(Message{Type: MsgAscPullAck, Payload: resp})
}

func (s *Syncer) handlePullAck(_ *Peer, msg Message) {
	var resp AscPullAckPayload
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		return
	}
	for _, raw := range resp.Blocks {
		block, err := core.UnmarshalBlockJSON(raw)
		if err != nil {
			log.Printf("[sync] decode block for %s failed: %v", resp.Account.Hex(), err)
			continue
		}
		if err := s.processor.ProcessBlock(block); err != nil {
			log.Printf("[sync] process block %s failed: %v", block.Hash().Hex(), err)
			continue
		}
	}
}
