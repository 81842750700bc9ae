package network

import (
	"context"
	"encoding/json"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
)

// inboundMessage pairs a received message with the peer it arrived from,
// the unit queued for the worker pool below.
type inboundMessage struct {
	peer *Peer
	msg  Message
}

// BlockSink is where the message processor hands off a successfully
// decoded Publish — normally ledger.ProcessBlock wired through the
// node's write queue.
type BlockSink interface {
	ProcessBlock(block core.Block) error
}

// VoteSink is where decoded confirm-acks are handed off.
type VoteSink interface {
	ProcessVote(v *consensus.Vote) consensus.VoteCode
}

// ConfirmReqSink answers a confirm-req with whatever vote this node can
// produce, if any.
type ConfirmReqSink interface {
	Answer(hash core.BlockHash) (*consensus.Vote, bool)
}

// MessageProcessor is the bounded worker pool that drains inbound P2P
// messages: Node's read loops enqueue, a configured number of workers
// dequeue and dispatch, so one slow handler can't stall every peer's
// read loop. Built on golang.org/x/sync/errgroup the way a worker pool is
// commonly expressed in Go rather than hand-rolled WaitGroup bookkeeping.
type MessageProcessor struct {
	node      *Node
	blocks    BlockSink
	votes     VoteSink
	confirms  ConfirmReqSink
	queue     chan inboundMessage
	workers   int
}

// NewMessageProcessor returns a processor with workers goroutines reading
// from a queue of depth maxQueue.
func NewMessageProcessor(node *Node, blocks BlockSink, votes VoteSink, confirms ConfirmReqSink, workers, maxQueue int) *MessageProcessor {
	p := &MessageProcessor{
		node:     node,
		blocks:   blocks,
		votes:    votes,
		confirms: confirms,
		queue:    make(chan inboundMessage, maxQueue),
		workers:  workers,
	}
	node.Handle(MsgPublish, p.enqueue)
	node.Handle(MsgConfirmAck, p.enqueue)
	node.Handle(MsgConfirmReq, p.enqueue)
	return p
}

func (p *MessageProcessor) enqueue(peer *Peer, msg Message) {
	select {
	case p.queue <- inboundMessage{peer: peer, msg: msg}:
	default:
		log.Printf("[network] message queue full, dropping %s from %s", msg.Type, peer.ID)
	}
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (p *MessageProcessor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			return p.work(ctx)
		})
	}
	return g.Wait()
}

func (p *MessageProcessor) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-p.queue:
			p.dispatch(m)
		}
	}
}

func (p *MessageProcessor) dispatch(m inboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[network] handler panic for %s from %s: %v", m.msg.Type, m.peer.ID, r)
		}
	}()

	switch m.msg.Type {
	case MsgPublish:
		var payload PublishPayload
		if err := json.Unmarshal(m.msg.Payload, &payload); err != nil {
			return
		}
		block, err := core.UnmarshalBlockJSON(payload.Block)
		if err != nil {
			return
		}
		if err := p.blocks.ProcessBlock(block); err != nil {
			log.Printf("[network] process block %s: %v", block.Hash().Hex(), err)
		}

	case MsgConfirmAck:
		var payload ConfirmAckPayload
		if err := json.Unmarshal(m.msg.Payload, &payload); err != nil {
			return
		}
		p.votes.ProcessVote(PayloadToVote(payload))

	case MsgConfirmReq:
		var payload ConfirmReqPayload
		if err := json.Unmarshal(m.msg.Payload, &payload); err != nil {
			return
		}
		for _, h := range payload.Hashes {
			vote, ok := p.confirms.Answer(h)
			if !ok {
				continue
			}
			data, err := json.Marshal(VoteToPayload(vote))
			if err != nil {
				continue
			}
			_ = m.peer.Send(Message{Type: MsgConfirmAck, Payload: data})
		}
	}
}
