package network

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
)

func startTestNode(t *testing.T, id string) *Node {
	t.Helper()
	n := NewNode(id, "127.0.0.1:0", nil)
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(n.Stop)
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func (n *Node) addr() string {
	return n.listener.Addr().String()
}

func TestNodeAddPeerConnectsAndHandshakes(t *testing.T) {
	server := startTestNode(t, "server")
	client := startTestNode(t, "client")

	received := make(chan Message, 1)
	server.Handle(MsgHello, func(peer *Peer, msg Message) {
		received <- msg
	})

	if err := client.AddPeer("server", server.addr()); err != nil {
		t.Fatalf("AddPeer: %v", err)
	}

	select {
	case msg := <-received:
		var hello map[string]string
		if err := json.Unmarshal(msg.Payload, &hello); err != nil {
			t.Fatalf("unmarshal hello: %v", err)
		}
		if hello["node_id"] != "client" {
			t.Fatalf("node_id = %q, want %q", hello["node_id"], "client")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for hello")
	}

	if client.Peer("server") == nil {
		t.Fatalf("expected client to register the dialed peer")
	}
}

func TestNodeBroadcastReachesAllPeers(t *testing.T) {
	server := startTestNode(t, "server")
	client := startTestNode(t, "client")

	publishes := make(chan Message, 1)
	server.Handle(MsgPublish, func(peer *Peer, msg Message) {
		publishes <- msg
	})

	if err := client.AddPeer("server", server.addr()); err != nil {
		t.Fatalf("AddPeer: %v", err)
	}

	block := &core.StateBlock{
		Account:        core.Account{1},
		Representative: core.Account{2},
		Balance:        core.AmountFromUint64(42),
		Link:           core.LinkFromBlockHash(core.BlockHash{3}),
	}
	client.PublishBlock(block, false)

	select {
	case msg := <-publishes:
		var payload PublishPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("unmarshal publish: %v", err)
		}
		decoded, err := core.UnmarshalBlockJSON(payload.Block)
		if err != nil {
			t.Fatalf("UnmarshalBlockJSON: %v", err)
		}
		if decoded.Hash() != block.Hash() {
			t.Fatalf("hash mismatch: got %x, want %x", decoded.Hash(), block.Hash())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for published block")
	}
}

func TestNodeBroadcastVoteDeliversConfirmAck(t *testing.T) {
	server := startTestNode(t, "server")
	client := startTestNode(t, "client")

	acks := make(chan Message, 1)
	server.Handle(MsgConfirmAck, func(peer *Peer, msg Message) {
		acks <- msg
	})

	if err := client.AddPeer("server", server.addr()); err != nil {
		t.Fatalf("AddPeer: %v", err)
	}

	v := &consensus.Vote{Account: core.Account{9}, Timestamp: 1, Hashes: []core.BlockHash{{1}}}
	client.BroadcastVote(v)

	select {
	case msg := <-acks:
		var payload ConfirmAckPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("unmarshal confirm-ack: %v", err)
		}
		got := PayloadToVote(payload)
		if got.Account != v.Account {
			t.Fatalf("account = %v, want %v", got.Account, v.Account)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for confirm-ack")
	}
}

func TestNodeRejectsConnectionsPastMaxPeers(t *testing.T) {
	server := startTestNode(t, "server")
	server.maxPeers = 1

	first := startTestNode(t, "first")
	second := startTestNode(t, "second")

	if err := first.AddPeer("server", server.addr()); err != nil {
		t.Fatalf("AddPeer: %v", err)
	}
	waitFor(t, func() bool {
		server.mu.RLock()
		defer server.mu.RUnlock()
		return len(server.peers) >= 1
	})

	if err := second.AddPeer("server", server.addr()); err != nil {
		t.Fatalf("AddPeer (dial succeeds even if server rejects): %v", err)
	}

	// The server should have closed the second connection rather than
	// registering it, so the peer count must stay at 1.
	time.Sleep(100 * time.Millisecond)
	server.mu.RLock()
	count := len(server.peers)
	server.mu.RUnlock()
	if count != 1 {
		t.Fatalf("server peer count = %d, want 1 (max-peers rejection)", count)
	}
}

func TestNodeStopClosesListenerAndPeers(t *testing.T) {
	server := NewNode("server", "127.0.0.1:0", nil)
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	client := startTestNode(t, "client")

	if err := client.AddPeer("server", server.addr()); err != nil {
		t.Fatalf("AddPeer: %v", err)
	}
	waitFor(t, func() bool { return client.Peer("server") != nil })

	server.Stop()

	// The server's own peer connections are closed by Stop; a new dial
	// against the now-closed listener must fail.
	if err := client.AddPeer("server2", server.addr()); err == nil {
		t.Fatalf("expected AddPeer to fail once the listener is stopped")
	}
}
