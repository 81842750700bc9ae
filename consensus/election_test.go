package consensus

import (
	"testing"
	"time"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/internal/testutil"
	"github.com/tolelom/tolchain/ledger"
)

func weightsWith(t *testing.T, amounts map[core.Account]uint64) *ledger.RepWeights {
	t.Helper()
	store := testutil.NewLedgerStore()
	weights, err := ledger.NewRepWeights(store)
	if err != nil {
		t.Fatalf("NewRepWeights: %v", err)
	}
	txn := store.TxBeginWrite()
	for rep, amount := range amounts {
		if err := weights.AddDual(txn, core.Account{}, rep, core.AmountFromUint64(amount)); err != nil {
			t.Fatalf("AddDual: %v", err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return weights
}

func TestElectionConfirmsAtQuorum(t *testing.T) {
	repA := core.Account{1}
	repB := core.Account{2}
	weights := weightsWith(t, map[core.Account]uint64{repA: 60, repB: 40})

	root := core.BlockHash{9}
	winner := core.BlockHash{10}
	election := NewElection(core.Account{5}, root, time.Now())
	election.Activate()
	election.AddCandidate(&stubBlock{hash: winner})

	// quorumDelta set to 67% of the 100-weight total, i.e. 67.
	quorumDelta := core.AmountFromUint64(67)

	code := election.ProcessVote(&Vote{Account: repA, Timestamp: 1, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, core.ZeroAmount)
	if code != VoteCodeVote {
		t.Fatalf("first vote code = %v, want VoteCodeVote", code)
	}
	if election.Confirmed() {
		t.Fatalf("should not confirm on 60/100 weight alone")
	}

	code = election.ProcessVote(&Vote{Account: repB, Timestamp: 1, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, core.ZeroAmount)
	if code != VoteCodeVote {
		t.Fatalf("second vote code = %v, want VoteCodeVote", code)
	}
	if !election.Confirmed() {
		t.Fatalf("expected quorum reached at 100/100 weight")
	}
	if election.Winner() != winner {
		t.Fatalf("winner = %x, want %x", election.Winner(), winner)
	}
}

// TestElectionIgnoresSubPrincipalVoteForTally votes a representative whose
// weight sits below minimumPrincipalWeight: the vote is recorded (it isn't
// a replay on a later, above-threshold resubmission) but contributes
// nothing to the tally, so quorum is never reached on it alone.
func TestElectionIgnoresSubPrincipalVoteForTally(t *testing.T) {
	rep := core.Account{1}
	weights := weightsWith(t, map[core.Account]uint64{rep: 50})
	election := NewElection(core.Account{5}, core.BlockHash{1}, time.Now())
	election.Activate()
	winner := core.BlockHash{2}
	election.AddCandidate(&stubBlock{hash: winner})

	quorumDelta := core.AmountFromUint64(1)
	minimumPrincipalWeight := core.AmountFromUint64(100)

	code := election.ProcessVote(&Vote{Account: rep, Timestamp: 1, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, minimumPrincipalWeight)
	if code != VoteCodeIndeterminate {
		t.Fatalf("sub-principal vote code = %v, want VoteCodeIndeterminate", code)
	}
	if election.Confirmed() {
		t.Fatalf("sub-principal vote must not count toward quorum")
	}
}

func TestElectionRejectsReplayFromSameRepresentative(t *testing.T) {
	rep := core.Account{1}
	weights := weightsWith(t, map[core.Account]uint64{rep: 100})
	election := NewElection(core.Account{5}, core.BlockHash{1}, time.Now())
	winner := core.BlockHash{2}
	election.AddCandidate(&stubBlock{hash: winner})

	quorumDelta := core.AmountFromUint64(1000)
	election.ProcessVote(&Vote{Account: rep, Timestamp: 5, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, core.ZeroAmount)

	replay := election.ProcessVote(&Vote{Account: rep, Timestamp: 5, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, core.ZeroAmount)
	if replay != VoteCodeReplay {
		t.Fatalf("equal-timestamp resubmission = %v, want VoteCodeReplay", replay)
	}

	older := election.ProcessVote(&Vote{Account: rep, Timestamp: 3, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, core.ZeroAmount)
	if older != VoteCodeReplay {
		t.Fatalf("older-timestamp resubmission = %v, want VoteCodeReplay", older)
	}
}

func TestElectionFinalVoteCannotBeSuperseded(t *testing.T) {
	rep := core.Account{1}
	weights := weightsWith(t, map[core.Account]uint64{rep: 100})
	election := NewElection(core.Account{5}, core.BlockHash{1}, time.Now())
	winner := core.BlockHash{2}
	election.AddCandidate(&stubBlock{hash: winner})

	quorumDelta := core.AmountFromUint64(1000)
	code := election.ProcessVote(&Vote{Account: rep, Timestamp: FinalTimestamp, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, core.ZeroAmount)
	if code != VoteCodeVote {
		t.Fatalf("final vote code = %v, want VoteCodeVote", code)
	}

	again := election.ProcessVote(&Vote{Account: rep, Timestamp: FinalTimestamp, Hashes: []core.BlockHash{winner}}, weights, quorumDelta, core.ZeroAmount)
	if again != VoteCodeReplay {
		t.Fatalf("second final vote = %v, want VoteCodeReplay", again)
	}
}

func TestElectionMaybeExpire(t *testing.T) {
	election := NewElection(core.Account{1}, core.BlockHash{1}, time.Now().Add(-10*time.Minute))
	election.Activate()
	if !election.MaybeExpire(time.Now()) {
		t.Fatalf("expected election past its deadline to expire")
	}
	if election.State != ElectionExpired {
		t.Fatalf("state = %v, want ElectionExpired", election.State)
	}
}

func TestElectionMaybeExpireNotYetDue(t *testing.T) {
	election := NewElection(core.Account{1}, core.BlockHash{1}, time.Now())
	election.Activate()
	if election.MaybeExpire(time.Now()) {
		t.Fatalf("fresh election should not expire immediately")
	}
}

// stubBlock satisfies core.Block with a fixed hash, for election tests
// that only exercise tallying and never touch signature/work fields.
type stubBlock struct {
	hash core.BlockHash
}

func (b *stubBlock) Type() core.BlockType          { return core.BlockTypeState }
func (b *stubBlock) Hash() core.BlockHash          { return b.hash }
func (b *stubBlock) PreviousHash() core.BlockHash  { return core.BlockHash{} }
func (b *stubBlock) SignatureValue() core.Signature { return core.Signature{} }
func (b *stubBlock) WorkValue() core.Work          { return 0 }
func (b *stubBlock) SetSignature(core.Signature)   {}
func (b *stubBlock) SetWork(core.Work)             {}
