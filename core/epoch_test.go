package core

import "testing"

func TestEpochsRegistry(t *testing.T) {
	e := NewEpochs()
	var signer Account
	signer[0] = 1
	link := LinkFromBlockHash(BlockHash{2, 3, 4})

	e.Add(Epoch1, signer, link)

	if !e.IsEpochLink(link) {
		t.Fatalf("expected link to be recognized as an epoch link")
	}
	got, ok := e.EpochOf(link)
	if !ok || got != Epoch1 {
		t.Fatalf("EpochOf: got (%v, %v), want (epoch_1, true)", got, ok)
	}
	s, ok := e.Signer(Epoch1)
	if !ok || s != signer {
		t.Fatalf("Signer mismatch")
	}
}

func TestEpochsIsEpochLinkFalseForUnregistered(t *testing.T) {
	e := NewEpochs()
	if e.IsEpochLink(LinkFromBlockHash(BlockHash{9})) {
		t.Fatalf("unregistered link should not match")
	}
}

func TestIsSequential(t *testing.T) {
	cases := []struct {
		old, new Epoch
		want     bool
	}{
		{Epoch0, Epoch1, true},
		{Epoch1, Epoch2, true},
		{Epoch0, Epoch2, false},
		{EpochUnspecified, Epoch0, false},
		{Epoch1, Epoch1, false},
	}
	for _, c := range cases {
		if got := IsSequential(c.old, c.new); got != c.want {
			t.Fatalf("IsSequential(%v, %v) = %v, want %v", c.old, c.new, got, c.want)
		}
	}
}
