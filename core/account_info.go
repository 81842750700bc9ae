package core

// AccountInfo is the latest-known state of one account chain, keyed by
// Account in the ledger's accounts table.
type AccountInfo struct {
	Head           BlockHash
	Representative Account
	OpenBlock      BlockHash
	Balance        Amount
	Modified       int64
	BlockCount     uint64
	Epoch          Epoch
}
