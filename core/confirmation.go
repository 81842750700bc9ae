package core

// ConfirmationHeightInfo is the cementer's durable progress marker for one
// account: how many blocks (from the open block) are cemented, and the
// hash of the highest cemented block (the "frontier").
type ConfirmationHeightInfo struct {
	Height   uint64
	Frontier BlockHash
}
