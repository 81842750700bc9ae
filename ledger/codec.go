package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolchain/core"
)

// The on-disk encoding is JSON, matching the teacher's StateDB convention
// of storing `json.Marshal`-ed structs under binary-prefixed keys rather
// than a length-prefixed binary codec.

type storedBlockWire struct {
	Block    json.RawMessage `json:"block"`
	Sideband sidebandWire    `json:"sideband"`
}

type sidebandWire struct {
	Height      uint64            `json:"height"`
	Timestamp   int64             `json:"timestamp"`
	Successor   string            `json:"successor"`
	Account     string            `json:"account"`
	Balance     string            `json:"balance"`
	Details     core.BlockDetails `json:"details"`
	SourceEpoch core.Epoch        `json:"source_epoch"`
}

func encodeStoredBlock(sb core.StoredBlock) ([]byte, error) {
	blockJSON, err := core.MarshalBlockJSON(sb.Block)
	if err != nil {
		return nil, err
	}
	balance := sb.Sideband.Balance.Bytes()
	w := storedBlockWire{
		Block: blockJSON,
		Sideband: sidebandWire{
			Height:      sb.Sideband.Height,
			Timestamp:   sb.Sideband.Timestamp,
			Successor:   sb.Sideband.Successor.Hex(),
			Account:     core.EncodeAccount(sb.Sideband.Account),
			Balance:     sb.Sideband.Balance.String(),
			Details:     sb.Sideband.Details,
			SourceEpoch: sb.Sideband.SourceEpoch,
		},
	}
	_ = balance
	return json.Marshal(w)
}

func decodeStoredBlock(data []byte) (core.StoredBlock, error) {
	var w storedBlockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return core.StoredBlock{}, err
	}
	block, err := core.UnmarshalBlockJSON(w.Block)
	if err != nil {
		return core.StoredBlock{}, err
	}
	successor, err := core.BlockHashFromHex(w.Sideband.Successor)
	if err != nil {
		return core.StoredBlock{}, err
	}
	account, err := core.DecodeAccount(w.Sideband.Account)
	if err != nil {
		return core.StoredBlock{}, err
	}
	balance, err := parseAmount(w.Sideband.Balance)
	if err != nil {
		return core.StoredBlock{}, err
	}
	return core.StoredBlock{
		Block: block,
		Sideband: core.Sideband{
			Height:      w.Sideband.Height,
			Timestamp:   w.Sideband.Timestamp,
			Successor:   successor,
			Account:     account,
			Balance:     balance,
			Details:     w.Sideband.Details,
			SourceEpoch: w.Sideband.SourceEpoch,
		},
	}, nil
}

type accountInfoWire struct {
	Head           string     `json:"head"`
	Representative string     `json:"representative"`
	OpenBlock      string     `json:"open_block"`
	Balance        string     `json:"balance"`
	Modified       int64      `json:"modified"`
	BlockCount     uint64     `json:"block_count"`
	Epoch          core.Epoch `json:"epoch"`
}

func encodeAccountInfo(info core.AccountInfo) ([]byte, error) {
	return json.Marshal(accountInfoWire{
		Head:           info.Head.Hex(),
		Representative: core.EncodeAccount(info.Representative),
		OpenBlock:      info.OpenBlock.Hex(),
		Balance:        info.Balance.String(),
		Modified:       info.Modified,
		BlockCount:     info.BlockCount,
		Epoch:          info.Epoch,
	})
}

func decodeAccountInfo(data []byte) (core.AccountInfo, error) {
	var w accountInfoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return core.AccountInfo{}, err
	}
	head, err := core.BlockHashFromHex(w.Head)
	if err != nil {
		return core.AccountInfo{}, err
	}
	rep, err := core.DecodeAccount(w.Representative)
	if err != nil {
		return core.AccountInfo{}, err
	}
	open, err := core.BlockHashFromHex(w.OpenBlock)
	if err != nil {
		return core.AccountInfo{}, err
	}
	balance, err := parseAmount(w.Balance)
	if err != nil {
		return core.AccountInfo{}, err
	}
	return core.AccountInfo{
		Head:           head,
		Representative: rep,
		OpenBlock:      open,
		Balance:        balance,
		Modified:       w.Modified,
		BlockCount:     w.BlockCount,
		Epoch:          w.Epoch,
	}, nil
}

type pendingInfoWire struct {
	Source string     `json:"source"`
	Amount string     `json:"amount"`
	Epoch  core.Epoch `json:"epoch"`
}

func encodePendingInfo(info core.PendingInfo) ([]byte, error) {
	return json.Marshal(pendingInfoWire{
		Source: core.EncodeAccount(info.Source),
		Amount: info.Amount.String(),
		Epoch:  info.Epoch,
	})
}

func decodePendingInfo(data []byte) (core.PendingInfo, error) {
	var w pendingInfoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return core.PendingInfo{}, err
	}
	source, err := core.DecodeAccount(w.Source)
	if err != nil {
		return core.PendingInfo{}, err
	}
	amount, err := parseAmount(w.Amount)
	if err != nil {
		return core.PendingInfo{}, err
	}
	return core.PendingInfo{Source: source, Amount: amount, Epoch: w.Epoch}, nil
}

type confirmationHeightWire struct {
	Height   uint64 `json:"height"`
	Frontier string `json:"frontier"`
}

func encodeConfirmationHeight(info core.ConfirmationHeightInfo) ([]byte, error) {
	return json.Marshal(confirmationHeightWire{Height: info.Height, Frontier: info.Frontier.Hex()})
}

func decodeConfirmationHeight(data []byte) (core.ConfirmationHeightInfo, error) {
	var w confirmationHeightWire
	if err := json.Unmarshal(data, &w); err != nil {
		return core.ConfirmationHeightInfo{}, err
	}
	frontier, err := core.BlockHashFromHex(w.Frontier)
	if err != nil {
		return core.ConfirmationHeightInfo{}, err
	}
	return core.ConfirmationHeightInfo{Height: w.Height, Frontier: frontier}, nil
}

func parseAmount(s string) (core.Amount, error) {
	a, err := core.AmountFromDecimalString(s)
	if err != nil {
		return core.ZeroAmount, fmt.Errorf("ledger: bad amount %q: %w", s, err)
	}
	return a, nil
}
