package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// wireBlock is the JSON-on-the-wire shape for all five block variants,
// superset of fields; MarshalBlockJSON/UnmarshalBlockJSON translate
// between it and the concrete Go struct for "type". Used by the P2P
// publish message and the RPC process/block endpoints.
type wireBlock struct {
	Type           string `json:"type"`
	Account        string `json:"account,omitempty"`
	Previous       string `json:"previous,omitempty"`
	Source         string `json:"source,omitempty"`
	Representative string `json:"representative,omitempty"`
	Destination    string `json:"destination,omitempty"`
	Balance        string `json:"balance,omitempty"`
	Link           string `json:"link,omitempty"`
	LinkAsAccount  string `json:"link_as_account,omitempty"`
	Signature      string `json:"signature"`
	Work           string `json:"work"`
}

// MarshalBlockJSON encodes any Block variant to its wire representation.
func MarshalBlockJSON(b Block) ([]byte, error) {
	w := wireBlock{
		Type:      b.Type().String(),
		Signature: hex.EncodeToString(sigBytes(b.SignatureValue())),
		Work:      fmt.Sprintf("%016x", uint64(b.WorkValue())),
	}
	switch v := b.(type) {
	case *LegacyOpenBlock:
		w.Source = v.Source.Hex()
		w.Representative = EncodeAccount(v.Representative)
		w.Account = EncodeAccount(v.Account)
	case *LegacyReceiveBlock:
		w.Previous = v.Previous.Hex()
		w.Source = v.Source.Hex()
	case *LegacySendBlock:
		w.Previous = v.Previous.Hex()
		w.Destination = EncodeAccount(v.Destination)
		w.Balance = v.Balance.String()
	case *LegacyChangeBlock:
		w.Previous = v.Previous.Hex()
		w.Representative = EncodeAccount(v.Representative)
	case *StateBlock:
		w.Account = EncodeAccount(v.Account)
		w.Previous = v.Previous.Hex()
		w.Representative = EncodeAccount(v.Representative)
		w.Balance = v.Balance.String()
		w.Link = v.Link.Hex()
		w.LinkAsAccount = EncodeAccount(v.Link.AsAccount())
	default:
		return nil, fmt.Errorf("core: unknown block type %T", b)
	}
	return json.Marshal(w)
}

// UnmarshalBlockJSON decodes a wire block into its concrete variant.
func UnmarshalBlockJSON(data []byte) (Block, error) {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	sig, err := SignatureFromHex(w.Signature)
	if err != nil {
		return nil, fmt.Errorf("core: signature: %w", err)
	}
	workBytes, err := hex.DecodeString(w.Work)
	if err != nil || len(workBytes) != 8 {
		return nil, fmt.Errorf("core: bad work field")
	}
	var work Work
	for _, b := range workBytes {
		work = work<<8 | Work(b)
	}

	switch w.Type {
	case BlockTypeLegacyOpen.String():
		source, err := BlockHashFromHex(w.Source)
		if err != nil {
			return nil, err
		}
		rep, err := DecodeAccount(w.Representative)
		if err != nil {
			return nil, err
		}
		acc, err := DecodeAccount(w.Account)
		if err != nil {
			return nil, err
		}
		return &LegacyOpenBlock{Source: source, Representative: rep, Account: acc, Signature: sig, Work: work}, nil

	case BlockTypeLegacyReceive.String():
		previous, err := BlockHashFromHex(w.Previous)
		if err != nil {
			return nil, err
		}
		source, err := BlockHashFromHex(w.Source)
		if err != nil {
			return nil, err
		}
		return &LegacyReceiveBlock{Previous: previous, Source: source, Signature: sig, Work: work}, nil

	case BlockTypeLegacySend.String():
		previous, err := BlockHashFromHex(w.Previous)
		if err != nil {
			return nil, err
		}
		dest, err := DecodeAccount(w.Destination)
		if err != nil {
			return nil, err
		}
		balance, err := AmountFromDecimalString(w.Balance)
		if err != nil {
			return nil, err
		}
		return &LegacySendBlock{Previous: previous, Destination: dest, Balance: balance, Signature: sig, Work: work}, nil

	case BlockTypeLegacyChange.String():
		previous, err := BlockHashFromHex(w.Previous)
		if err != nil {
			return nil, err
		}
		rep, err := DecodeAccount(w.Representative)
		if err != nil {
			return nil, err
		}
		return &LegacyChangeBlock{Previous: previous, Representative: rep, Signature: sig, Work: work}, nil

	case BlockTypeState.String():
		account, err := DecodeAccount(w.Account)
		if err != nil {
			return nil, err
		}
		previous, err := BlockHashFromHex(w.Previous)
		if err != nil {
			return nil, err
		}
		rep, err := DecodeAccount(w.Representative)
		if err != nil {
			return nil, err
		}
		balance, err := AmountFromDecimalString(w.Balance)
		if err != nil {
			return nil, err
		}
		link, err := linkFromWire(w)
		if err != nil {
			return nil, err
		}
		return &StateBlock{Account: account, Previous: previous, Representative: rep, Balance: balance, Link: link, Signature: sig, Work: work}, nil

	default:
		return nil, fmt.Errorf("core: unknown block type %q", w.Type)
	}
}

func linkFromWire(w wireBlock) (Link, error) {
	if w.Link != "" {
		h, err := BlockHashFromHex(w.Link)
		if err != nil {
			return Link{}, err
		}
		return Link(h), nil
	}
	if w.LinkAsAccount != "" {
		a, err := DecodeAccount(w.LinkAsAccount)
		if err != nil {
			return Link{}, err
		}
		return LinkFromAccount(a), nil
	}
	return Link{}, nil
}

func sigBytes(s Signature) []byte { return s[:] }

// AmountFromDecimalString parses a base-10 string (as used on the wire
// and in the ledger's on-disk encoding) into an Amount.
func AmountFromDecimalString(s string) (Amount, error) {
	if s == "" {
		return ZeroAmount, nil
	}
	var a Amount
	if _, ok := a.v.SetString(s, 10); !ok {
		return ZeroAmount, fmt.Errorf("core: invalid amount %q", s)
	}
	return a, nil
}
