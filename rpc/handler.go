package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/indexer"
	"github.com/tolelom/tolchain/ledger"
)

// Processor hands a newly-received block to the ledger through the
// write queue. Normally backed by a type in cmd/node that serializes
// access via ledger.WriteQueue before calling ledger.ProcessBlock.
type Processor interface {
	ProcessBlock(block core.Block) error
}

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	store     *ledger.Store
	weights   *ledger.RepWeights
	processor Processor
	indexer   *indexer.Indexer
	chainID   string
}

// NewHandler creates an RPC Handler.
func NewHandler(store *ledger.Store, weights *ledger.RepWeights, processor Processor, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{store: store, weights: weights, processor: processor, indexer: idx, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "account_info":
		return h.accountInfo(req)

	case "block_info":
		return h.blockInfo(req)

	case "pending":
		return h.pending(req)

	case "confirmation_height":
		return h.confirmationHeight(req)

	case "representative_weight":
		return h.representativeWeight(req)

	case "delegators":
		return h.delegators(req)

	case "process":
		return h.process(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) accountInfo(req Request) Response {
	var params struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	account, err := core.DecodeAccount(params.Account)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "account: "+err.Error())
	}
	txn := h.store.TxBeginRead()
	info, err := txn.GetAccountInfo(account)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"account":        params.Account,
		"frontier":       info.Head.Hex(),
		"open_block":     info.OpenBlock.Hex(),
		"representative": core.EncodeAccount(info.Representative),
		"balance":        info.Balance.String(),
		"modified":       info.Modified,
		"block_count":    info.BlockCount,
		"epoch":          info.Epoch.String(),
	})
}

func (h *Handler) blockInfo(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	hash, err := core.BlockHashFromHex(params.Hash)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "hash: "+err.Error())
	}
	txn := h.store.TxBeginRead()
	stored, err := txn.GetBlock(hash)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	blockJSON, err := core.MarshalBlockJSON(stored.Block)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"block":     json.RawMessage(blockJSON),
		"height":    stored.Sideband.Height,
		"account":   core.EncodeAccount(stored.Sideband.Account),
		"balance":   stored.Sideband.Balance.String(),
		"successor": stored.Sideband.Successor.Hex(),
	})
}

func (h *Handler) pending(req Request) Response {
	var params struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	account, err := core.DecodeAccount(params.Account)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "account: "+err.Error())
	}
	txn := h.store.TxBeginRead()
	keys, infos, err := txn.PendingForAccount(account)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	out := make([]map[string]any, 0, len(keys))
	for i, k := range keys {
		out = append(out, map[string]any{
			"hash":   k.Hash.Hex(),
			"source": core.EncodeAccount(infos[i].Source),
			"amount": infos[i].Amount.String(),
		})
	}
	return okResponse(req.ID, out)
}

func (h *Handler) confirmationHeight(req Request) Response {
	var params struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	account, err := core.DecodeAccount(params.Account)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "account: "+err.Error())
	}
	txn := h.store.TxBeginRead()
	info, err := txn.GetConfirmationHeight(account)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"height":   info.Height,
		"frontier": info.Frontier.Hex(),
	})
}

func (h *Handler) representativeWeight(req Request) Response {
	var params struct {
		Representative string `json:"representative"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	rep, err := core.DecodeAccount(params.Representative)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "representative: "+err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"representative": params.Representative,
		"weight":         h.weights.Weight(rep).String(),
	})
}

func (h *Handler) delegators(req Request) Response {
	var params struct {
		Representative string `json:"representative"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Representative == "" {
		return errResponse(req.ID, CodeInvalidParams, "representative is required")
	}
	ids, err := h.indexer.GetDelegators(params.Representative)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) process(req Request) Response {
	var params struct {
		Block json.RawMessage `json:"block"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	block, err := core.UnmarshalBlockJSON(params.Block)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "block: "+err.Error())
	}
	if err := h.processor.ProcessBlock(block); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	hash := block.Hash()
	return okResponse(req.ID, map[string]string{"hash": hash.Hex()})
}
