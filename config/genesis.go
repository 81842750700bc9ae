package config

import (
	"fmt"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/ledger"
)

// GenesisLink is the synthetic source link every genesis open block
// cites. It is not a real block hash; genesis construction bypasses
// normal pending-receivable bookkeeping entirely since there is no
// prior sender to have created one.
func GenesisLink(chainID string) core.BlockHash {
	return core.BlockHash(crypto.Blake2b256([]byte("genesis"), []byte(chainID)))
}

// GenesisBlock is one account's opening state at chain start: an open
// StateBlock plus the balance and representative it establishes.
type GenesisBlock struct {
	Account        core.Account
	Representative core.Account
	Balance        core.Amount
	Block          *core.StateBlock
}

// BuildGenesisBlocks decodes cfg.Genesis.Alloc into one open StateBlock
// per account, unsigned (Work and Signature left zero) — genesis blocks
// are exempt from the signature and proof-of-work checks an ordinary
// block must pass, exactly as the single genesis block the teacher's
// PoA chain exempted via IsGenesisHash.
func BuildGenesisBlocks(cfg *Config) ([]GenesisBlock, error) {
	link := core.LinkFromBlockHash(GenesisLink(cfg.Genesis.ChainID))

	out := make([]GenesisBlock, 0, len(cfg.Genesis.Alloc))
	for i, alloc := range cfg.Genesis.Alloc {
		account, err := core.DecodeAccount(alloc.Account)
		if err != nil {
			return nil, fmt.Errorf("genesis.alloc[%d].account: %w", i, err)
		}
		rep, err := core.DecodeAccount(alloc.Representative)
		if err != nil {
			return nil, fmt.Errorf("genesis.alloc[%d].representative: %w", i, err)
		}
		balance, err := core.AmountFromDecimalString(alloc.Balance)
		if err != nil {
			return nil, fmt.Errorf("genesis.alloc[%d].balance: %w", i, err)
		}

		block := &core.StateBlock{
			Account:        account,
			Previous:       core.BlockHash{},
			Representative: rep,
			Balance:        balance,
			Link:           link,
		}
		out = append(out, GenesisBlock{
			Account:        account,
			Representative: rep,
			Balance:        balance,
			Block:          block,
		})
	}
	return out, nil
}

// IsGenesisHash reports whether h is one of this chain's genesis open
// block hashes.
func IsGenesisHash(cfg *Config, h core.BlockHash) (bool, error) {
	blocks, err := BuildGenesisBlocks(cfg)
	if err != nil {
		return false, err
	}
	for _, g := range blocks {
		if g.Block.Hash() == h {
			return true, nil
		}
	}
	return false, nil
}

// SeedGenesis writes every genesis account's open block, account info,
// confirmation height and representative weight directly into store,
// bypassing ledger.Validate and ledger.ProcessBlock entirely: there is
// no prior writer transaction, no pending receivable and no signer key
// for a synthetic genesis link, so genesis construction is a one-time
// bootstrap write rather than an ordinary processed block. Accounts whose
// info is already present are skipped, so calling it again on every
// start is a no-op for them.
func SeedGenesis(store *ledger.Store, weights *ledger.RepWeights, cfg *Config) error {
	blocks, err := BuildGenesisBlocks(cfg)
	if err != nil {
		return err
	}

	txn := store.TxBeginWrite()
	for _, g := range blocks {
		if _, err := txn.GetAccountInfo(g.Account); err == nil {
			continue // already seeded
		}

		name := core.EncodeAccount(g.Account)

		sideband := core.Sideband{
			Height:    1,
			Timestamp: 0,
			Account:   g.Account,
			Balance:   g.Balance,
			Details: core.BlockDetails{
				Epoch:     core.Epoch0,
				IsReceive: true,
			},
			SourceEpoch: core.Epoch0,
		}
		if err := txn.PutBlock(core.StoredBlock{Block: g.Block, Sideband: sideband}); err != nil {
			return fmt.Errorf("genesis: put block for %s: %w", name, err)
		}

		hash := g.Block.Hash()
		if err := txn.PutAccountInfo(g.Account, core.AccountInfo{
			Head:           hash,
			Representative: g.Representative,
			OpenBlock:      hash,
			Balance:        g.Balance,
			Modified:       0,
			BlockCount:     1,
			Epoch:          core.Epoch0,
		}); err != nil {
			return fmt.Errorf("genesis: put account info for %s: %w", name, err)
		}

		if err := txn.PutConfirmationHeight(g.Account, core.ConfirmationHeightInfo{
			Height:   1,
			Frontier: hash,
		}); err != nil {
			return fmt.Errorf("genesis: put confirmation height for %s: %w", name, err)
		}

		if err := weights.AddDual(txn, core.Account{}, g.Representative, g.Balance); err != nil {
			return fmt.Errorf("genesis: apply weight for %s: %w", name, err)
		}
	}
	return txn.Commit()
}
