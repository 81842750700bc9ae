package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tolelom/tolchain/core"
)

// TLSConfig holds paths to the PEM files needed for mTLS.
// When nil or all paths empty, the node falls back to plain TCP.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // node certificate PEM path
	NodeKey  string `json:"node_key"`  // node private key PEM path
}

// SeedPeer identifies a remote node to connect to on startup.
type SeedPeer struct {
	ID   string `json:"id"`   // remote node ID
	Addr string `json:"addr"` // host:port
}

// GenesisAllocation credits one account with an opening balance,
// delegated to a representative, at node-zero.
type GenesisAllocation struct {
	Account        string `json:"account"`        // tol_-prefixed account string
	Representative string `json:"representative"` // tol_-prefixed account string
	Balance        string `json:"balance"`         // decimal raw units
}

// GenesisConfig describes the chain's initial ledger state: one open
// block per allocation, all citing GenesisLink(chain_id) as their link
// (see genesis.go).
type GenesisConfig struct {
	ChainID string              `json:"chain_id"`
	Alloc   []GenesisAllocation `json:"alloc"`
}

// PriorityConfig is the priority election scheduler's config section. It
// is parsed but not read: the scheduler always uses its built-in bucket
// edges.
type PriorityConfig struct {
	Buckets int `json:"buckets"`
}

// OptimisticConfig is the optimistic election scheduler's config section.
// It is parsed but not read: the scheduler always uses its built-in gap
// threshold.
type OptimisticConfig struct {
	GapThreshold uint64 `json:"gap_threshold"`
}

// HintedConfig is the hinted election scheduler's config section. It is
// parsed but not read: the scheduler always uses its built-in ratio.
type HintedConfig struct {
	HintedRatio float64 `json:"hinted_ratio"`
}

// MessageProcessorConfig sizes the inbound P2P worker pool.
type MessageProcessorConfig struct {
	Threads  int `json:"threads"`   // 0 → DefaultMessageProcessorThreads
	MaxQueue int `json:"max_queue"` // 0 → DefaultMessageProcessorMaxQueue
}

// TxnTrackingConfig is the long-running-transaction tracking config
// section. It is parsed but not read: no component logs transaction
// durations.
type TxnTrackingConfig struct {
	ThresholdMillis int64 `json:"threshold_ms"`
}

const (
	DefaultMessageProcessorThreads  = 4
	DefaultMessageProcessorMaxQueue = 4096
	DefaultWeightPeriod             = "15m"
	DefaultMaxBlocks                = 32768
)

// Config holds all node configuration.
type Config struct {
	NodeID  string `json:"node_id"`
	DataDir string `json:"data_dir"`
	RPCPort int    `json:"rpc_port"`
	P2PPort int    `json:"p2p_port"`

	Genesis GenesisConfig `json:"genesis"`

	OnlineWeightMinimum string `json:"online_weight_minimum"` // decimal raw units
	WeightPeriod         string `json:"weight_period"`         // e.g. "15m", how often OnlineReps.Sample runs
	MaxBlocks            int    `json:"max_blocks"`            // cementer batch cap per Confirm call; 0 means no cap

	Priority         PriorityConfig         `json:"priority"`
	Optimistic       OptimisticConfig       `json:"optimistic"`
	Hinted           HintedConfig           `json:"hinted"`
	MessageProcessor MessageProcessorConfig `json:"message_processor"`
	TxnTracking      TxnTrackingConfig      `json:"txn_tracking"`

	SeedPeers    []SeedPeer `json:"seed_peers,omitempty"`
	TLS          *TLSConfig `json:"tls,omitempty"`
	RPCAuthToken string     `json:"rpc_auth_token,omitempty"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:               "node0",
		DataDir:              "./data",
		RPCPort:              8545,
		P2PPort:              30303,
		OnlineWeightMinimum:  "0",
		WeightPeriod:         DefaultWeightPeriod,
		MaxBlocks:            DefaultMaxBlocks,
		MessageProcessor:     MessageProcessorConfig{Threads: DefaultMessageProcessorThreads, MaxQueue: DefaultMessageProcessorMaxQueue},
		Genesis: GenesisConfig{
			ChainID: "tolchain-dev",
		},
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Genesis.ChainID == "" {
		return fmt.Errorf("genesis.chain_id must not be empty")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port must be 1-65535, got %d", c.RPCPort)
	}
	if c.P2PPort <= 0 || c.P2PPort > 65535 {
		return fmt.Errorf("p2p_port must be 1-65535, got %d", c.P2PPort)
	}
	if c.RPCPort == c.P2PPort {
		return fmt.Errorf("rpc_port and p2p_port must not be the same (%d)", c.RPCPort)
	}
	if len(c.Genesis.Alloc) == 0 {
		return fmt.Errorf("genesis.alloc must not be empty")
	}
	for i, a := range c.Genesis.Alloc {
		if _, err := core.DecodeAccount(a.Account); err != nil {
			return fmt.Errorf("genesis.alloc[%d].account: %w", i, err)
		}
		if _, err := core.DecodeAccount(a.Representative); err != nil {
			return fmt.Errorf("genesis.alloc[%d].representative: %w", i, err)
		}
		if _, err := core.AmountFromDecimalString(a.Balance); err != nil {
			return fmt.Errorf("genesis.alloc[%d].balance: %w", i, err)
		}
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
