package config

import (
	"path/filepath"
	"testing"

	"github.com/tolelom/tolchain/core"
)

func sampleAccountString(seed byte) string {
	var a core.Account
	a[0] = seed
	return core.EncodeAccount(a)
}

func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Genesis.Alloc = []GenesisAllocation{
		{
			Account:        sampleAccountString(1),
			Representative: sampleAccountString(2),
			Balance:        "1000",
		},
	}
	return cfg
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsEmptyNodeID(t *testing.T) {
	cfg := validTestConfig()
	cfg.NodeID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty node_id")
	}
}

func TestValidateRejectsSamePorts(t *testing.T) {
	cfg := validTestConfig()
	cfg.P2PPort = cfg.RPCPort
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error when rpc_port equals p2p_port")
	}
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := validTestConfig()
	cfg.RPCPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range rpc_port")
	}
}

func TestValidateRejectsEmptyGenesisAlloc(t *testing.T) {
	cfg := validTestConfig()
	cfg.Genesis.Alloc = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty genesis.alloc")
	}
}

func TestValidateRejectsMalformedGenesisAccount(t *testing.T) {
	cfg := validTestConfig()
	cfg.Genesis.Alloc[0].Account = "not-an-account"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for malformed genesis account")
	}
}

func TestValidateRejectsPartialTLS(t *testing.T) {
	cfg := validTestConfig()
	cfg.TLS = &TLSConfig{CACert: "ca.pem"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for partially-specified TLS paths")
	}
}

func TestValidateAcceptsNilOrEmptyTLS(t *testing.T) {
	cfg := validTestConfig()
	cfg.TLS = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with nil TLS: %v", err)
	}
	cfg.TLS = &TLSConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with all-empty TLS paths: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := validTestConfig()
	cfg.NodeID = "node-roundtrip"
	path := filepath.Join(t.TempDir(), "config.json")

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.NodeID != cfg.NodeID {
		t.Fatalf("NodeID = %q, want %q", loaded.NodeID, cfg.NodeID)
	}
	if len(loaded.Genesis.Alloc) != 1 || loaded.Genesis.Alloc[0].Account != cfg.Genesis.Alloc[0].Account {
		t.Fatalf("genesis alloc did not round trip: %+v", loaded.Genesis.Alloc)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cfg := validTestConfig()
	cfg.NodeID = ""
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject an invalid config")
	}
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
