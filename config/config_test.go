package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "127.0.0.1:8545" {
		t.Fatalf("RPCAddress = %q", cfg.RPCAddress)
	}
	if cfg.DataDir != "./rndrd-data" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if cfg.NetworkName != "rndr-local" {
		t.Fatalf("NetworkName = %q", cfg.NetworkName)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}

	// A second load reads the file just written.
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.RPCAddress != cfg.RPCAddress || reloaded.DataDir != cfg.DataDir {
		t.Fatalf("reloaded config differs: %+v", reloaded)
	}
}

func TestLoadParsesGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `RPCAddress = "0.0.0.0:9000"
DataDir = "/var/lib/rndrd"
RPCAuthToken = "secret"

[Genesis]
TokenOwner = "0x0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a"
EscrowOwner = "0x0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b"
TokenAddress = "0x7070707070707070707070707070707070707070"
EscrowAddress = "0x7171717171717171717171717171717171717171"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" {
		t.Fatalf("RPCAddress = %q", cfg.RPCAddress)
	}
	if cfg.NetworkName != "rndr-local" {
		t.Fatalf("NetworkName default not applied: %q", cfg.NetworkName)
	}
	owner := Address(cfg.Genesis.TokenOwner)
	if owner != common.HexToAddress("0x0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a") {
		t.Fatalf("TokenOwner = %s", owner.Hex())
	}
	if Address(cfg.Genesis.BridgeManager) != (common.Address{}) {
		t.Fatalf("unset genesis field should parse as null address")
	}
}

func TestLoadRejectsBadGenesisAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[Genesis]
TokenOwner = "not-an-address"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed genesis address")
	}
	if !strings.Contains(err.Error(), "Genesis.TokenOwner") {
		t.Fatalf("err = %v, want field name in message", err)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("  0x7070707070707070707070707070707070707070 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr != common.HexToAddress("0x7070707070707070707070707070707070707070") {
		t.Fatalf("addr = %s", addr.Hex())
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Fatal("expected error for short address")
	}
	if _, err := ParseAddress(""); err == nil {
		t.Fatal("expected error for empty address")
	}
}
