package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the rndrd daemon configuration.
type Config struct {
	RPCAddress   string  `toml:"RPCAddress"`
	DataDir      string  `toml:"DataDir"`
	NetworkName  string  `toml:"NetworkName"`
	RPCAuthToken string  `toml:"RPCAuthToken"`
	Genesis      Genesis `toml:"Genesis"`
}

// Genesis seeds the singleton configuration slots on first boot. Addresses
// are 0x-prefixed hex. Once the state database exists these values are
// ignored; reassignment goes through the owner-only ledger operations.
type Genesis struct {
	TokenOwner       string `toml:"TokenOwner"`
	EscrowOwner      string `toml:"EscrowOwner"`
	BridgeManager    string `toml:"BridgeManager"`
	DisbursalAddress string `toml:"DisbursalAddress"`
	TokenAddress     string `toml:"TokenAddress"`
	EscrowAddress    string `toml:"EscrowAddress"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./rndrd-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "rndr-local"
	}
}

// Validate checks that every configured genesis address parses. Empty values
// are allowed; the daemon rejects missing required identities at seed time.
func (c *Config) Validate() error {
	fields := map[string]string{
		"Genesis.TokenOwner":       c.Genesis.TokenOwner,
		"Genesis.EscrowOwner":      c.Genesis.EscrowOwner,
		"Genesis.BridgeManager":    c.Genesis.BridgeManager,
		"Genesis.DisbursalAddress": c.Genesis.DisbursalAddress,
		"Genesis.TokenAddress":     c.Genesis.TokenAddress,
		"Genesis.EscrowAddress":    c.Genesis.EscrowAddress,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(trimmed), nil
}

// Address returns the parsed form of a genesis field, treating empty as the
// null address.
func Address(value string) common.Address {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}
	}
	return common.HexToAddress(trimmed)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
