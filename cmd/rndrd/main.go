package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"rndrledger/config"
	"rndrledger/core/events"
	"rndrledger/core/state"
	"rndrledger/native/escrow"
	"rndrledger/native/token"
	"rndrledger/observability/logging"
	"rndrledger/rpc"
	"rndrledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("RNDR_ENV"))
	logger := logging.Setup("rndrd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := seedGenesis(manager, cfg); err != nil {
		logger.Error("Failed to seed genesis configuration", slog.Any("error", err))
		os.Exit(1)
	}

	tokenAddr, err := manager.RenderTokenAddress()
	if err != nil {
		logger.Error("Failed to read token address", slog.Any("error", err))
		os.Exit(1)
	}
	escrowAddr, err := manager.EscrowContract()
	if err != nil {
		logger.Error("Failed to read escrow address", slog.Any("error", err))
		os.Exit(1)
	}

	log := events.NewLog()
	tokenLedger := token.NewLedger(manager, tokenAddr)
	tokenLedger.SetEmitter(log)
	escrowLedger := escrow.NewLedger(manager, escrowAddr)
	escrowLedger.SetEmitter(log)
	tokenLedger.SetEscrowFunder(escrowLedger)
	escrowLedger.SetTokenCreditor(tokenLedger)

	server := rpc.NewServer(tokenLedger, escrowLedger, log, cfg.RPCAuthToken)
	logger.Info("Starting JSON-RPC server",
		slog.String("address", cfg.RPCAddress),
		slog.String("network", cfg.NetworkName),
		slog.String("token", tokenAddr.Hex()),
		slog.String("escrow", escrowAddr.Hex()),
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedGenesis writes the singleton configuration slots on first boot. A
// database that already names a token owner is considered initialised and the
// config file's genesis section is ignored.
func seedGenesis(manager *state.Manager, cfg *config.Config) error {
	owner, err := manager.TokenOwner()
	if err != nil {
		return err
	}
	if owner != (common.Address{}) {
		return nil
	}

	tokenOwner := config.Address(cfg.Genesis.TokenOwner)
	escrowOwner := config.Address(cfg.Genesis.EscrowOwner)
	tokenAddr := config.Address(cfg.Genesis.TokenAddress)
	escrowAddr := config.Address(cfg.Genesis.EscrowAddress)
	if tokenOwner == (common.Address{}) || escrowOwner == (common.Address{}) {
		return fmt.Errorf("genesis requires TokenOwner and EscrowOwner")
	}
	if tokenAddr == (common.Address{}) || escrowAddr == (common.Address{}) {
		return fmt.Errorf("genesis requires TokenAddress and EscrowAddress")
	}

	if err := manager.SetTokenOwner(tokenOwner); err != nil {
		return err
	}
	if err := manager.SetEscrowOwner(escrowOwner); err != nil {
		return err
	}
	if err := manager.SetRenderTokenAddress(tokenAddr); err != nil {
		return err
	}
	if err := manager.SetEscrowContract(escrowAddr); err != nil {
		return err
	}
	if err := manager.SetBridgeManager(config.Address(cfg.Genesis.BridgeManager)); err != nil {
		return err
	}
	if err := manager.SetDisbursalAddress(config.Address(cfg.Genesis.DisbursalAddress)); err != nil {
		return err
	}
	return manager.DiscardSnapshot(0)
}
