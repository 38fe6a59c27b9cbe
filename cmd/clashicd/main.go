package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Bitcoin-Clashic/clashicd/blockchain"
	"github.com/Bitcoin-Clashic/clashicd/chaincfg"
	"github.com/Bitcoin-Clashic/clashicd/config"
	"github.com/Bitcoin-Clashic/clashicd/database"
	"github.com/Bitcoin-Clashic/clashicd/rpcserver"
)

func parseLogLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logging
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
			defer file.Close()
		} else {
			logrus.Warnf("Failed to open log file %s: %v", cfg.LogFile, err)
		}
	}

	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logrus.SetLevel(parseLogLevel(cfg.LogLevel))

	logrus.WithFields(logrus.Fields{
		"network":                  cfg.Network,
		"rpc_addr":                 cfg.RPCAddr,
		"data_dir":                 cfg.DataDir,
		"connect_genesis_coinbase": cfg.ConnectGenesisCoinbase,
	}).Info("Starting Clashic Node")

	params := &chaincfg.MainNetParams

	// Open the chain database
	db, err := database.NewStorage(cfg.DataDir)
	if err != nil {
		logrus.Fatalf("Failed to open chain database: %v", err)
	}
	defer db.Close()

	// Initialize the chainstate.  The genesis initializer runs here, before
	// any RPC traffic is served, so every request observes a fully resolved
	// genesis connection state.
	chain, err := blockchain.New(params, db, cfg.ConnectGenesisCoinbase)
	if err != nil {
		logrus.Fatalf("Failed to initialize chainstate: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"height":            chain.Height(),
		"best_hash":         chain.BestHash(),
		"genesis_connected": chain.GenesisConnected(),
	}).Info("Chainstate ready")

	// Initialize and start the RPC server
	rpcServer := rpcserver.NewServer(chain, cfg.RPCAddr)
	go func() {
		if err := rpcServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("RPC server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logrus.Info("Shutting down")
	if err := rpcServer.Stop(); err != nil {
		logrus.Errorf("Failed to stop RPC server: %v", err)
	}
}
