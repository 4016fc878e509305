package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sshdeck/sshdeck/internal/audit"
	"github.com/sshdeck/sshdeck/internal/commands"
	"github.com/sshdeck/sshdeck/internal/config"
	"github.com/sshdeck/sshdeck/internal/keygen"
	"github.com/sshdeck/sshdeck/internal/server"
	"github.com/sshdeck/sshdeck/internal/storage/sqlite"
	"github.com/sshdeck/sshdeck/pkg/logger"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default is $HOME/.config/sshdeck/config.yaml)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	jwtSecret := flag.String("jwt-secret", "", "JWT secret (required)")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "lifetime of the startup token")
	flag.Parse()

	if *jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "Error: --jwt-secret is required")
		flag.Usage()
		os.Exit(1)
	}

	manager, err := config.NewManager(*cfgFile)
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := manager.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := manager.Get()
	logger.Setup(cfg.LogFormat, cfg.LogLevel)

	listenAddr := cfg.ListenAddr
	if *addr != "" {
		listenAddr = *addr
	}

	if err := os.MkdirAll(manager.DataDir(), 0700); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	store, err := sqlite.NewStore(manager.DBPath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	var opts []keygen.Option
	if cfg.KeygenBinary != "" {
		opts = append(opts, keygen.WithBinary(cfg.KeygenBinary))
	}
	gen, err := keygen.NewSSHKeygen(cfg.SSHDir, opts...)
	if err != nil {
		log.Fatalf("Failed to set up key generator: %v", err)
	}

	auditLogger, err := audit.NewLogger(manager.DataDir(), cfg.AuditMaxEntries)
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}

	srv := server.New([]byte(*jwtSecret), commands.New(store, gen, auditLogger))

	token, err := srv.IssueToken(*tokenTTL)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Printf("Bearer token (valid %s): %s\n", *tokenTTL, token)

	logger.Info("starting sshdeck server", "addr", listenAddr)
	if err := srv.Run(listenAddr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
