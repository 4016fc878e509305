package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sshdeck/sshdeck/internal/audit"
	"github.com/sshdeck/sshdeck/internal/commands"
	"github.com/sshdeck/sshdeck/internal/config"
	"github.com/sshdeck/sshdeck/internal/keygen"
	"github.com/sshdeck/sshdeck/internal/storage/sqlite"
	"github.com/sshdeck/sshdeck/pkg/logger"
)

var (
	cfgFile       string
	configManager *config.Manager
	debugMode     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sshdeck",
	Short: "sshdeck - manage SSH keys and server connections",
	Long: `sshdeck is the backend of the sshdeck desktop app. It keeps SSH key
and server connection records in a local SQLite database.

This CLI exposes the same commands the desktop UI uses:
  - register, generate, list, and delete SSH keys
  - mark one key as the default for new connections
  - manage server connection records
  - read and change application settings`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		PrintError(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/sshdeck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode with detailed error messages")
}

// initConfig reads in the config file
func initConfig() {
	var err error
	configManager, err = config.NewManager(cfgFile)
	if err != nil {
		PrintError(fmt.Errorf("error initializing config: %w", err))
		os.Exit(1)
	}

	if err := configManager.Load(); err != nil {
		PrintError(fmt.Errorf("error loading config: %w", err))
		os.Exit(1)
	}

	cfg := configManager.Get()
	logger.Setup(cfg.LogFormat, cfg.LogLevel)
}

// IsDebug returns true if debug mode is enabled
func IsDebug() bool {
	return debugMode
}

// withCommands opens storage, runs fn against the command set, and
// closes storage again. Each CLI invocation gets its own short-lived
// handle, matching how the desktop app invokes commands.
func withCommands(fn func(cmds *commands.Commands) error) error {
	cfg := configManager.Get()

	if err := os.MkdirAll(configManager.DataDir(), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := sqlite.NewStore(configManager.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	sshDir, err := configManager.SSHDir()
	if err != nil {
		return err
	}
	var opts []keygen.Option
	if cfg.KeygenBinary != "" {
		opts = append(opts, keygen.WithBinary(cfg.KeygenBinary))
	}
	gen, err := keygen.NewSSHKeygen(sshDir, opts...)
	if err != nil {
		return err
	}

	auditLogger, err := audit.NewLogger(configManager.DataDir(), cfg.AuditMaxEntries)
	if err != nil {
		return err
	}

	return fn(commands.New(store, gen, auditLogger))
}
