package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/app"
	"github.com/ternarybob/sellersync/internal/common"
)

var (
	// Persistent flags
	configFiles     []string
	credentialsFile string
	logLevel        string

	// Global state, set in PersistentPreRunE
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "sellersync",
	Short: "Log into seller profiles and collect their finance figures",
	Long: `sellersync drives isolated browser profiles from a local profile manager,
logs them into the seller centre, harvests each session and fetches on-hold,
payment and monthly settlement figures.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&credentialsFile, "credentials", "", "Credentials spreadsheet (.xlsx or .csv)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(profilesCmd, credentialsCmd, loginCmd, fetchCmd, historyCmd, serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration: defaults -> files -> environment -> flags
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("sellersync.toml"); err == nil {
			configFiles = append(configFiles, "sellersync.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return err
	}

	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	common.ApplyFlagOverrides(config, port, host, credentialsFile)
	if logLevel != "" {
		config.Logging.Level = logLevel
	}

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.InitLogger(config)
	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Str("control_plane", config.ControlPlane.BaseURL).
		Bool("credentials_file", config.Credentials.File != "").
		Msg("Configuration loaded")
	return nil
}

// newApp builds the application; callers must Close it
func newApp() (*app.App, error) {
	application, err := app.New(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
