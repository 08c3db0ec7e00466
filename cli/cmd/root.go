package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zkeai/DDPay-web/cli/pkg/output"
	"github.com/Zkeai/DDPay-web/common/config"
	"github.com/Zkeai/DDPay-web/common/logging"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string

	app *App
)

var rootCmd = &cobra.Command{
	Use:   "ddpay",
	Short: "DDPay admin console CLI",
	Long: `ddpay is the command-line client for the DDPay admin API.

Sign in, manage your profile, review login history, send authenticated
requests, and run a local gateway for the browser console.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer teardown()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.Error("%v", exitHint(err))
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.ddpay/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", output.FormatTable, "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	if !output.ValidFormat(outputFormat) {
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	a, err := NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	app = a
	return nil
}

func teardown() {
	if app != nil {
		app.Close()
		app = nil
	}
}
