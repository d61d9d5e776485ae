package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "circles",
		Short:        "Savings circle client",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "Celo RPC URL")
	flags.String("contract", "", "savings circle contract address")
	flags.String("registry", "", "Celo registry address")
	flags.String("fee-currency", "cUSD", "fee currency (cUSD or cGLD)")
	flags.String("dapp-name", "Savings Circle", "name shown by the wallet")
	flags.String("callback-url", "http://127.0.0.1:8787/callback", "URL the wallet redirects to after signing")
	flags.String("callback-listen", "127.0.0.1:8787", "listen address for the callback server")
	flags.String("session-file", "./data/session.json", "file holding the logged-in account")
	flags.String("pg-dsn", "", "Postgres DSN for sessions and history")
	flags.String("history", "", "snapshot history: a JSONL path, or \"postgres\"")
	flags.Bool("qr", true, "print a QR code for wallet links")
	flags.Duration("signature-timeout", 0, "how long to wait for the wallet, 0 waits until interrupted")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "login <address>",
			Short: "Set the active account and load its circles",
			Args:  cobra.ExactArgs(1),
			RunE:  runLogin,
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the active account",
			Args:  cobra.NoArgs,
			RunE:  runLogout,
		},
		&cobra.Command{
			Use:   "circles",
			Short: "Show the active account's circles",
			Args:  cobra.NoArgs,
			RunE:  runCircles,
		},
		newCreateCmd(),
		newContributeCmd(),
		newWithdrawCmd(),
		&cobra.Command{
			Use:   "broadcast <raw-tx-hex>...",
			Short: "Broadcast signed transactions and refresh circles",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runBroadcast,
		},
		newServeCmd(),
		&cobra.Command{
			Use:   "history",
			Short: "Print recorded circle snapshots from the JSONL history file",
			Args:  cobra.NoArgs,
			RunE:  runHistory,
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a circle",
		Args:  cobra.NoArgs,
		RunE:  runCreate,
	}
	cmd.Flags().String("name", "", "circle name")
	cmd.Flags().StringSlice("members", nil, "member addresses (comma-separated)")
	return cmd
}

func newContributeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contribute",
		Short: "Contribute to a circle",
		Args:  cobra.NoArgs,
		RunE:  runContribute,
	}
	cmd.Flags().String("circle", "", "circle hash")
	cmd.Flags().String("amount", "", "amount in tokens, e.g. 2.5")
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw the pooled funds of a circle",
		Args:  cobra.NoArgs,
		RunE:  runWithdraw,
	}
	cmd.Flags().String("circle", "", "circle hash")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the callback server and refresh circles periodically",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Duration("interval", time.Minute, "refresh interval")
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
