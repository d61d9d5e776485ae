package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"savingsCircle/internal/amount"
	"savingsCircle/internal/circle"
	"savingsCircle/internal/config"
	"savingsCircle/internal/storage"
	"savingsCircle/internal/workflow"
)

// withApp builds the app under a signal-aware context and tears it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func runLogin(cmd *cobra.Command, args []string) error {
	addr, err := circle.ParseAddress(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.run(ctx, workflow.SetAccount{Address: addr}, false); err != nil {
			return err
		}
		if err := a.sessions.Save(ctx, addr.Hex()); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		a.logger.Info("logged in", zap.String("account", addr.Hex()))
		return a.printState()
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.run(ctx, workflow.Logout{}, false); err != nil {
			return err
		}
		if err := a.sessions.Clear(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		return a.printState()
	})
}

func runCircles(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.restoreSession(ctx); err != nil {
			return err
		}
		if err := a.run(ctx, workflow.FetchCircles{}, false); err != nil {
			return err
		}
		return a.printState()
	})
}

func runCreate(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		return fmt.Errorf("name is required")
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		// --members, CIRCLES_MEMBERS or a members list in the config file.
		members, err := circle.ParseAddresses(a.cfg.Members)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return fmt.Errorf("at least one member is required")
		}
		if err := a.restoreSession(ctx); err != nil {
			return err
		}
		if err := a.run(ctx, workflow.AddCircle{Name: name, Members: members}, true); err != nil {
			return err
		}
		return a.printState()
	})
}

func runContribute(cmd *cobra.Command, _ []string) error {
	rawHash, _ := cmd.Flags().GetString("circle")
	rawAmount, _ := cmd.Flags().GetString("amount")
	hash, err := circle.ParseCircleHash(rawHash)
	if err != nil {
		return err
	}
	value, err := amount.ParseDecimal(rawAmount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.restoreSession(ctx); err != nil {
			return err
		}
		if err := a.run(ctx, workflow.Contribute{Amount: value, CircleHash: hash}, true); err != nil {
			return err
		}
		return a.printState()
	})
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	rawHash, _ := cmd.Flags().GetString("circle")
	hash, err := circle.ParseCircleHash(rawHash)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.restoreSession(ctx); err != nil {
			return err
		}
		if err := a.run(ctx, workflow.Withdraw{CircleHash: hash}, true); err != nil {
			return err
		}
		return a.printState()
	})
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	rawTxs := make([][]byte, 0, len(args))
	for _, arg := range args {
		raw, err := hexutil.Decode(arg)
		if err != nil {
			return fmt.Errorf("decode raw tx %q: %w", arg, err)
		}
		rawTxs = append(rawTxs, raw)
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.restoreSession(ctx); err != nil {
			return err
		}
		if err := a.run(ctx, workflow.SendRawTxs{RawTxs: rawTxs}, false); err != nil {
			return err
		}
		return a.printState()
	})
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.History == "" || cfg.History == historyPostgres {
		return fmt.Errorf("history must be a JSONL path, got %q", cfg.History)
	}

	snapshots, err := storage.NewJsonlStorage(cfg.History).ReadSnapshots()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, snap := range snapshots {
		if err := enc.Encode(snap); err != nil {
			return err
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.restoreSession(ctx); err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- a.server.ListenAndServe(ctx, a.cfg.CallbackListen)
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		a.dispatcher.Dispatch(workflow.FetchCircles{})
		for {
			select {
			case <-ctx.Done():
				return <-errCh
			case err := <-errCh:
				return err
			case <-ticker.C:
				a.dispatcher.Dispatch(workflow.FetchCircles{})
			}
		}
	})
}
