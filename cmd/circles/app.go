package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"savingsCircle/internal/chain"
	"savingsCircle/internal/circle"
	"savingsCircle/internal/config"
	"savingsCircle/internal/contract"
	"savingsCircle/internal/session"
	"savingsCircle/internal/state"
	"savingsCircle/internal/storage"
	"savingsCircle/internal/storage/postgres"
	"savingsCircle/internal/wallet"
	"savingsCircle/internal/workflow"
)

const historyPostgres = "postgres"

// app holds every collaborator a command needs.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	out        io.Writer
	in         io.Reader
	client     *chain.Client
	pg         *postgres.Store
	store      *state.Store
	dispatcher *workflow.Dispatcher
	linker     *wallet.Linker
	server     *wallet.CallbackServer
	sessions   session.Store

	stopRecorder context.CancelFunc
	unsubscribe  func()
	recorderDone chan struct{}
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)

	a := &app{cfg: cfg, logger: logger, out: cmd.OutOrStdout(), in: cmd.InOrStdin(), store: state.NewStore()}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}

	logger.Debug("app ready",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.Contract),
		zap.String("fee_currency", cfg.FeeCurrency),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("history", cfg.History),
	)
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	feeCurrency, err := wallet.ParseFeeCurrency(cfg.FeeCurrency)
	if err != nil {
		return err
	}

	a.client, err = chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	chainID, err := a.client.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	a.logger.Debug("connected", zap.Stringer("chain_id", chainID))

	if cfg.PGDSN != "" {
		a.pg, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := a.pg.Migrate(ctx); err != nil {
			return err
		}
		a.sessions = &session.DBStore{Store: a.pg, Name: "circles"}
	} else {
		a.sessions = &session.FileStore{Path: cfg.SessionFile}
	}

	registry, err := contract.NewRegistry(common.HexToAddress(cfg.Registry), a.client)
	if err != nil {
		return err
	}
	binding, err := contract.NewSavingsCircle(common.HexToAddress(cfg.Contract), a.client)
	if err != nil {
		return err
	}

	opener := wallet.TerminalOpener{Out: a.out, QR: cfg.QR}
	a.linker = wallet.NewLinker(wallet.LinkerConfig{}, a.client, registry, opener, a.logger.Named("wallet"))
	a.server = wallet.NewCallbackServer(a.linker, wallet.DefaultCallbackPath, a.logger.Named("callback"))

	builder := circle.NewBuilder(circle.BuilderConfig{
		FeeCurrency: feeCurrency,
		Callback:    cfg.CallbackURL,
		DappName:    cfg.DappName,
	}, binding, registry, a.linker, a.logger.Named("builder"))

	a.dispatcher = workflow.NewDispatcher(ctx, workflow.Deps{
		Fetcher:     circle.NewFetcher(binding, a.logger.Named("fetcher")),
		Builder:     builder,
		Signer:      a.linker,
		Broadcaster: a.client,
		Balances:    circle.NewBalances(registry, circle.ContractBalancer(a.client)),
	}, a.store, a.logger.Named("workflow"))

	return a.startRecorder(ctx)
}

func (a *app) startRecorder(ctx context.Context) error {
	var sink storage.Storage
	switch a.cfg.History {
	case "":
		return nil
	case historyPostgres:
		if a.pg == nil {
			return fmt.Errorf("history=postgres requires pg-dsn")
		}
		sink = a.pg
	default:
		sink = storage.NewJsonlStorage(a.cfg.History)
	}

	recorder := storage.NewRecorder(sink, a.logger.Named("history"))
	updates, unsubscribe := a.store.Subscribe()
	recCtx, cancel := context.WithCancel(ctx)
	a.stopRecorder = cancel
	a.unsubscribe = unsubscribe
	a.recorderDone = make(chan struct{})
	go func() {
		defer close(a.recorderDone)
		recorder.Run(recCtx, updates)
	}()
	return nil
}

// flushHistory closes the subscription so the recorder drains the last state, then stops it.
func (a *app) flushHistory() {
	if a.stopRecorder == nil {
		return
	}
	a.unsubscribe()
	<-a.recorderDone
	a.stopRecorder()
	a.stopRecorder = nil
}

func (a *app) close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	a.flushHistory()
	if a.pg != nil {
		a.pg.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
	_ = a.logger.Sync()
}

// restoreSession puts the saved account into state without refreshing.
func (a *app) restoreSession(ctx context.Context) error {
	sess, ok, err := a.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return workflow.ErrNoAccount
	}
	a.store.Apply(state.SetAccount{Address: sess.Account})
	return nil
}

// run dispatches action and waits for it, serving wallet callbacks when signing is involved.
func (a *app) run(ctx context.Context, action workflow.Action, needsSignature bool) error {
	if !needsSignature {
		return a.dispatcher.Dispatch(action).Wait(ctx)
	}

	var (
		waitCtx context.Context
		cancel  context.CancelFunc
	)
	if a.cfg.SignatureTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, a.cfg.SignatureTimeout)
	} else {
		waitCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	g, gctx := errgroup.WithContext(waitCtx)
	serveCtx, stopServer := context.WithCancel(gctx)
	g.Go(func() error {
		return a.server.ListenAndServe(serveCtx, a.cfg.CallbackListen)
	})
	g.Go(func() error {
		defer stopServer()
		return a.dispatcher.Dispatch(action).Wait(gctx)
	})
	// The reader may block past the task; the process exits without it.
	go func() {
		if _, err := a.linker.DeliverPasted(a.in); err != nil {
			a.logger.Warn("stop reading pasted responses", zap.Error(err))
		}
	}()
	return g.Wait()
}

func (a *app) printState() error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(a.store.Get())
}
