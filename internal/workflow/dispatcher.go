package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"savingsCircle/internal/model"
	"savingsCircle/internal/state"
	"savingsCircle/internal/wallet"
)

var (
	// ErrNoAccount is returned by actions that need a logged-in account.
	ErrNoAccount = errors.New("no account set")
	// ErrSuperseded marks a task replaced by a newer one of the same kind, or dropped by logout.
	ErrSuperseded = errors.New("task superseded")
)

type CircleFetcher interface {
	GetCircles(ctx context.Context, address common.Address) ([]model.CircleInfo, error)
}

type TxBuilder interface {
	AddCircle(ctx context.Context, from common.Address, name string, members []common.Address) (string, error)
	Contribute(ctx context.Context, from common.Address, value *big.Int, circleHash common.Hash) (string, error)
	Withdraw(ctx context.Context, from common.Address, circleHash common.Hash) (string, error)
}

type SignatureWaiter interface {
	WaitForSignedTxs(ctx context.Context, requestID string) (wallet.Response, error)
}

type Broadcaster interface {
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type BalanceReader interface {
	AccountBalances(ctx context.Context, owner common.Address) (model.AccountBalances, error)
}

// Deps are the collaborators tasks run against. Balances may be nil.
type Deps struct {
	Fetcher     CircleFetcher
	Builder     TxBuilder
	Signer      SignatureWaiter
	Broadcaster Broadcaster
	Balances    BalanceReader
}

type slot struct {
	task   *Task
	cancel context.CancelFunc
}

// Dispatcher runs actions as tasks. Each kind has a single in-flight slot and the
// latest dispatch wins: the previous task is cancelled and its results are dropped.
type Dispatcher struct {
	deps   Deps
	store  *state.Store
	logger *zap.Logger
	base   context.Context
	stop   context.CancelFunc

	mu          sync.Mutex
	slots       map[Kind]*slot
	generations map[Kind]uint64
	phases      map[Kind]Phase
	wg          sync.WaitGroup
}

func NewDispatcher(ctx context.Context, deps Deps, store *state.Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(ctx)
	return &Dispatcher{
		deps:        deps,
		store:       store,
		logger:      logger,
		base:        base,
		stop:        stop,
		slots:       make(map[Kind]*slot),
		generations: make(map[Kind]uint64),
		phases:      make(map[Kind]Phase),
	}
}

// Dispatch starts action and returns its task. Logout completes before Dispatch returns.
func (d *Dispatcher) Dispatch(action Action) *Task {
	kind := action.Kind()
	task := newTask(kind)

	if kind == KindLogout {
		d.logout()
		d.logger.Info("logged out", zap.String("task_id", task.ID.String()))
		task.finish(nil)
		return task
	}

	ctx, cancel := context.WithCancel(d.base)

	d.mu.Lock()
	if prev := d.slots[kind]; prev != nil {
		prev.cancel()
		d.logger.Debug("task superseded",
			zap.String("kind", string(kind)),
			zap.String("task_id", prev.task.ID.String()),
			zap.String("by", task.ID.String()),
		)
	}
	d.generations[kind]++
	gen := d.generations[kind]
	d.slots[kind] = &slot{task: task, cancel: cancel}
	if set, ok := action.(SetAccount); ok {
		d.store.Apply(state.SetAccount{Address: set.Address.Hex()})
	}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		err := d.execute(ctx, task, gen, action)
		d.finish(task, gen, err)
	}()
	return task
}

// Phase reports the phase of the task currently holding kind's slot.
func (d *Dispatcher) Phase(kind Kind) Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phases[kind]
}

// Close cancels every task and waits for them to return.
func (d *Dispatcher) Close() {
	d.stop()
	d.wg.Wait()
}

func (d *Dispatcher) logout() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for kind, s := range d.slots {
		s.cancel()
		delete(d.slots, kind)
	}
	for _, kind := range allKinds {
		d.generations[kind]++
		d.phases[kind] = PhaseIdle
	}
	d.store.Apply(state.Reset{})
}

func (d *Dispatcher) finish(task *Task, gen uint64, err error) {
	d.mu.Lock()
	current := d.generations[task.Kind] == gen
	if current {
		d.phases[task.Kind] = PhaseIdle
		delete(d.slots, task.Kind)
	}
	d.mu.Unlock()

	if !current {
		err = ErrSuperseded
	}
	fields := []zap.Field{zap.String("kind", string(task.Kind)), zap.String("task_id", task.ID.String())}
	switch {
	case err == nil:
		d.logger.Info("task done", fields...)
	case errors.Is(err, ErrSuperseded):
		d.logger.Debug("task dropped", fields...)
	default:
		d.logger.Warn("task failed", append(fields, zap.Error(err))...)
	}
	task.finish(err)
}

// setPhase records a phase change unless the task has been superseded.
func (d *Dispatcher) setPhase(task *Task, gen uint64, phase Phase) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generations[task.Kind] != gen {
		return ErrSuperseded
	}
	d.phases[task.Kind] = phase
	d.logger.Debug("task phase",
		zap.String("kind", string(task.Kind)),
		zap.String("task_id", task.ID.String()),
		zap.Stringer("phase", phase),
	)
	return nil
}

// commit applies ev only while gen is still current for the task's kind and the
// account the task worked for is still the active one.
func (d *Dispatcher) commit(task *Task, gen uint64, account common.Address, ev state.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generations[task.Kind] != gen {
		return ErrSuperseded
	}
	if active := d.store.Get().Account; !common.IsHexAddress(active) || common.HexToAddress(active) != account {
		return ErrSuperseded
	}
	d.store.Apply(ev)
	return nil
}

func (d *Dispatcher) account() (common.Address, error) {
	acct := d.store.Get().Account
	if acct == "" || !common.IsHexAddress(acct) {
		return common.Address{}, ErrNoAccount
	}
	return common.HexToAddress(acct), nil
}

func (d *Dispatcher) execute(ctx context.Context, task *Task, gen uint64, action Action) error {
	switch a := action.(type) {
	case SetAccount:
		return d.refresh(ctx, task, gen, a.Address, false)
	case FetchCircles:
		addr, err := d.account()
		if err != nil {
			return err
		}
		return d.refresh(ctx, task, gen, addr, false)
	case SendRawTxs:
		addr, err := d.account()
		if err != nil {
			return err
		}
		if err := d.broadcast(ctx, task, gen, a.RawTxs); err != nil {
			return err
		}
		return d.refresh(ctx, task, gen, addr, false)
	case AddCircle:
		return d.signAndSend(ctx, task, gen, false, func(from common.Address) (string, error) {
			return d.deps.Builder.AddCircle(ctx, from, a.Name, a.Members)
		})
	case Contribute:
		return d.signAndSend(ctx, task, gen, false, func(from common.Address) (string, error) {
			return d.deps.Builder.Contribute(ctx, from, a.Amount, a.CircleHash)
		})
	case Withdraw:
		return d.signAndSend(ctx, task, gen, true, func(from common.Address) (string, error) {
			return d.deps.Builder.Withdraw(ctx, from, a.CircleHash)
		})
	default:
		return fmt.Errorf("unsupported action %T", action)
	}
}

// signAndSend builds a request, waits for the wallet, broadcasts the signed txs and refreshes.
func (d *Dispatcher) signAndSend(ctx context.Context, task *Task, gen uint64, withBalances bool, build func(common.Address) (string, error)) error {
	from, err := d.account()
	if err != nil {
		return err
	}
	if err := d.setPhase(task, gen, PhaseBuilding); err != nil {
		return err
	}
	requestID, err := build(from)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if err := d.setPhase(task, gen, PhaseAwaitingSignature); err != nil {
		return err
	}
	resp, err := d.deps.Signer.WaitForSignedTxs(ctx, requestID)
	if err != nil {
		return fmt.Errorf("wait for signature: %w", err)
	}
	if err := d.broadcast(ctx, task, gen, resp.RawTxs); err != nil {
		return err
	}
	return d.refresh(ctx, task, gen, from, withBalances)
}

// broadcast sends every raw tx concurrently and waits for all receipts.
func (d *Dispatcher) broadcast(ctx context.Context, task *Task, gen uint64, rawTxs [][]byte) error {
	if err := d.setPhase(task, gen, PhaseBroadcasting); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range rawTxs {
		i, raw := i, raw
		g.Go(func() error {
			hash, err := d.deps.Broadcaster.SendRawTransaction(gctx, raw)
			if err != nil {
				return fmt.Errorf("send tx %d: %w", i, err)
			}
			receipt, err := d.deps.Broadcaster.WaitReceipt(gctx, hash)
			if err != nil {
				return fmt.Errorf("wait tx %s: %w", hash.Hex(), err)
			}
			d.logger.Info("tx mined",
				zap.String("task_id", task.ID.String()),
				zap.String("tx_hash", hash.Hex()),
				zap.Stringer("block", receipt.BlockNumber),
			)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) refresh(ctx context.Context, task *Task, gen uint64, addr common.Address, withBalances bool) error {
	if err := d.setPhase(task, gen, PhaseRefreshing); err != nil {
		return err
	}
	circles, err := d.deps.Fetcher.GetCircles(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch circles: %w", err)
	}
	if err := d.commit(task, gen, addr, state.FetchedCircles{Circles: circles}); err != nil {
		return err
	}
	if !withBalances || d.deps.Balances == nil {
		return nil
	}
	balances, err := d.deps.Balances.AccountBalances(ctx, addr)
	if err != nil {
		return fmt.Errorf("refresh balances: %w", err)
	}
	return d.commit(task, gen, addr, state.BalancesRefreshed{Balances: balances})
}
