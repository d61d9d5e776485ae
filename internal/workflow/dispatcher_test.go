package workflow

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"savingsCircle/internal/model"
	"savingsCircle/internal/state"
	"savingsCircle/internal/wallet"
)

var alice = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

type fetchCall func(ctx context.Context) ([]model.CircleInfo, error)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	n     int
}

func (f *fakeFetcher) GetCircles(ctx context.Context, _ common.Address) ([]model.CircleInfo, error) {
	f.mu.Lock()
	idx := f.n
	f.n++
	var call fetchCall
	if idx < len(f.calls) {
		call = f.calls[idx]
	} else if len(f.calls) > 0 {
		call = f.calls[len(f.calls)-1]
	}
	f.mu.Unlock()
	if call == nil {
		return []model.CircleInfo{}, nil
	}
	return call(ctx)
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func circles(names ...string) []model.CircleInfo {
	out := make([]model.CircleInfo, 0, len(names))
	for _, name := range names {
		out = append(out, model.CircleInfo{Name: name, Members: map[string]string{}})
	}
	return out
}

func returns(names ...string) fetchCall {
	return func(context.Context) ([]model.CircleInfo, error) {
		return circles(names...), nil
	}
}

type fakeBuilder struct {
	mu         sync.Mutex
	contribute []*big.Int
	withdraw   []common.Hash
	added      []string
}

func (b *fakeBuilder) AddCircle(_ context.Context, _ common.Address, name string, _ []common.Address) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added = append(b.added, name)
	return "addCircle", nil
}

func (b *fakeBuilder) Contribute(_ context.Context, _ common.Address, value *big.Int, _ common.Hash) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contribute = append(b.contribute, value)
	return "contribute", nil
}

func (b *fakeBuilder) Withdraw(_ context.Context, _ common.Address, hash common.Hash) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.withdraw = append(b.withdraw, hash)
	return "withdraw", nil
}

type fakeSigner struct {
	rawTxs [][]byte
	block  chan struct{}
}

func (s *fakeSigner) WaitForSignedTxs(ctx context.Context, requestID string) (wallet.Response, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return wallet.Response{}, ctx.Err()
		}
	}
	return wallet.Response{RequestID: requestID, Status: "200", RawTxs: s.rawTxs}, nil
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent [][]byte
	fail map[string]error
}

func (b *fakeBroadcaster) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, raw)
	if err := b.fail[string(raw)]; err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}

func (b *fakeBroadcaster) WaitReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
}

func (b *fakeBroadcaster) sentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

type fakeBalances struct{}

func (fakeBalances) AccountBalances(_ context.Context, owner common.Address) (model.AccountBalances, error) {
	return model.AccountBalances{Address: owner.Hex(), Gold: "1", Dollar: "2"}, nil
}

func newTestDispatcher(t *testing.T, deps Deps) (*Dispatcher, *state.Store) {
	t.Helper()
	store := state.NewStore()
	d := NewDispatcher(context.Background(), deps, store, nil)
	t.Cleanup(d.Close)
	return d, store
}

func waitTask(t *testing.T, task *Task) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := task.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func TestLatestFetchWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{calls: []fetchCall{
		func(context.Context) ([]model.CircleInfo, error) {
			close(started)
			<-release
			return circles("stale"), nil
		},
		returns("fresh"),
	}}
	d, store := newTestDispatcher(t, Deps{Fetcher: fetcher})
	store.Apply(state.SetAccount{Address: alice.Hex()})

	first := d.Dispatch(FetchCircles{})
	<-started
	second := d.Dispatch(FetchCircles{})
	require.NoError(t, waitTask(t, second))
	require.Equal(t, circles("fresh"), store.Get().Circles)

	close(release)
	require.ErrorIs(t, waitTask(t, first), ErrSuperseded)
	require.Equal(t, circles("fresh"), store.Get().Circles)
	require.Equal(t, PhaseIdle, d.Phase(KindRefresh))
}

func TestLogoutResetsDuringFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{calls: []fetchCall{
		func(context.Context) ([]model.CircleInfo, error) {
			close(started)
			<-release
			return circles("late"), nil
		},
	}}
	d, store := newTestDispatcher(t, Deps{Fetcher: fetcher})

	task := d.Dispatch(SetAccount{Address: alice})
	require.Equal(t, alice.Hex(), store.Get().Account)
	<-started

	logout := d.Dispatch(Logout{})
	require.NoError(t, waitTask(t, logout))
	require.Equal(t, state.Initial(), store.Get())

	close(release)
	require.ErrorIs(t, waitTask(t, task), ErrSuperseded)
	require.Equal(t, state.Initial(), store.Get())
}

func TestBroadcastFailureLeavesStateUnchanged(t *testing.T) {
	fetcher := &fakeFetcher{calls: []fetchCall{returns("new")}}
	broadcaster := &fakeBroadcaster{fail: map[string]error{"bad": errors.New("nonce too low")}}
	d, store := newTestDispatcher(t, Deps{Fetcher: fetcher, Broadcaster: broadcaster})
	store.Apply(state.SetAccount{Address: alice.Hex()})
	store.Apply(state.FetchedCircles{Circles: circles("old")})
	before := store.Get()

	task := d.Dispatch(SendRawTxs{RawTxs: [][]byte{[]byte("good"), []byte("bad")}})
	err := waitTask(t, task)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nonce too low")
	require.Equal(t, 0, fetcher.count())
	require.Equal(t, before, store.Get())
}

func TestContributeRunsFullPipeline(t *testing.T) {
	fetcher := &fakeFetcher{calls: []fetchCall{returns("after")}}
	builder := &fakeBuilder{}
	signer := &fakeSigner{rawTxs: [][]byte{[]byte("approve"), []byte("contribute")}}
	broadcaster := &fakeBroadcaster{}
	d, store := newTestDispatcher(t, Deps{Fetcher: fetcher, Builder: builder, Signer: signer, Broadcaster: broadcaster})
	store.Apply(state.SetAccount{Address: alice.Hex()})

	task := d.Dispatch(Contribute{Amount: big.NewInt(7), CircleHash: common.HexToHash("0x01")})
	require.NoError(t, waitTask(t, task))

	require.Len(t, builder.contribute, 1)
	require.Equal(t, 0, builder.contribute[0].Cmp(big.NewInt(7)))
	require.Equal(t, 2, broadcaster.sentCount())
	require.Equal(t, circles("after"), store.Get().Circles)
	require.Nil(t, store.Get().Balances)
	require.Equal(t, PhaseIdle, d.Phase(KindContribute))
}

func TestWithdrawRefreshesBalances(t *testing.T) {
	fetcher := &fakeFetcher{calls: []fetchCall{returns("after")}}
	d, store := newTestDispatcher(t, Deps{
		Fetcher:     fetcher,
		Builder:     &fakeBuilder{},
		Signer:      &fakeSigner{rawTxs: [][]byte{[]byte("withdraw")}},
		Broadcaster: &fakeBroadcaster{},
		Balances:    fakeBalances{},
	})
	store.Apply(state.SetAccount{Address: alice.Hex()})

	require.NoError(t, waitTask(t, d.Dispatch(Withdraw{CircleHash: common.HexToHash("0x02")})))
	got := store.Get()
	require.NotNil(t, got.Balances)
	require.Equal(t, model.AccountBalances{Address: alice.Hex(), Gold: "1", Dollar: "2"}, *got.Balances)
}

func TestActionsRequireAccount(t *testing.T) {
	fetcher := &fakeFetcher{}
	d, _ := newTestDispatcher(t, Deps{Fetcher: fetcher, Builder: &fakeBuilder{}})

	require.ErrorIs(t, waitTask(t, d.Dispatch(FetchCircles{})), ErrNoAccount)
	require.ErrorIs(t, waitTask(t, d.Dispatch(AddCircle{Name: "x"})), ErrNoAccount)
	require.Equal(t, 0, fetcher.count())
}

func TestLogoutCancelsPendingSignature(t *testing.T) {
	signer := &fakeSigner{block: make(chan struct{})}
	broadcaster := &fakeBroadcaster{}
	d, store := newTestDispatcher(t, Deps{
		Fetcher:     &fakeFetcher{},
		Builder:     &fakeBuilder{},
		Signer:      signer,
		Broadcaster: broadcaster,
	})
	store.Apply(state.SetAccount{Address: alice.Hex()})

	task := d.Dispatch(AddCircle{Name: "friends"})
	require.Eventually(t, func() bool {
		return d.Phase(KindAddCircle) == PhaseAwaitingSignature
	}, 5*time.Second, 5*time.Millisecond)

	d.Dispatch(Logout{})
	require.ErrorIs(t, waitTask(t, task), ErrSuperseded)
	require.Equal(t, PhaseIdle, d.Phase(KindAddCircle))
	require.Equal(t, 0, broadcaster.sentCount())
}

func TestAccountSwitchDropsOtherAccountsRefresh(t *testing.T) {
	bob := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	signer := &fakeSigner{rawTxs: [][]byte{[]byte("approve"), []byte("contribute")}, block: make(chan struct{})}
	fetcher := &fakeFetcher{calls: []fetchCall{returns("bob"), returns("alice")}}
	d, store := newTestDispatcher(t, Deps{
		Fetcher:     fetcher,
		Builder:     &fakeBuilder{},
		Signer:      signer,
		Broadcaster: &fakeBroadcaster{},
	})
	store.Apply(state.SetAccount{Address: alice.Hex()})

	contribute := d.Dispatch(Contribute{Amount: big.NewInt(1), CircleHash: common.HexToHash("0x01")})
	require.Eventually(t, func() bool {
		return d.Phase(KindContribute) == PhaseAwaitingSignature
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, waitTask(t, d.Dispatch(SetAccount{Address: bob})))
	require.Equal(t, circles("bob"), store.Get().Circles)

	close(signer.block)
	require.ErrorIs(t, waitTask(t, contribute), ErrSuperseded)
	require.Equal(t, 2, fetcher.count())
	require.Equal(t, bob.Hex(), store.Get().Account)
	require.Equal(t, circles("bob"), store.Get().Circles)
}
