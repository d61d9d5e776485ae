package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"savingsCircle/internal/contract"
)

var (
	// ErrRequestSuperseded is returned to a waiter replaced by a newer wait on the same request id.
	ErrRequestSuperseded = errors.New("sign request superseded")
	// ErrRequestRejected is returned when the wallet answers with a non-success status.
	ErrRequestRejected = errors.New("sign request rejected")
)

// FeeCurrency designates the token used to pay network fees.
type FeeCurrency string

const (
	FeeCurrencyDollar FeeCurrency = "cUSD"
	FeeCurrencyGold   FeeCurrency = "cGLD"
)

// ParseFeeCurrency accepts cUSD or cGLD, case-insensitively.
func ParseFeeCurrency(input string) (FeeCurrency, error) {
	switch {
	case strings.EqualFold(input, string(FeeCurrencyDollar)):
		return FeeCurrencyDollar, nil
	case strings.EqualFold(input, string(FeeCurrencyGold)):
		return FeeCurrencyGold, nil
	default:
		return "", fmt.Errorf("unsupported fee currency: %s", input)
	}
}

// Tx is an unsigned transaction before nonce, gas and fee currency are filled in.
// EstimatedGas of zero asks the linker to estimate.
type Tx struct {
	From         common.Address
	To           common.Address
	FeeCurrency  FeeCurrency
	Data         []byte
	EstimatedGas uint64
}

// RequestOptions tags a sign request.
type RequestOptions struct {
	RequestID string
	Callback  string
	DappName  string
}

// Opener hands a deep link to the wallet.
type Opener interface {
	Open(ctx context.Context, link string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, link string) error

func (f OpenerFunc) Open(ctx context.Context, link string) error {
	return f(ctx, link)
}

// TxPreparer supplies nonces and gas estimates.
type TxPreparer interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// AddressResolver resolves core contract addresses by registry name.
type AddressResolver interface {
	AddressFor(ctx context.Context, name string) (common.Address, error)
}

type waitResult struct {
	resp Response
	err  error
}

type waiter struct {
	ch chan waitResult
}

// Linker sends sign requests to the wallet and correlates the asynchronous responses.
type Linker struct {
	chain    TxPreparer
	registry AddressResolver
	opener   Opener
	linkBase string
	logger   *zap.Logger

	mu      sync.Mutex
	waiters map[string]*waiter
	pending map[string]Response
}

// LinkerConfig holds optional linker settings.
type LinkerConfig struct {
	LinkBase string
}

func NewLinker(cfg LinkerConfig, chain TxPreparer, registry AddressResolver, opener Opener, logger *zap.Logger) *Linker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Linker{
		chain:    chain,
		registry: registry,
		opener:   opener,
		linkBase: cfg.LinkBase,
		logger:   logger,
		waiters:  make(map[string]*waiter),
		pending:  make(map[string]Response),
	}
}

// RequestTxSig prepares txs, hands the deep link to the opener and returns the request id
// without waiting for a signature.
func (l *Linker) RequestTxSig(ctx context.Context, txs []Tx, opts RequestOptions) (string, error) {
	if l.opener == nil {
		return "", fmt.Errorf("opener is nil")
	}
	prepared, err := l.prepare(ctx, txs)
	if err != nil {
		return "", err
	}

	link, err := EncodeRequest(l.linkBase, Request{
		Txs:       prepared,
		RequestID: opts.RequestID,
		Callback:  opts.Callback,
		DappName:  opts.DappName,
	})
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	delete(l.pending, opts.RequestID)
	l.mu.Unlock()

	if err := l.opener.Open(ctx, link); err != nil {
		return "", fmt.Errorf("open wallet link: %w", err)
	}

	l.logger.Info("sign request sent",
		zap.String("request_id", opts.RequestID),
		zap.Int("txs", len(prepared)),
	)
	return opts.RequestID, nil
}

// WaitForSignedTxs blocks until the wallet answers requestID or ctx ends.
func (l *Linker) WaitForSignedTxs(ctx context.Context, requestID string) (Response, error) {
	w := &waiter{ch: make(chan waitResult, 1)}

	l.mu.Lock()
	if resp, ok := l.pending[requestID]; ok {
		delete(l.pending, requestID)
		l.mu.Unlock()
		return checkResponse(resp)
	}
	if prev, ok := l.waiters[requestID]; ok {
		prev.ch <- waitResult{err: ErrRequestSuperseded}
	}
	l.waiters[requestID] = w
	l.mu.Unlock()

	select {
	case res := <-w.ch:
		if res.err != nil {
			return Response{}, res.err
		}
		return checkResponse(res.resp)
	case <-ctx.Done():
		l.mu.Lock()
		if l.waiters[requestID] == w {
			delete(l.waiters, requestID)
		}
		l.mu.Unlock()
		return Response{}, ctx.Err()
	}
}

// Deliver routes a wallet response to its waiter. Unclaimed responses are held
// until a waiter for the same request id arrives. It reports whether a waiter was present.
func (l *Linker) Deliver(resp Response) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.waiters[resp.RequestID]; ok {
		delete(l.waiters, resp.RequestID)
		w.ch <- waitResult{resp: resp}
		return true
	}
	l.pending[resp.RequestID] = resp
	return false
}

func checkResponse(resp Response) (Response, error) {
	if !resp.Success() {
		return resp, fmt.Errorf("%w: %s status %s", ErrRequestRejected, resp.RequestID, resp.Status)
	}
	return resp, nil
}

func (l *Linker) prepare(ctx context.Context, txs []Tx) ([]TxToSign, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("no transactions to sign")
	}
	if l.chain == nil {
		return nil, fmt.Errorf("chain client is nil")
	}

	nonce, err := l.chain.PendingNonceAt(ctx, txs[0].From)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	out := make([]TxToSign, 0, len(txs))
	for i, tx := range txs {
		feeAddress, err := l.feeCurrencyAddress(ctx, tx.FeeCurrency)
		if err != nil {
			return nil, err
		}

		gas := tx.EstimatedGas
		if gas == 0 {
			to := tx.To
			msg := ethereum.CallMsg{From: tx.From, To: &to, Data: tx.Data}
			gas, err = l.chain.EstimateGas(ctx, msg)
			if err != nil {
				return nil, fmt.Errorf("estimate gas tx %d: %w", i, err)
			}
		}

		signTx := TxToSign{
			From:         tx.From.Hex(),
			To:           tx.To.Hex(),
			TxData:       hexutil.Encode(tx.Data),
			EstimatedGas: gas,
			Nonce:        nonce + uint64(i),
			Value:        new(big.Int).String(),
		}
		if feeAddress != (common.Address{}) {
			signTx.FeeCurrencyAddress = feeAddress.Hex()
		}
		out = append(out, signTx)
	}
	return out, nil
}

func (l *Linker) feeCurrencyAddress(ctx context.Context, fee FeeCurrency) (common.Address, error) {
	switch fee {
	case FeeCurrencyGold:
		return common.Address{}, nil
	case FeeCurrencyDollar, "":
		if l.registry == nil {
			return common.Address{}, fmt.Errorf("registry is nil")
		}
		addr, err := l.registry.AddressFor(ctx, contract.StableToken)
		if err != nil {
			return common.Address{}, fmt.Errorf("fee currency: %w", err)
		}
		return addr, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported fee currency: %s", fee)
	}
}
