package circle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"savingsCircle/internal/amount"
	"savingsCircle/internal/contract"
	"savingsCircle/internal/wallet"
)

// Fixed request ids, one per action kind.
const (
	RequestAddCircle  = "addCircle"
	RequestContribute = "contribute"
	RequestWithdraw   = "withdraw"
)

// ContributeGas is the gas limit sent with contribute; it cannot be estimated
// before the approval it depends on is mined.
const ContributeGas = 100000

// Requester hands unsigned transactions to the wallet.
type Requester interface {
	RequestTxSig(ctx context.Context, txs []wallet.Tx, opts wallet.RequestOptions) (string, error)
}

// Encoder encodes writes against the circle contract.
type Encoder interface {
	Address() common.Address
	PackAddCircle(name string, members []common.Address, token common.Address, deposit *big.Int) ([]byte, error)
	PackContribute(circleHash common.Hash, value *big.Int) ([]byte, error)
	PackWithdraw(circleHash common.Hash) ([]byte, error)
}

// BuilderConfig tags every request the builder sends.
type BuilderConfig struct {
	FeeCurrency wallet.FeeCurrency
	Callback    string
	DappName    string
}

// Builder turns user actions into sign requests.
type Builder struct {
	cfg       BuilderConfig
	circle    Encoder
	registry  wallet.AddressResolver
	requester Requester
	logger    *zap.Logger
}

func NewBuilder(cfg BuilderConfig, circle Encoder, registry wallet.AddressResolver, requester Requester, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeeCurrency == "" {
		cfg.FeeCurrency = wallet.FeeCurrencyDollar
	}
	return &Builder{
		cfg:       cfg,
		circle:    circle,
		registry:  registry,
		requester: requester,
		logger:    logger,
	}
}

// AddCircle requests a new circle with a fixed deposit of one token.
func (b *Builder) AddCircle(ctx context.Context, from common.Address, name string, members []common.Address) (string, error) {
	token, err := b.registry.AddressFor(ctx, contract.GoldToken)
	if err != nil {
		return "", err
	}
	data, err := b.circle.PackAddCircle(name, members, token, amount.OneUnit())
	if err != nil {
		return "", err
	}

	return b.request(ctx, RequestAddCircle, []wallet.Tx{
		b.tx(from, b.circle.Address(), data, 0),
	})
}

// Contribute requests an approval of amount followed by the contribution itself.
func (b *Builder) Contribute(ctx context.Context, from common.Address, value *big.Int, circleHash common.Hash) (string, error) {
	if value == nil {
		return "", fmt.Errorf("contribution amount is required")
	}
	goldAddress, err := b.registry.AddressFor(ctx, contract.GoldToken)
	if err != nil {
		return "", err
	}
	gold, err := contract.NewToken(goldAddress, nil)
	if err != nil {
		return "", err
	}

	approveData, err := gold.PackApprove(b.circle.Address(), value)
	if err != nil {
		return "", err
	}
	contributeData, err := b.circle.PackContribute(circleHash, value)
	if err != nil {
		return "", err
	}

	return b.request(ctx, RequestContribute, []wallet.Tx{
		b.tx(from, goldAddress, approveData, 0),
		b.tx(from, b.circle.Address(), contributeData, ContributeGas),
	})
}

// Withdraw requests a withdrawal of the pooled funds.
func (b *Builder) Withdraw(ctx context.Context, from common.Address, circleHash common.Hash) (string, error) {
	data, err := b.circle.PackWithdraw(circleHash)
	if err != nil {
		return "", err
	}
	return b.request(ctx, RequestWithdraw, []wallet.Tx{
		b.tx(from, b.circle.Address(), data, 0),
	})
}

func (b *Builder) tx(from, to common.Address, data []byte, gas uint64) wallet.Tx {
	return wallet.Tx{
		From:         from,
		To:           to,
		FeeCurrency:  b.cfg.FeeCurrency,
		Data:         data,
		EstimatedGas: gas,
	}
}

func (b *Builder) request(ctx context.Context, requestID string, txs []wallet.Tx) (string, error) {
	id, err := b.requester.RequestTxSig(ctx, txs, wallet.RequestOptions{
		RequestID: requestID,
		Callback:  b.cfg.Callback,
		DappName:  b.cfg.DappName,
	})
	if err != nil {
		return "", fmt.Errorf("request %s signature: %w", requestID, err)
	}
	b.logger.Debug("sign request built", zap.String("request_id", id), zap.Int("txs", len(txs)))
	return id, nil
}
