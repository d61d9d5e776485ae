package circle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"savingsCircle/internal/model"
)

// Reader is the read surface of the circle contract.
type Reader interface {
	CirclesFor(ctx context.Context, member common.Address) ([]common.Hash, error)
	CircleInfo(ctx context.Context, circleHash common.Hash) (model.RawCircleInfo, error)
	BalancesForCircle(ctx context.Context, circleHash common.Hash) (model.CircleBalances, error)
	Withdrawable(ctx context.Context, circleHash common.Hash) (bool, error)
}

// Fetcher loads every circle an address belongs to.
type Fetcher struct {
	reader Reader
	logger *zap.Logger
}

func NewFetcher(reader Reader, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{reader: reader, logger: logger}
}

// GetCircles returns the address's circles in the order the contract lists them.
// Each circle is read concurrently; any failure aborts the whole fetch.
func (f *Fetcher) GetCircles(ctx context.Context, address common.Address) ([]model.CircleInfo, error) {
	if f.reader == nil {
		return nil, fmt.Errorf("circle reader is nil")
	}

	hashes, err := f.reader.CirclesFor(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("list circles: %w", err)
	}

	circles := make([]model.CircleInfo, len(hashes))
	if len(hashes) == 0 {
		return circles, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, hash := range hashes {
		i, hash := i, hash
		g.Go(func() error {
			info, err := f.fetchCircle(gctx, hash)
			if err != nil {
				return fmt.Errorf("circle %s: %w", hash.Hex(), err)
			}
			circles[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.Debug("circles fetched", zap.String("address", address.Hex()), zap.Int("circles", len(circles)))
	return circles, nil
}

func (f *Fetcher) fetchCircle(ctx context.Context, hash common.Hash) (model.CircleInfo, error) {
	var (
		balances     model.CircleBalances
		raw          model.RawCircleInfo
		withdrawable bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balances, err = f.reader.BalancesForCircle(gctx, hash)
		return err
	})
	g.Go(func() error {
		var err error
		raw, err = f.reader.CircleInfo(gctx, hash)
		return err
	})
	g.Go(func() error {
		var err error
		withdrawable, err = f.reader.Withdrawable(gctx, hash)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.CircleInfo{}, err
	}

	if !MembersAligned(raw, balances) {
		f.logger.Warn("circle member order differs between circleInfo and balancesForCircle",
			zap.String("circle_hash", hash.Hex()),
			zap.Int("info_members", len(raw.Members)),
			zap.Int("balance_members", len(balances.Addresses)),
		)
	}

	return Deserialize(raw, balances, hash, withdrawable), nil
}
