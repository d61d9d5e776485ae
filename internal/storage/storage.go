package storage

import (
	"context"

	"savingsCircle/internal/model"
)

// Storage is a sink for circle snapshots.
type Storage interface {
	PutSnapshots(ctx context.Context, snapshots []model.CircleSnapshot) error
}
