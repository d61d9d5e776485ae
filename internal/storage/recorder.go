package storage

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"savingsCircle/internal/model"
	"savingsCircle/internal/state"
)

// Recorder writes a snapshot batch each time the circle list is replaced.
type Recorder struct {
	sink   Storage
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(sink Storage, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, logger: logger, now: time.Now}
}

// Run records states from updates, usually a state.Store subscription, until ctx is
// done or updates is closed.
func (r *Recorder) Run(ctx context.Context, updates <-chan state.State) {
	var last []model.CircleInfo
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if st.Account == "" || len(st.Circles) == 0 || reflect.DeepEqual(st.Circles, last) {
				last = st.Circles
				continue
			}
			last = st.Circles
			snaps := model.SnapshotsFromCircles(st.Account, st.Circles, r.now())
			if err := r.sink.PutSnapshots(ctx, snaps); err != nil {
				r.logger.Warn("record snapshots failed", zap.Error(err), zap.String("account", st.Account))
				continue
			}
			r.logger.Debug("recorded snapshots", zap.Int("circles", len(snaps)), zap.String("account", st.Account))
		}
	}
}
