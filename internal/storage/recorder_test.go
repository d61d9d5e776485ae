package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"savingsCircle/internal/model"
	"savingsCircle/internal/state"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]model.CircleSnapshot
}

func (m *memorySink) PutSnapshots(_ context.Context, snaps []model.CircleSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, snaps)
	return nil
}

func (m *memorySink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func TestRecorderWritesFetchedCircles(t *testing.T) {
	store := state.NewStore()
	sink := &memorySink{}
	rec := NewRecorder(sink, nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	updates, unsubscribe := store.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(context.Background(), updates)
	}()

	store.Apply(state.SetAccount{Address: "0xabc"})
	store.Apply(state.FetchedCircles{Circles: []model.CircleInfo{{Name: "friends", CircleHash: "0x01"}}})

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	unsubscribe()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches[0], 1)
	got := sink.batches[0][0]
	require.Equal(t, "0xabc", got.Account)
	require.Equal(t, "0x01", got.CircleHash)
	require.Equal(t, fixed, got.TakenAt)
}

func TestRecorderSkipsLoggedOutState(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder(sink, nil)
	updates := make(chan state.State, 2)
	updates <- state.State{Circles: []model.CircleInfo{{Name: "orphan"}}}
	updates <- state.Initial()
	close(updates)

	rec.Run(context.Background(), updates)
	require.Equal(t, 0, sink.count())
}
