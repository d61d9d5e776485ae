package state

import (
	"sync"

	"savingsCircle/internal/model"
)

// State is the application state. Values handed out by the Store are never mutated.
type State struct {
	Account  string                 `json:"account"`
	Circles  []model.CircleInfo     `json:"circles"`
	Balances *model.AccountBalances `json:"balances,omitempty"`
}

// Initial returns the empty state used at start-up and after logout.
func Initial() State {
	return State{Circles: []model.CircleInfo{}}
}

// Event is a state transition.
type Event interface {
	apply(State) State
}

// FetchedCircles replaces the circle list wholesale.
type FetchedCircles struct {
	Circles []model.CircleInfo
}

func (e FetchedCircles) apply(s State) State {
	circles := make([]model.CircleInfo, len(e.Circles))
	copy(circles, e.Circles)
	s.Circles = circles
	return s
}

// SetAccount records the active account.
type SetAccount struct {
	Address string
}

func (e SetAccount) apply(s State) State {
	s.Account = e.Address
	return s
}

// BalancesRefreshed replaces the account balances.
type BalancesRefreshed struct {
	Balances model.AccountBalances
}

func (e BalancesRefreshed) apply(s State) State {
	b := e.Balances
	s.Balances = &b
	return s
}

// Reset returns to the initial state.
type Reset struct{}

func (Reset) apply(State) State {
	return Initial()
}

// Store holds the current State. Apply is the only write path.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[int]chan State
	nextID      int
}

func NewStore() *Store {
	return &Store{
		state:       Initial(),
		subscribers: make(map[int]chan State),
	}
}

// Get returns the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply runs the event and publishes the resulting state.
func (s *Store) Apply(e Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = e.apply(s.state)
	for _, ch := range s.subscribers {
		publish(ch, s.state)
	}
	return s.state
}

// Subscribe returns a channel carrying the latest state after every Apply. A slow
// reader only sees the newest value. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// publish must be called with the store lock held.
func publish(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- st
}
