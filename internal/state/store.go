package state

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stereo/internal/client"
	"github.com/desertthunder/stereo/internal/protocol"
)

// Store holds the current [State]. It is safe for concurrent use.
//
// Subscribers run on the dispatching goroutine after the state has changed and
// must not dispatch themselves.
type Store struct {
	logger *log.Logger

	dispatchMu sync.Mutex

	mu      sync.RWMutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

func NewStore(initial State, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		logger: logger,
		state:  initial,
		subs:   make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch reduces a into the current state and notifies subscribers.
func (s *Store) Dispatch(a Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next := Reduce(s.state, a)
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.Debug("dispatch", "action", fmt.Sprintf("%T", a))

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) HandleMessage(m protocol.Message) {
	if a, ok := FromMessage(m); ok {
		s.Dispatch(a)
		return
	}
	s.logger.Debug("ignored message", "type", m.Type())
}

func (s *Store) HandleStatus(status client.Status, err error) {
	s.Dispatch(ConnectionChanged{Status: status, Err: err})
}

func (s *Store) HandleLatency(d time.Duration) {
	s.Dispatch(LatencyMeasured{Latency: d})
}
