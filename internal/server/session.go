package server

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/olahol/melody"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/shared"
)

// session is the server side of one connection.
//
// Inbound messages are handled one at a time in arrival order. Outbound
// messages are queued and written in batches by a single loop.
type session struct {
	id     string
	hub    *Hub
	conn   *melody.Session
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
	once   sync.Once

	outbox chan protocol.Message
	inbox  chan protocol.Message

	// Background work started by handlers (searches, lookups).
	tasks sync.WaitGroup

	mu           sync.Mutex
	collection   *models.Collection
	cancelSearch context.CancelFunc
}

func newSession(h *Hub, conn *melody.Session) *session {
	id := shared.GenerateID()
	conn.Set("id", id)

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	return &session{
		id:     id,
		hub:    h,
		conn:   conn,
		logger: shared.WithLogger(h.logger, "conn", id),
		ctx:    ctx,
		cancel: cancel,
		group:  group,
		done:   make(chan struct{}),
		outbox: make(chan protocol.Message, outboxSize),
		inbox:  make(chan protocol.Message, inboxSize),
	}
}

// start queues the greeting and runs the send and handle loops until the session stops.
func (s *session) start() {
	s.greet()

	s.group.Go(s.sendLoop)
	s.group.Go(s.handleLoop)

	go func() {
		defer close(s.done)
		if err := s.group.Wait(); err != nil {
			s.logger.Error("connection failed", "err", err)
			_ = s.conn.CloseWithMsg(melody.FormatCloseMessage(1011, "internal error"))
		}
	}()
}

// stop cancels the loops and background work and waits for them to exit.
func (s *session) stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.tasks.Wait()
	})
}

func (s *session) greet() {
	s.send(&protocol.BackendInfo{Version: s.hub.cfg.Version})

	col, err := s.hub.defaultCollection()
	if err != nil {
		s.logger.Error("failed to open default collection", "path", s.hub.cfg.DefaultCollection, "err", err)
		s.notify(protocol.NotifyError, fmt.Sprintf("failed to open default collection: %v", err))
		return
	}
	s.send(&protocol.DefaultCollection{Collection: col})
}

// send queues msgs for the client. It gives up once the session stops.
func (s *session) send(msgs ...protocol.Message) {
	for _, m := range msgs {
		select {
		case s.outbox <- m:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *session) notify(kind, message string) {
	s.send(&protocol.Notification{Message: message, Kind: kind})
}

// receive decodes a frame and queues its messages for handling.
func (s *session) receive(data []byte) {
	msgs, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warn("failed to decode client message", "err", err, "data", shared.Truncate(string(data), 200))
		s.notify(protocol.NotifyError, fmt.Sprintf("failed to decode message: %v", err))
	}

	for _, m := range msgs {
		s.logger.Debug("received", "type", m.Type())
		select {
		case s.inbox <- m:
		case <-s.ctx.Done():
			return
		}
	}
}

// sendLoop writes queued messages as JSON arrays of at most BatchSize
// messages, waiting at most BatchDelay after the first one.
func (s *session) sendLoop() error {
	size, delay := s.hub.cfg.BatchSize, s.hub.cfg.BatchDelay
	batch := make([]protocol.Message, 0, size)

	timer := s.hub.clock.NewTimer(delay)
	timer.Stop()

	flush := func() error {
		timer.Stop()
		if len(batch) == 0 {
			return nil
		}
		data, err := protocol.EncodeBatch(batch)
		batch = batch[:0]
		if err != nil {
			s.logger.Error("failed to encode batch", "err", err)
			return nil
		}
		s.logger.Debug("sending", "bytes", len(data), "data", shared.Truncate(string(data), 500))
		if err := s.conn.Write(data); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
		return nil
	}

	for {
		select {
		case <-s.ctx.Done():
			return nil

		case m := <-s.outbox:
			batch = append(batch, m)
			if len(batch) == 1 {
				timer.Reset(delay)
			}
			if len(batch) >= size {
				if err := flush(); err != nil {
					return err
				}
			}

		case <-timer.Chan():
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func (s *session) handleLoop() error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case m := <-s.inbox:
			s.dispatch(m)
		}
	}
}

// dispatch handles m and reports failures to the client: correlated requests
// get an error reply, everything else a notification.
func (s *session) dispatch(m protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", "type", m.Type(), "panic", r, "stack", string(debug.Stack()))
			s.fail(m, fmt.Errorf("internal error handling %s", m.Type()))
		}
	}()

	if err := s.handle(s.ctx, m); err != nil {
		s.fail(m, err)
	}
}

func (s *session) fail(m protocol.Message, err error) {
	s.logger.Error("failed to handle client message", "type", m.Type(), "err", err)
	if id, ok := protocol.ReplyID(m); ok {
		s.send(protocol.NewError(id, err))
		return
	}
	s.notify(protocol.NotifyError, err.Error())
}

// spawn runs fn in the background; its error is reported like a handler error.
func (s *session) spawn(m protocol.Message, fn func(ctx context.Context) error) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
			s.fail(m, err)
		}
	}()
}

func (s *session) collectionPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		return ""
	}
	return s.collection.Path
}

func (s *session) setCollection(c *models.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection = c
}

// setSize updates the size of the selected collection if it is still path.
func (s *session) setSize(path string, size int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil || s.collection.Path != path {
		return false
	}
	s.collection.Size = size
	return true
}

// replaceSearch cancels the running search and records cancel for the next one.
func (s *session) replaceSearch(cancel context.CancelFunc) {
	s.mu.Lock()
	prev := s.cancelSearch
	s.cancelSearch = cancel
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
}
