package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/olahol/melody"
	"github.com/spf13/afero"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/repositories"
	"github.com/desertthunder/stereo/internal/shared"
	"github.com/desertthunder/stereo/internal/tasks"
)

const (
	outboxSize      = 10000
	inboxSize       = 10000
	maxMessageBytes = 64 << 20

	defaultBatchSize  = 100
	defaultBatchDelay = 100 * time.Millisecond
	defaultLimit      = 50
)

// PlaylistMaker turns video ids into a shareable playlist link.
type PlaylistMaker interface {
	AnonPlaylist(ctx context.Context, ids []string) (string, error)
}

// HubConfig holds the settings of a [Hub].
type HubConfig struct {
	Version           string
	DefaultCollection string        // Collection announced to every new connection
	SearchLimit       int           // Used when a search does not set one
	BatchSize         int           // Messages per frame
	BatchDelay        time.Duration // Longest time a message waits for a full frame
}

// Hub accepts WebSocket connections at /ws and runs one session per connection.
//
// Open collections are shared by all sessions; updates to a collection are
// pushed to every session that has it selected.
type Hub struct {
	cfg       HubConfig
	melody    *melody.Melody
	search    tasks.Searcher
	playlists PlaylistMaker
	fs        afero.Fs
	clock     clockwork.Clock
	logger    *log.Logger

	mu          sync.Mutex
	sessions    map[*melody.Session]*session
	collections map[string]*repositories.TrackRepository
	closed      bool
}

// HubOption configures a [Hub].
type HubOption func(*Hub)

func WithSearcher(s tasks.Searcher) HubOption {
	return func(h *Hub) { h.search = s }
}

func WithPlaylists(p PlaylistMaker) HubOption {
	return func(h *Hub) { h.playlists = p }
}

// WithFs sets the filesystem used for path completions.
func WithFs(fs afero.Fs) HubOption {
	return func(h *Hub) { h.fs = fs }
}

func WithClock(c clockwork.Clock) HubOption {
	return func(h *Hub) { h.clock = c }
}

func WithHubLogger(l *log.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates a hub. Searches and playlists fail with
// [shared.ErrServiceUnavailable] until their services are configured.
func NewHub(cfg HubConfig, opts ...HubOption) *Hub {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = defaultBatchDelay
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultLimit
	}

	h := &Hub{
		cfg:         cfg,
		melody:      melody.New(),
		fs:          afero.NewOsFs(),
		clock:       clockwork.NewRealClock(),
		logger:      log.New(io.Discard),
		sessions:    map[*melody.Session]*session{},
		collections: map[string]*repositories.TrackRepository{},
	}
	for _, opt := range opts {
		opt(h)
	}

	h.melody.Config.MaxMessageSize = maxMessageBytes
	h.melody.Upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	h.melody.HandleConnect(h.connect)
	h.melody.HandleDisconnect(h.disconnect)
	h.melody.HandleMessage(h.message)
	h.melody.HandleError(func(s *melody.Session, err error) {
		h.logger.Debug("websocket error", "err", err)
	})

	return h
}

// Routes implements [Handler].
func (h *Hub) Routes() []string {
	return []string{"/ws"}
}

// ServeHTTP upgrades the request to a WebSocket connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.melody.HandleRequest(w, r); err != nil {
		h.logger.Error("failed to handle websocket request", "err", err)
	}
}

// Sessions returns the number of open connections.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close disconnects every session and closes the open collections.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	var errs []error
	if err := h.melody.Close(); err != nil {
		h.logger.Debug("melody already closed", "err", err)
	}

	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for ms, s := range h.sessions {
		sessions = append(sessions, s)
		delete(h.sessions, ms)
	}
	h.mu.Unlock()
	for _, s := range sessions {
		s.stop()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for path, repo := range h.collections {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(h.collections, path)
	}
	return errors.Join(errs...)
}

func (h *Hub) connect(ms *melody.Session) {
	s := newSession(h, ms)

	h.mu.Lock()
	h.sessions[ms] = s
	h.mu.Unlock()

	s.logger.Info("opening connection")
	s.start()
}

func (h *Hub) disconnect(ms *melody.Session) {
	h.mu.Lock()
	s, ok := h.sessions[ms]
	delete(h.sessions, ms)
	h.mu.Unlock()

	if ok {
		s.stop()
		s.logger.Info("closing connection")
	}
}

func (h *Hub) message(ms *melody.Session, data []byte) {
	h.mu.Lock()
	s, ok := h.sessions[ms]
	h.mu.Unlock()

	if ok {
		s.receive(data)
	}
}

// open returns the shared repository for the collection at path, creating the file if needed.
func (h *Hub) open(path string) (*repositories.TrackRepository, error) {
	path = cleanPath(path)

	h.mu.Lock()
	defer h.mu.Unlock()

	if repo, ok := h.collections[path]; ok {
		return repo, nil
	}
	// SQLite always works on the real filesystem.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	repo, err := repositories.OpenTrackRepository(path)
	if err != nil {
		return nil, err
	}
	h.collections[path] = repo
	return repo, nil
}

// publish sends msgs to every session that has the collection at path selected.
func (h *Hub) publish(path string, msgs ...protocol.Message) {
	for _, s := range h.selecting(path) {
		s.send(msgs...)
	}
}

// refresh recounts the collection at path and announces it to the sessions that selected it.
func (h *Hub) refresh(path string) error {
	repo, err := h.open(path)
	if err != nil {
		return err
	}
	col, err := repo.Collection()
	if err != nil {
		return err
	}
	col.Path = cleanPath(path)

	for _, s := range h.selecting(path) {
		if s.setSize(col.Path, col.Size) {
			c := col
			s.send(&protocol.CollectionInfo{Collection: &c})
		}
	}
	return nil
}

func (h *Hub) selecting(path string) []*session {
	path = cleanPath(path)

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s.collectionPath() == path {
			out = append(out, s)
		}
	}
	return out
}

// defaultCollection opens the default collection and reports its size.
func (h *Hub) defaultCollection() (models.Collection, error) {
	repo, err := h.open(h.cfg.DefaultCollection)
	if err != nil {
		return models.Collection{}, err
	}
	col, err := repo.Collection()
	if err != nil {
		return models.Collection{}, err
	}
	col.Path = cleanPath(h.cfg.DefaultCollection)
	return col, nil
}

func cleanPath(path string) string {
	return filepath.Clean(shared.ExpandHome(path))
}
