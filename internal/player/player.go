// Package player plays collection tracks by opening their watch page and reporting the play.
package player

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/shared"
)

// Sender delivers fire-and-forget messages to the backend.
type Sender interface {
	Send(msg protocol.Message) error
}

// Player opens tracks on the video platform.
type Player struct {
	remote Sender
	open   func(url string) error
	logger *log.Logger
}

type Option func(*Player)

// WithOpener replaces the browser launcher.
func WithOpener(open func(url string) error) Option {
	return func(p *Player) { p.open = open }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Player) { p.logger = l }
}

func New(remote Sender, opts ...Option) *Player {
	p := &Player{
		remote: remote,
		open:   shared.OpenBrowser,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play opens the watch page of ytID and counts the play in the selected collection.
//
// A play that cannot be reported still counts as played locally; the error says why.
func (p *Player) Play(ytID string) error {
	if ytID == "" {
		return fmt.Errorf("%w: empty track id", shared.ErrInvalidArgument)
	}

	url := models.WatchURL(ytID)
	p.logger.Info("playing", "yt_id", ytID, "url", url)
	if err := p.open(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}

	if p.remote == nil {
		return nil
	}
	if err := p.remote.Send(&protocol.IncPlayCount{YTID: ytID}); err != nil {
		return fmt.Errorf("failed to report play of %s: %w", ytID, err)
	}
	return nil
}
