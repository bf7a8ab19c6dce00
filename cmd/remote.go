package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/client"
	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/shared"
)

// remoteHandler queues pushes from the backend for a one-shot command.
type remoteHandler struct {
	msgs      chan protocol.Message
	connected chan struct{}
	once      sync.Once
}

func newRemoteHandler() *remoteHandler {
	return &remoteHandler{
		msgs:      make(chan protocol.Message, 64),
		connected: make(chan struct{}),
	}
}

func (h *remoteHandler) HandleMessage(m protocol.Message) {
	select {
	case h.msgs <- m:
	default:
	}
}

func (h *remoteHandler) HandleStatus(status client.Status, err error) {
	if status == client.StatusConnected {
		h.once.Do(func() { close(h.connected) })
	}
}

// remoteSession is a connection to a backend that lives for one command.
type remoteSession struct {
	conn    *client.Client
	handler *remoteHandler
	timeout time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// dial connects to the backend at --url, giving up after the request timeout.
func (r *Runner) dial(ctx context.Context, cmd *cli.Command) (*remoteSession, error) {
	url := cmd.String("url")
	h := newRemoteHandler()
	conn := client.New(url,
		client.WithHandler(h),
		client.WithLogger(r.logger.With("component", "client")),
		client.WithReconnectInterval(r.config.Client.ReconnectInterval),
		client.WithHeartbeatInterval(r.config.Client.HeartbeatInterval),
	)

	runCtx, cancel := context.WithCancel(ctx)
	rs := &remoteSession{
		conn:    conn,
		handler: h,
		timeout: r.config.Client.RequestTimeout,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(rs.done)
		conn.Run(runCtx)
	}()

	if err := rs.connected(ctx); err != nil {
		rs.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	r.logger.Debug("connected", "url", url)
	return rs, nil
}

func (rs *remoteSession) Close() {
	rs.cancel()
	<-rs.done
}

func (rs *remoteSession) connected(ctx context.Context) error {
	ctx, cancel := rs.bound(ctx)
	defer cancel()

	select {
	case <-rs.handler.connected:
		return nil
	case <-ctx.Done():
		return timeoutErr(ctx)
	}
}

// bound limits ctx to the request timeout.
func (rs *remoteSession) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if rs.timeout > 0 {
		return context.WithTimeout(ctx, rs.timeout)
	}
	return context.WithCancel(ctx)
}

func timeoutErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return shared.ErrRequestTimeout
	}
	return ctx.Err()
}

// waitFor returns the next pushed message of type T, dropping others.
func waitFor[T protocol.Message](ctx context.Context, rs *remoteSession) (T, error) {
	ctx, cancel := rs.bound(ctx)
	defer cancel()

	for {
		select {
		case m := <-rs.handler.msgs:
			if t, ok := m.(T); ok {
				return t, nil
			}
		case <-ctx.Done():
			var zero T
			return zero, timeoutErr(ctx)
		}
	}
}

// request sends msg and waits for its reply, bounded by the request timeout.
func (rs *remoteSession) request(ctx context.Context, msg protocol.Correlated) (protocol.Message, error) {
	ctx, cancel := rs.bound(ctx)
	defer cancel()

	reply, err := rs.conn.Request(ctx, msg)
	if err != nil && ctx.Err() != nil {
		return nil, timeoutErr(ctx)
	}
	return reply, err
}

// selectCollection opens --collection on the backend, or the default collection it announced.
func (rs *remoteSession) selectCollection(ctx context.Context, path string) (*models.Collection, error) {
	if path == "" {
		def, err := waitFor[*protocol.DefaultCollection](ctx, rs)
		if err != nil {
			return nil, fmt.Errorf("no default collection: %w", err)
		}
		path = def.Collection.Path
	}

	reply, err := rs.request(ctx, &protocol.SetCollection{Path: path})
	if err != nil {
		return nil, err
	}
	info, ok := reply.(*protocol.CollectionInfo)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnexpectedReply, reply.Type())
	}
	if info.Collection == nil {
		msg := "rejected"
		if info.ErrorMessage != nil {
			msg = *info.ErrorMessage
		}
		return nil, fmt.Errorf("%w: %s: %s", shared.ErrInvalidCollection, path, msg)
	}
	return info.Collection, nil
}

// RemoteInfo prints what a backend announces on connect.
func (r *Runner) RemoteInfo(ctx context.Context, cmd *cli.Command) error {
	rs, err := r.dial(ctx, cmd)
	if err != nil {
		return err
	}
	defer rs.Close()

	info, err := waitFor[*protocol.BackendInfo](ctx, rs)
	if err != nil {
		return fmt.Errorf("no backend info: %w", err)
	}
	def, err := waitFor[*protocol.DefaultCollection](ctx, rs)
	if err != nil {
		return fmt.Errorf("no default collection: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"url":                cmd.String("url"),
			"version":            info.Version,
			"default_collection": def.Collection,
			"latency_ms":         rs.conn.Latency().Milliseconds(),
		}, true)
	}
	r.writePlain("Backend:            %s\n", cmd.String("url"))
	r.writePlain("Version:            %s\n", info.Version)
	r.writePlain("Default collection: %s (%d tracks)\n", def.Collection.Path, def.Collection.Size)
	return nil
}

// RemoteContains asks the backend whether the collection has a video id.
func (r *Runner) RemoteContains(ctx context.Context, cmd *cli.Command) error {
	ytID := cmd.StringArg("yt_id")
	if ytID == "" {
		return fmt.Errorf("%w: yt_id", shared.ErrMissingArgument)
	}

	rs, err := r.dial(ctx, cmd)
	if err != nil {
		return err
	}
	defer rs.Close()

	col, err := rs.selectCollection(ctx, cmd.String("collection"))
	if err != nil {
		return err
	}

	reply, err := rs.request(ctx, &protocol.CollectionContainsID{YTID: ytID})
	if err != nil {
		return err
	}
	resp, ok := reply.(*protocol.CollectionContainsIDResponse)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnexpectedReply, reply.Type())
	}

	if resp.ContainsID {
		r.writePlain("✓ %s is in %s\n", ytID, col.Path)
	} else {
		r.writePlain("✗ %s is not in %s\n", ytID, col.Path)
	}
	return nil
}

// RemoteRandom asks the backend to pick a track and prints it.
func (r *Runner) RemoteRandom(ctx context.Context, cmd *cli.Command) error {
	rs, err := r.dial(ctx, cmd)
	if err != nil {
		return err
	}
	defer rs.Close()

	col, err := rs.selectCollection(ctx, cmd.String("collection"))
	if err != nil {
		return err
	}
	if col.Size == 0 {
		r.writePlain("%s is empty\n", col.Path)
		return nil
	}

	if err := rs.conn.Send(&protocol.GetRandomTrack{}); err != nil {
		return err
	}
	play, err := waitFor[*protocol.PlayID](ctx, rs)
	if err != nil {
		return fmt.Errorf("no track picked: %w", err)
	}

	if err := rs.conn.Send(&protocol.GetTrackInfo{YTID: play.YTID}); err != nil {
		return err
	}
	info, err := waitFor[*protocol.TrackInfo](ctx, rs)
	if err != nil {
		return fmt.Errorf("no track info: %w", err)
	}

	r.writePlain("%s - %s\n%s\n", info.Track.Artists, info.Track.DisplayTitle(), models.WatchURL(play.YTID))
	return nil
}
