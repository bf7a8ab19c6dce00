package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/server"
	"github.com/desertthunder/stereo/internal/shared"
	"github.com/desertthunder/stereo/internal/web"
)

// Serve runs the backend until interrupted.
//
// Logs go to both stderr and the rotating log file in the home directory.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	home := cfg.HomeDir()

	fileLogger, err := shared.NewFileLogger(cfg.LogFilePath(), shared.FileLogOpts{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	level := shared.VerbosityLevel(cfg.App.Verbosity)
	shared.SetLogLevel(fileLogger, min(level, log.InfoLevel))
	logger := shared.WithLogger(r.logger, "component", "server")

	opts := []server.HubOption{
		server.WithFs(r.fs),
		server.WithHubLogger(fileLogger.With("component", "hub")),
	}
	if r.engine != nil {
		opts = append(opts, server.WithSearcher(r.engine))
	}
	if r.youtube != nil {
		opts = append(opts, server.WithPlaylists(r.youtube))
	}
	hub := server.NewHub(server.HubConfig{
		Version:           version,
		DefaultCollection: cfg.DefaultCollectionPath(),
		SearchLimit:       cfg.Search.Limit,
		BatchSize:         cfg.Server.SendBatchSize,
		BatchDelay:        cfg.Server.SendBatchDelay,
	}, opts...)

	var static server.Handler
	if dir := cmd.String("static"); dir != "" && !cmd.Bool("dev") {
		static = web.NewStatic(r.fs, shared.ExpandHome(dir))
		logger.Info("serving static files", "dir", dir)
	}

	addr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(cmd.Int("port")))
	srv := server.New(addr, hub, static, fileLogger.With("component", "http"))

	logger.Info("starting", "version", version, "addr", addr, "home", home, "log", cfg.LogFilePath())
	r.writePlain("stereo %s listening on http://%s (ws at /ws)\n", version, addr)

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stopped")
	return nil
}
