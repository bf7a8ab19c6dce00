package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/client"
	"github.com/desertthunder/stereo/internal/player"
	"github.com/desertthunder/stereo/internal/shared"
	"github.com/desertthunder/stereo/internal/state"
	"github.com/desertthunder/stereo/internal/ui"
)

// TUI connects to a running backend and launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(filepath.Join(cfg.HomeDir(), "stereo-tui.log"), shared.FileLogOpts{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.VerbosityLevel(cfg.App.Verbosity))
	r.SetLogger(fileLogger)

	store := state.NewStore(state.New(), fileLogger.With("component", "store"))
	conn := client.New(cmd.String("url"),
		client.WithHandler(store),
		client.WithLogger(fileLogger.With("component", "client")),
		client.WithReconnectInterval(cfg.Client.ReconnectInterval),
		client.WithHeartbeatInterval(cfg.Client.HeartbeatInterval),
	)
	play := player.New(conn, player.WithLogger(fileLogger.With("component", "player")))

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	model := ui.NewModel(store, conn, play, cfg.Client.RequestTimeout)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
