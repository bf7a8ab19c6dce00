package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/services"
	"github.com/desertthunder/stereo/internal/shared"
	"github.com/desertthunder/stereo/internal/tasks"
)

const version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)

	configPath := configFile()
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	if err := config.ApplyEnv(nil); err != nil {
		logger.Fatal("invalid environment", "error", err)
	}
	shared.SetLogLevel(logger, shared.VerbosityLevel(config.App.Verbosity))

	httpClient := services.NewHTTPClient(
		services.WithRate(config.Search.RequestsPerSecond),
		services.WithUserAgent("stereo/"+version),
		services.WithHTTPLogger(logger),
	)
	youtube := services.NewYouTubeService(config.Search.YouTubeURL, httpClient)
	engine := tasks.NewSearchEngine(
		services.NewBeatport(config.Search.BeatportURL, httpClient),
		youtube,
		tasks.WithRecordings(services.NewMusicBrainz(config.Search.MusicBrainzURL, httpClient)),
		tasks.WithEngineLogger(logger),
	)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Engine:     engine,
		YouTube:    youtube,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "stereo",
		Usage:    "Build and play a music collection from online catalogues",
		Version:  version,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// configFile prefers $STEREO_CONFIG, then ./config.toml, then $XDG_CONFIG_HOME/stereo/config.toml.
func configFile() string {
	if path := os.Getenv("STEREO_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("config.toml"); err == nil {
		return "config.toml"
	}
	return filepath.Join(xdg.ConfigHome, "stereo", "config.toml")
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a config file and initialize the default collection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   r.configPath,
			},
		},
		Action: r.Setup,
	}
}
