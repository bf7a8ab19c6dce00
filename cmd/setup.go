package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/shared"
)

// Setup writes a config file if there is none and initializes the default collection.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	if err := config.ApplyEnv(nil); err != nil {
		return err
	}

	path := config.DefaultCollectionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	r.logger.Info("initializing collection", "path", path)

	db, err := shared.OpenCollection(path)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	defer db.Close()

	schema, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config:     %s\n", configPath)
	r.writePlain("Collection: %s (schema v%d)\n", path, schema)
	r.writePlain("Log file:   %s\n", config.LogFilePath())
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'stereo serve' to start the backend\n")
	r.writePlain("2. Run 'stereo tui' in another terminal to browse the collection\n")
	return nil
}
