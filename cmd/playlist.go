package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/formatter"
	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
	"github.com/desertthunder/stereo/internal/tasks"
)

// PlaylistImport looks up each song of a playlist CSV and adds the matches to the collection.
func (r *Runner) PlaylistImport(ctx context.Context, cmd *cli.Command) error {
	path := shared.ExpandHome(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: search engine not initialized", shared.ErrServiceUnavailable)
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open playlist: %w", err)
	}
	entries, err := formatter.ReadPlaylistCSV(f)
	f.Close()
	if err != nil {
		return err
	}

	var store tasks.TrackStore
	if !cmd.Bool("dry-run") {
		repo, err := r.openCollection(cmd)
		if err != nil {
			return err
		}
		defer repo.Close()
		store = repo
	}

	r.writePlainHeader(fmt.Sprintf("Importing %d songs from %s", len(entries), path))

	progress := make(chan tasks.ProgressUpdate, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.ImportPlaylist(ctx, progress, entries, store, tasks.ImportOpts{
		NumWorkers: cmd.Int("workers"),
		Overwrite:  cmd.Bool("overwrite"),
	})
	close(progress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	r.logger.Info("playlist imported", "file", path, "matched", result.Matched, "failed", result.Failed, "added", result.Added)

	r.writePlainln("Matched: %d / %d", result.Matched, len(entries))
	if store != nil {
		r.writePlain("Added:   %d\n", result.Added)
	}
	if result.Failed > 0 {
		r.writePlainln("Not found:")
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  ✗ %s\n", res.Entry)
			}
		}
	}
	return nil
}

// PlaylistLink creates an anonymous YouTube playlist from ids or random collection tracks.
func (r *Runner) PlaylistLink(ctx context.Context, cmd *cli.Command) error {
	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube service not initialized", shared.ErrServiceUnavailable)
	}

	ids := cmd.Args().Slice()
	if n := cmd.Int("random"); n > 0 {
		picked, err := r.randomIDs(cmd, n)
		if err != nil {
			return err
		}
		ids = append(ids, picked...)
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one video id or --random", shared.ErrMissingArgument)
	}

	link, err := r.youtube.AnonPlaylist(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.logger.Info("created playlist", "tracks", len(ids), "url", link)
	r.writePlain("%s\n", link)

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(link); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
	}
	return nil
}

// randomIDs picks up to n distinct random tracks of the collection.
func (r *Runner) randomIDs(cmd *cli.Command, n int) ([]string, error) {
	repo, err := r.openCollection(cmd)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	size, err := repo.Count(models.FilterModel{})
	if err != nil {
		return nil, err
	}
	n = min(n, size)

	seen := make(map[string]bool, n)
	ids := make([]string, 0, n)
	for len(ids) < n {
		t, err := repo.Random()
		if err != nil {
			return nil, err
		}
		if !seen[t.YTID] {
			seen[t.YTID] = true
			ids = append(ids, t.YTID)
		}
	}
	return ids, nil
}
