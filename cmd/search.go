package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/shared"
)

// Search streams tracks matching the query and optionally adds them to the collection.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	kind := cmd.String("kind")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")

	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	switch kind {
	case protocol.KindFuzzy, protocol.KindByArtist, protocol.KindByLabel:
	default:
		return fmt.Errorf("%w: unknown search kind %q", shared.ErrInvalidArgument, kind)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: search engine not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("searching", "query", query, "kind", kind, "limit", limit)

	results := make(chan models.Track)
	errc := make(chan error, 1)
	go func() {
		defer close(results)
		_, err := r.engine.Search(ctx, kind, query, limit, results)
		errc <- err
	}()

	if !useJSON {
		r.writePlainHeader(fmt.Sprintf("Search: %s (%s)", query, kind))
	}

	tracks := []models.Track{}
	for t := range results {
		tracks = append(tracks, t)
		if !useJSON {
			r.writePlain("%3d. %s - %s  %s\n", len(tracks), t.Artists, t.DisplayTitle(), models.WatchURL(t.YTID))
		}
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if useJSON {
		if err := r.writeJSON(tracks, true); err != nil {
			return err
		}
	} else {
		r.writePlainln("Found %d tracks", len(tracks))
	}

	if !cmd.Bool("add") || len(tracks) == 0 {
		return nil
	}

	repo, err := r.openCollection(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.InsertMany(tracks, false)
	if err != nil {
		return fmt.Errorf("failed to add tracks: %w", err)
	}
	r.logger.Info("added tracks", "count", n, "collection", repo.Path())
	if !useJSON {
		r.writePlain("✓ Added %d tracks to %s\n", n, repo.Path())
	}
	return nil
}

// SearchTrack finds the single best match for a title and artist.
func (r *Runner) SearchTrack(ctx context.Context, cmd *cli.Command) error {
	title := cmd.String("title")
	artist := cmd.String("artist")
	useJSON := cmd.Bool("json")

	if cmd.Bool("video") {
		if r.youtube == nil {
			return fmt.Errorf("%w: YouTube service not initialized", shared.ErrServiceUnavailable)
		}
		video, err := r.youtube.SearchTrack(ctx, title, artist)
		if err != nil {
			return fmt.Errorf("video search failed: %w", err)
		}
		if useJSON {
			return r.writeJSON(video, true)
		}
		r.writePlain("%s (%s)\n%s\n", video.Title, video.Channel, video.URL())
		return nil
	}

	if r.engine == nil {
		return fmt.Errorf("%w: search engine not initialized", shared.ErrServiceUnavailable)
	}
	track, err := r.engine.FindTrack(ctx, title, artist)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	if useJSON {
		return r.writeJSON(track, true)
	}

	r.writePlain("%s - %s\n", track.Artists, track.DisplayTitle())
	if track.Label != nil {
		r.writePlain("  Label:    %s\n", *track.Label)
	}
	if track.ReleaseDate != nil {
		r.writePlain("  Released: %s\n", track.ReleaseDate)
	}
	if track.BPM != nil {
		r.writePlain("  BPM:      %d\n", *track.BPM)
	}
	r.writePlain("  %s\n", models.WatchURL(track.YTID))
	return nil
}
