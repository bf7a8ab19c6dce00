package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
)

// TrackStore receives the tracks of an import.
type TrackStore interface {
	InsertMany(tracks []models.Track, overwrite bool) (int, error)
}

// ImportOpts contains configuration for playlist imports.
type ImportOpts struct {
	NumWorkers int  // Concurrent lookups (default: 4, max: 10)
	Overwrite  bool // Replace tracks already in the collection
}

// EntryResult is the outcome of looking up one playlist entry.
type EntryResult struct {
	Entry models.PlaylistEntry
	Track *models.Track // nil if not found
	Error error
}

// ImportResult summarizes a playlist import.
type ImportResult struct {
	Results []EntryResult // In playlist order
	Matched int
	Failed  int
	Added   int // Tracks written to the store
}

// MatchedTracks returns the found tracks in playlist order without duplicates.
func (r *ImportResult) MatchedTracks() []models.Track {
	seen := make(map[string]bool, len(r.Results))
	tracks := make([]models.Track, 0, r.Matched)
	for _, res := range r.Results {
		if res.Track == nil || seen[res.Track.YTID] {
			continue
		}
		seen[res.Track.YTID] = true
		tracks = append(tracks, *res.Track)
	}
	return tracks
}

type importJob struct {
	index int
	entry models.PlaylistEntry
}

type importResult struct {
	index int
	res   EntryResult
}

// ImportPlaylist looks every entry up with a pool of workers and stores the tracks found.
//
// Lookups that fail are reported in the result and do not stop the import. A nil
// store only resolves the entries.
func (e *SearchEngine) ImportPlaylist(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	entries []models.PlaylistEntry,
	store TrackStore,
	opts ImportOpts,
) (*ImportResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: playlist is empty", shared.ErrInvalidInput)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	total := len(entries)
	result := &ImportResult{Results: make([]EntryResult, total)}

	jobs := make(chan importJob)
	results := make(chan importResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.importWorker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, entry := range entries {
			select {
			case jobs <- importJob{index: i, entry: entry}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	sendProgress(prog, resolveStartUpdate(total))

	completed := 0
	for r := range results {
		completed++
		result.Results[r.index] = r.res
		if r.res.Error == nil {
			result.Matched++
		} else {
			result.Failed++
		}
		sendProgress(prog, resolvedUpdate(completed, total, r.res))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	tracks := result.MatchedTracks()
	if store == nil || len(tracks) == 0 {
		return result, nil
	}

	sendProgress(prog, saveUpdate(tracks))
	n, err := store.InsertMany(tracks, opts.Overwrite)
	if err != nil {
		return result, fmt.Errorf("failed to save tracks: %w", err)
	}
	result.Added = n
	return result, nil
}

func (e *SearchEngine) importWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan importJob, results chan<- importResult) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := EntryResult{Entry: job.entry}
		track, err := e.FindTrack(ctx, job.entry.Title, job.entry.Artist)
		if err != nil {
			res.Error = err
		} else {
			e.annotate(ctx, track)
			res.Track = track
		}
		results <- importResult{index: job.index, res: res}
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
