package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/services"
	"github.com/desertthunder/stereo/internal/shared"
)

// videoCandidates is how many videos FindTrack considers when no catalogue track resolves.
const videoCandidates = 10

// Searcher streams catalogue search results resolved to videos.
type Searcher interface {
	// Search sends up to limit tracks for query to out. It does not close out.
	Search(ctx context.Context, kind, query string, limit int, out chan<- models.Track) (int, error)

	// FindTrack returns the first track matching title and artist.
	FindTrack(ctx context.Context, title, artist string) (*models.Track, error)
}

// SearchEngine implements [Searcher] over a catalogue and the video platform.
type SearchEngine struct {
	catalogue  services.Catalogue
	videos     services.VideoSearcher
	recordings services.RecordingSearcher
	logger     *log.Logger
}

// EngineOption configures a [SearchEngine].
type EngineOption func(*SearchEngine)

// WithRecordings enables MusicBrainz ids on imported tracks.
func WithRecordings(r services.RecordingSearcher) EngineOption {
	return func(e *SearchEngine) { e.recordings = r }
}

func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *SearchEngine) { e.logger = l }
}

// NewSearchEngine creates a new SearchEngine with the provided services.
func NewSearchEngine(catalogue services.Catalogue, videos services.VideoSearcher, opts ...EngineOption) *SearchEngine {
	e := &SearchEngine{
		catalogue: catalogue,
		videos:    videos,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search looks query up by kind and sends each catalogue track that resolves to a
// video. A limit of zero or less sends every result.
//
// It returns the number of tracks sent. Cancelling ctx stops the search with ctx's error.
func (e *SearchEngine) Search(ctx context.Context, kind, query string, limit int, out chan<- models.Track) (int, error) {
	if e.catalogue == nil || e.videos == nil {
		return 0, fmt.Errorf("%w: search services not initialized", shared.ErrServiceUnavailable)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil
	}

	tracks, err := e.catalogueTracks(ctx, kind, query)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, bp := range tracks {
		if limit > 0 && sent >= limit {
			break
		}

		track, ok, err := e.resolve(ctx, bp)
		if err != nil {
			return sent, err
		}
		if !ok {
			continue
		}

		select {
		case out <- track:
			sent++
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	return sent, nil
}

func (e *SearchEngine) catalogueTracks(ctx context.Context, kind, query string) ([]models.BeatportTrack, error) {
	switch kind {
	case protocol.KindFuzzy, "":
		return e.catalogue.SearchTracks(ctx, query)

	case protocol.KindByArtist:
		artists, err := e.catalogue.SearchArtists(ctx, query, 1)
		if err != nil || len(artists) == 0 {
			return nil, err
		}
		e.logger.Debug("searching artist releases", "artist", artists[0].Name, "id", artists[0].ID)
		return e.catalogue.ArtistReleases(ctx, artists[0], nil, nil)

	case protocol.KindByLabel:
		labels, err := e.catalogue.SearchLabels(ctx, query, 1)
		if err != nil || len(labels) == 0 {
			return nil, err
		}
		e.logger.Debug("searching label releases", "label", labels[0].Name, "id", labels[0].ID)
		return e.catalogue.LabelReleases(ctx, labels[0], nil, nil)

	default:
		return nil, fmt.Errorf("%w: unknown search kind %q", shared.ErrInvalidInput, kind)
	}
}

// resolve finds the first video for a catalogue track. A failed lookup skips the
// track; only cancellation is returned as an error.
func (e *SearchEngine) resolve(ctx context.Context, bp models.BeatportTrack) (models.Track, bool, error) {
	videos, err := e.videos.SearchVideos(ctx, bp.Query(), 1)
	if err != nil {
		if ctx.Err() != nil {
			return models.Track{}, false, ctx.Err()
		}
		e.logger.Warn("failed to resolve track", "query", bp.Query(), "err", err)
		return models.Track{}, false, nil
	}
	if len(videos) == 0 {
		e.logger.Debug("no video for track", "query", bp.Query())
		return models.Track{}, false, nil
	}
	return models.TrackFromBeatport(bp, videos[0].ID), true, nil
}

// FindTrack returns the best catalogue track for title and artist that resolves
// to a video. When no catalogue track does, the best matching video is used on
// its own.
//
// Returns [shared.ErrNoResults] when nothing matches.
func (e *SearchEngine) FindTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	if e.catalogue == nil || e.videos == nil {
		return nil, fmt.Errorf("%w: search services not initialized", shared.ErrServiceUnavailable)
	}

	query := strings.TrimSpace(title + " - " + artist)
	candidates, err := e.catalogue.SearchTracks(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("catalogue search failed, falling back to videos", "query", query, "err", err)
	}

	if best, ok := services.SelectBeatport(title, artist, candidates); ok {
		candidates = append([]models.BeatportTrack{best}, candidates...)
	}
	for _, bp := range candidates {
		track, ok, err := e.resolve(ctx, bp)
		if err != nil {
			return nil, err
		}
		if ok {
			return &track, nil
		}
	}

	videos, err := e.videos.SearchVideos(ctx, title+" "+artist, videoCandidates)
	if err != nil {
		return nil, err
	}
	video, ok := services.SelectVideo(title, artist, videos)
	if !ok {
		return nil, fmt.Errorf("%w: %s - %s", shared.ErrNoResults, artist, title)
	}
	return &models.Track{YTID: video.ID, Title: title, Artists: models.Artists{artist}}, nil
}

// annotate fills the MusicBrainz id and a missing release date of t.
func (e *SearchEngine) annotate(ctx context.Context, t *models.Track) {
	if e.recordings == nil || len(t.Artists) == 0 {
		return
	}

	recs, err := e.recordings.SearchRecordings(ctx, services.RecordingQuery(t.Title, t.Artists[0]))
	if err != nil {
		e.logger.Warn("recording lookup failed", "title", t.Title, "err", err)
		return
	}
	rec, ok := services.SelectRecording(t.Title, t.Artists.String(), recs)
	if !ok {
		return
	}

	id := rec.ID
	t.MBID = &id
	if t.ReleaseDate == nil {
		t.ReleaseDate = rec.ReleaseDate
	}
}
