package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/shared"
)

type mockCatalogue struct {
	tracks        []models.BeatportTrack
	artists       []models.BeatportArtist
	labels        []models.BeatportLabel
	releases      map[int][]models.BeatportTrack
	searchErr     error
	mu            sync.Mutex
	searchQueries []string
}

func (m *mockCatalogue) SearchTracks(ctx context.Context, query string) ([]models.BeatportTrack, error) {
	m.mu.Lock()
	m.searchQueries = append(m.searchQueries, query)
	m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.tracks, nil
}

func (m *mockCatalogue) SearchArtists(ctx context.Context, name string, limit int) ([]models.BeatportArtist, error) {
	return m.artists[:min(limit, len(m.artists))], nil
}

func (m *mockCatalogue) SearchLabels(ctx context.Context, name string, limit int) ([]models.BeatportLabel, error) {
	return m.labels[:min(limit, len(m.labels))], nil
}

func (m *mockCatalogue) ArtistReleases(ctx context.Context, artist models.BeatportArtist, from, to *models.Date) ([]models.BeatportTrack, error) {
	return m.releases[artist.ID], nil
}

func (m *mockCatalogue) LabelReleases(ctx context.Context, label models.BeatportLabel, from, to *models.Date) ([]models.BeatportTrack, error) {
	return m.releases[label.ID], nil
}

// mockVideos answers with a video whose id is the first word of the query,
// unless the query is listed in missing.
type mockVideos struct {
	missing map[string]bool
	results map[string][]models.Video
	err     error
}

func (m *mockVideos) SearchVideos(ctx context.Context, query string, limit int) ([]models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.results[query]; ok {
		return v, nil
	}
	if m.missing[query] {
		return nil, nil
	}
	id := "yt-" + strings.Fields(query)[0]
	return []models.Video{{ID: id, Title: query}}, nil
}

type mockRecordings struct {
	recs []models.Recording
}

func (m *mockRecordings) SearchRecordings(ctx context.Context, query string) ([]models.Recording, error) {
	return m.recs, nil
}

type mockStore struct {
	inserted  []models.Track
	overwrite bool
	err       error
}

func (m *mockStore) InsertMany(tracks []models.Track, overwrite bool) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.inserted = append(m.inserted, tracks...)
	m.overwrite = overwrite
	return len(tracks), nil
}

func bpTrack(id int, name, artist string) models.BeatportTrack {
	return models.BeatportTrack{ID: id, Name: name, Artists: []string{artist}, Label: "Label"}
}

func collect(t *testing.T, e *SearchEngine, kind, query string, limit int) ([]models.Track, error) {
	t.Helper()
	out := make(chan models.Track, 100)
	n, err := e.Search(context.Background(), kind, query, limit, out)
	close(out)

	var tracks []models.Track
	for tr := range out {
		tracks = append(tracks, tr)
	}
	if n != len(tracks) {
		t.Errorf("expected count %d to match sent tracks %d", n, len(tracks))
	}
	return tracks, err
}

func TestSearchEngine(t *testing.T) {
	catalogue := &mockCatalogue{
		tracks: []models.BeatportTrack{
			bpTrack(1, "Glue", "Bicep"),
			bpTrack(2, "Nothing", "Nobody"),
			bpTrack(3, "Atlas", "Bicep"),
		},
		artists: []models.BeatportArtist{{ID: 10, Name: "Bicep"}, {ID: 11, Name: "Other"}},
		labels:  []models.BeatportLabel{{ID: 20, Name: "Ninja Tune"}},
		releases: map[int][]models.BeatportTrack{
			10: {bpTrack(4, "Apricots", "Bicep")},
			20: {bpTrack(5, "Saku", "Bicep"), bpTrack(6, "Hawk", "Bicep")},
			11: {bpTrack(7, "Wrong", "Other")},
		},
	}
	videos := &mockVideos{missing: map[string]bool{"Nothing Nobody Label": true}}
	engine := NewSearchEngine(catalogue, videos)

	t.Run("Search", func(t *testing.T) {
		t.Run("fuzzy skips tracks without video", func(t *testing.T) {
			tracks, err := collect(t, engine, protocol.KindFuzzy, "bicep", 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}
			if tracks[0].YTID != "yt-Glue" || tracks[0].Title != "Glue" {
				t.Errorf("unexpected first track %+v", tracks[0])
			}
			if tracks[0].BPID == nil || *tracks[0].BPID != 1 {
				t.Errorf("expected bp_id 1, got %v", tracks[0].BPID)
			}
			if tracks[1].YTID != "yt-Atlas" {
				t.Errorf("unexpected second track %+v", tracks[1])
			}
		})

		t.Run("stops at limit", func(t *testing.T) {
			tracks, err := collect(t, engine, protocol.KindFuzzy, "bicep", 1)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 {
				t.Errorf("expected 1 track, got %d", len(tracks))
			}
		})

		t.Run("by artist uses the first artist", func(t *testing.T) {
			tracks, err := collect(t, engine, protocol.KindByArtist, "bicep", 0)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].Title != "Apricots" {
				t.Errorf("expected artist release Apricots, got %+v", tracks)
			}
		})

		t.Run("by label", func(t *testing.T) {
			tracks, err := collect(t, engine, protocol.KindByLabel, "ninja", 0)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 2 {
				t.Errorf("expected 2 label releases, got %d", len(tracks))
			}
		})

		t.Run("no artist found", func(t *testing.T) {
			e := NewSearchEngine(&mockCatalogue{}, videos)
			tracks, err := collect(t, e, protocol.KindByArtist, "nobody", 0)
			if err != nil || len(tracks) != 0 {
				t.Errorf("expected empty result, got %v %v", tracks, err)
			}
		})

		t.Run("empty query", func(t *testing.T) {
			tracks, err := collect(t, engine, protocol.KindFuzzy, "   ", 0)
			if err != nil || len(tracks) != 0 {
				t.Errorf("expected empty result, got %v %v", tracks, err)
			}
		})

		t.Run("unknown kind", func(t *testing.T) {
			_, err := collect(t, engine, "by-mood", "happy", 0)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("catalogue error", func(t *testing.T) {
			e := NewSearchEngine(&mockCatalogue{searchErr: shared.ErrAPIRequest}, videos)
			_, err := collect(t, e, protocol.KindFuzzy, "x", 0)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("video errors skip tracks", func(t *testing.T) {
			e := NewSearchEngine(catalogue, &mockVideos{err: shared.ErrServiceUnavailable})
			tracks, err := collect(t, e, protocol.KindFuzzy, "x", 0)
			if err != nil || len(tracks) != 0 {
				t.Errorf("expected no tracks and no error, got %v %v", tracks, err)
			}
		})

		t.Run("cancelled while blocked on output", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			out := make(chan models.Track)
			done := make(chan error, 1)
			go func() {
				_, err := engine.Search(ctx, protocol.KindFuzzy, "bicep", 0, out)
				done <- err
			}()

			<-out
			cancel()
			if err := <-done; !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})

		t.Run("missing services", func(t *testing.T) {
			_, err := NewSearchEngine(nil, nil).Search(context.Background(), protocol.KindFuzzy, "x", 0, nil)
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("FindTrack", func(t *testing.T) {
		t.Run("prefers the best catalogue match", func(t *testing.T) {
			track, err := engine.FindTrack(context.Background(), "Atlas", "Bicep")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.YTID != "yt-Atlas" {
				t.Errorf("expected Atlas, got %+v", track)
			}

			catalogue.mu.Lock()
			last := catalogue.searchQueries[len(catalogue.searchQueries)-1]
			catalogue.mu.Unlock()
			if last != "Atlas - Bicep" {
				t.Errorf("expected query 'Atlas - Bicep', got %q", last)
			}
		})

		t.Run("falls back to videos", func(t *testing.T) {
			v := &mockVideos{results: map[string][]models.Video{
				"Houdini Dua Lipa": {{ID: "x1", Title: "Cat video"}, {ID: "x2", Title: "Houdini (Official Music Video)"}},
			}}
			e := NewSearchEngine(&mockCatalogue{}, v)

			track, err := e.FindTrack(context.Background(), "Houdini", "Dua Lipa")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.YTID != "x2" || track.Title != "Houdini" || track.Artists.String() != "Dua Lipa" {
				t.Errorf("unexpected track %+v", track)
			}
		})

		t.Run("nothing found", func(t *testing.T) {
			v := &mockVideos{results: map[string][]models.Video{"Houdini Dua Lipa": {}}}
			e := NewSearchEngine(&mockCatalogue{}, v)

			if _, err := e.FindTrack(context.Background(), "Houdini", "Dua Lipa"); !errors.Is(err, shared.ErrNoResults) {
				t.Errorf("expected ErrNoResults, got %v", err)
			}
		})
	})
}

func TestImportPlaylist(t *testing.T) {
	newEngine := func(opts ...EngineOption) *SearchEngine {
		v := &mockVideos{results: map[string][]models.Video{
			"Glue Bicep":       {{ID: "glue", Title: "Glue"}},
			"Houdini Dua Lipa": {{ID: "houdini", Title: "Houdini"}},
			"Unknown Somebody": {},
		}}
		return NewSearchEngine(&mockCatalogue{}, v, opts...)
	}

	entries := []models.PlaylistEntry{
		{Title: "Glue", Artist: "Bicep"},
		{Title: "Unknown", Artist: "Somebody"},
		{Title: "Houdini", Artist: "Dua Lipa"},
		{Title: "Glue", Artist: "Bicep"},
	}

	t.Run("resolves and stores", func(t *testing.T) {
		store := &mockStore{}
		progress := make(chan ProgressUpdate, 100)

		result, err := newEngine().ImportPlaylist(context.Background(), progress, entries, store, ImportOpts{NumWorkers: 2, Overwrite: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		if result.Matched != 3 || result.Failed != 1 {
			t.Errorf("expected 3 matched and 1 failed, got %d and %d", result.Matched, result.Failed)
		}
		if !errors.Is(result.Results[1].Error, shared.ErrNoResults) {
			t.Errorf("expected entry 1 to fail with ErrNoResults, got %v", result.Results[1].Error)
		}
		if result.Results[2].Track == nil || result.Results[2].Track.YTID != "houdini" {
			t.Errorf("expected results in playlist order, got %+v", result.Results[2])
		}

		if len(store.inserted) != 2 || store.inserted[0].YTID != "glue" || store.inserted[1].YTID != "houdini" {
			t.Errorf("expected deduplicated tracks in order, got %+v", store.inserted)
		}
		if !store.overwrite {
			t.Error("expected overwrite to be passed to the store")
		}
		if result.Added != 2 {
			t.Errorf("expected 2 added, got %d", result.Added)
		}

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) != len(entries)+2 {
			t.Fatalf("expected %d progress updates, got %d", len(entries)+2, len(phases))
		}
		if phases[len(phases)-1] != SaveTracks {
			t.Errorf("expected last phase to be %s, got %s", SaveTracks, phases[len(phases)-1])
		}
	})

	t.Run("annotates recordings", func(t *testing.T) {
		date := models.MustParseDate("2023-11-09")
		recs := &mockRecordings{recs: []models.Recording{{ID: "mb-1", Title: "Houdini", Artists: []string{"Dua Lipa"}, ReleaseDate: &date}}}

		result, err := newEngine(WithRecordings(recs)).ImportPlaylist(context.Background(), nil, entries[2:3], nil, ImportOpts{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		track := result.Results[0].Track
		if track == nil || track.MBID == nil || *track.MBID != "mb-1" {
			t.Fatalf("expected mb_id mb-1, got %+v", track)
		}
		if track.ReleaseDate == nil || *track.ReleaseDate != date {
			t.Errorf("expected release date from recording, got %v", track.ReleaseDate)
		}
	})

	t.Run("store errors", func(t *testing.T) {
		_, err := newEngine().ImportPlaylist(context.Background(), nil, entries, &mockStore{err: errors.New("disk full")}, ImportOpts{})
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("expected store error, got %v", err)
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		_, err := newEngine().ImportPlaylist(context.Background(), nil, nil, nil, ImportOpts{})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newEngine().ImportPlaylist(ctx, nil, entries, &mockStore{}, ImportOpts{})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{ResolveTracks, "resolve_tracks"},
		{SaveTracks, "save_tracks"},
		{Phase(99), ""},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
