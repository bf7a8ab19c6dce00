package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/repositories"
	"github.com/desertthunder/stereo/internal/shared"
)

const (
	msgFileExists        = "cannot create collection - file exists!"
	msgInvalidCollection = "not a valid collection"
)

func (s *session) handle(ctx context.Context, m protocol.Message) error {
	switch msg := m.(type) {
	case *protocol.Heartbeat:
		s.send(msg)
		return nil

	case *protocol.SearchCancelAll:
		s.replaceSearch(nil)
		return nil

	case *protocol.Search:
		return s.startSearch(ctx, msg)

	case *protocol.SearchTrack:
		return s.searchTrack(msg)

	case *protocol.CreateYTAnonPlaylist:
		return s.anonPlaylist(msg)

	case *protocol.SetCollection:
		return s.setCollectionPath(msg)

	case *protocol.CreateCollection:
		return s.createCollection(msg)

	case *protocol.GetPathCompletions:
		s.send(&protocol.PathCompletions{
			Correlation: protocol.Correlation{ID: msg.ID},
			Paths:       shared.PathCompletions(s.hub.fs, msg.PathPrefix),
		})
		return nil

	case *protocol.CheckImportFrom:
		s.send(&protocol.ImportFromValid{
			Path:    msg.Path,
			IsValid: repositories.ValidateCollection(shared.ExpandHome(msg.Path)) == nil,
		})
		return nil

	case *protocol.ValidateTrack:
		err := models.ValidateTrackMap(msg.Track)
		if err != nil {
			s.logger.Debug("track is not valid", "err", err)
		}
		s.send(&protocol.ValidateTrackReply{Correlation: protocol.Correlation{ID: msg.ID}, IsValid: err == nil})
		return nil

	case *protocol.ExportTracksToCollection:
		return s.exportTracks(msg)
	}

	// Everything below works on the selected collection.
	repo, err := s.repo()
	if err != nil {
		return err
	}
	path := s.collectionPath()

	switch msg := m.(type) {
	case *protocol.DeleteTracks:
		n, err := repo.Delete(msg.IDs)
		if err != nil {
			return err
		}
		s.logger.Info("deleted tracks", "count", n)
		s.hub.publish(path, &protocol.ReloadTracks{})
		return s.hub.refresh(path)

	case *protocol.GetRandomTrack:
		track, err := repo.Random()
		if errors.Is(err, shared.ErrTrackNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		s.send(&protocol.PlayID{YTID: track.YTID})
		return nil

	case *protocol.CollectionContainsID:
		exists, err := repo.Exists(msg.YTID)
		if err != nil {
			return err
		}
		s.send(&protocol.CollectionContainsIDResponse{Correlation: protocol.Correlation{ID: msg.ID}, ContainsID: exists})
		return nil

	case *protocol.UpdateRating:
		track, err := repo.SetRating(msg.YTID, msg.Rating)
		if err != nil {
			return err
		}
		s.hub.publish(path, &protocol.TrackUpdate{Track: *track})
		return nil

	case *protocol.IncPlayCount:
		track, err := repo.IncPlayCount(msg.YTID, models.NewDate(s.hub.clock.Now()))
		if err != nil {
			return err
		}
		s.hub.publish(path, &protocol.TrackUpdate{Track: *track})
		return nil

	case *protocol.GetRows:
		n, err := repo.Count(msg.FilterModel)
		if err != nil {
			return err
		}
		rows, err := repo.Rows(msg.StartRow, msg.EndRow, msg.SortModel, msg.FilterModel)
		if err != nil {
			return err
		}
		s.send(&protocol.Rows{Correlation: protocol.Correlation{ID: msg.ID}, Rows: rows, LastRow: &n})
		return nil

	case *protocol.GetRowIndex:
		idx, err := repo.RowIndex(msg.YTID, msg.SortModel, msg.FilterModel)
		if err != nil {
			return err
		}
		s.send(&protocol.RowIndex{Correlation: protocol.Correlation{ID: msg.ID}, Index: idx})
		return nil

	case *protocol.AddTrack:
		if err := repo.Insert(&msg.Track, msg.OverwriteExisting); err != nil {
			return err
		}
		stored, err := repo.Get(msg.Track.YTID)
		if err != nil {
			return err
		}
		s.hub.publish(path, &protocol.TrackUpdate{Track: *stored})
		return s.hub.refresh(path)

	case *protocol.AddTracks:
		n, err := repo.InsertMany(msg.Tracks, msg.OverwriteExisting)
		if err != nil {
			return err
		}
		s.logger.Info("added tracks", "count", n)
		s.hub.publish(path, &protocol.ReloadTracks{})
		return s.hub.refresh(path)

	case *protocol.UpdateTrack:
		if err := repo.Replace(&msg.Old, &msg.New); err != nil {
			return err
		}
		if msg.Old.YTID != msg.New.YTID {
			s.hub.publish(path, &protocol.ReloadTracks{})
			return nil
		}
		s.hub.publish(path, &protocol.TrackUpdate{Track: msg.New})
		return nil

	case *protocol.GetTrackInfo:
		track, err := repo.Get(msg.YTID)
		if errors.Is(err, shared.ErrTrackNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		s.send(&protocol.TrackInfo{Track: *track})
		return nil

	case *protocol.ImportFrom:
		n, err := repo.ImportFrom(ctx, shared.ExpandHome(msg.Path), msg.KeepUserData)
		if err != nil {
			return err
		}
		s.notify(protocol.NotifyInfo, fmt.Sprintf("imported %d tracks from %s", n, msg.Path))
		s.hub.publish(path, &protocol.ReloadTracks{})
		return s.hub.refresh(path)

	default:
		s.logger.Warn("unhandled message", "type", m.Type())
		return nil
	}
}

func (s *session) repo() (*repositories.TrackRepository, error) {
	path := s.collectionPath()
	if path == "" {
		return nil, shared.ErrNoCollection
	}
	return s.hub.open(path)
}

// startSearch replaces the running search. An empty query only cancels.
func (s *session) startSearch(ctx context.Context, msg *protocol.Search) error {
	if strings.TrimSpace(msg.Query) == "" {
		s.replaceSearch(nil)
		return nil
	}
	if s.hub.search == nil {
		s.replaceSearch(nil)
		return fmt.Errorf("%w: search", shared.ErrServiceUnavailable)
	}

	limit := msg.Limit
	if limit <= 0 {
		limit = s.hub.cfg.SearchLimit
	}

	searchCtx, cancel := context.WithCancel(ctx)
	s.replaceSearch(cancel)

	query := *msg
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer cancel()
		s.runSearch(searchCtx, query, limit)
	}()
	return nil
}

// runSearch streams results as they resolve. A cancelled search sends no completion.
func (s *session) runSearch(ctx context.Context, msg protocol.Search, limit int) {
	log := s.logger.With("query_id", msg.QueryID, "kind", msg.Kind)
	log.Info("searching", "query", msg.Query)

	results := make(chan models.Track)
	errc := make(chan error, 1)
	go func() {
		defer close(results)
		_, err := s.hub.search.Search(ctx, msg.Kind, msg.Query, limit, results)
		errc <- err
	}()

	n := 0
	for track := range results {
		n++
		s.send(&protocol.SearchResult{QueryID: msg.QueryID, Track: track})
	}
	err := <-errc

	if ctx.Err() != nil {
		log.Info("search cancelled", "results", n)
		return
	}
	if err != nil {
		log.Error("search failed", "err", err)
		s.notify(protocol.NotifyError, fmt.Sprintf("search failed: %v", err))
	}
	log.Info("search complete", "results", n)
	s.send(&protocol.SearchComplete{QueryID: msg.QueryID})
}

func (s *session) searchTrack(msg *protocol.SearchTrack) error {
	if s.hub.search == nil {
		return fmt.Errorf("%w: search", shared.ErrServiceUnavailable)
	}

	id := protocol.Correlation{ID: msg.ID}
	s.spawn(msg, func(ctx context.Context) error {
		track, err := s.hub.search.FindTrack(ctx, msg.Title, msg.Artist)
		if errors.Is(err, shared.ErrNoResults) {
			s.send(&protocol.TrackNotFound{Correlation: id})
			return nil
		}
		if err != nil {
			return err
		}

		exists := false
		if repo, err := s.repo(); err == nil {
			if exists, err = repo.Exists(track.YTID); err != nil {
				return err
			}
		}
		s.send(&protocol.TrackFound{Correlation: id, Track: *track, Exists: exists})
		return nil
	})
	return nil
}

func (s *session) anonPlaylist(msg *protocol.CreateYTAnonPlaylist) error {
	if s.hub.playlists == nil {
		return fmt.Errorf("%w: playlists", shared.ErrServiceUnavailable)
	}

	s.spawn(msg, func(ctx context.Context) error {
		url, err := s.hub.playlists.AnonPlaylist(ctx, msg.YTIDs)
		if err != nil {
			return err
		}
		s.send(&protocol.YTAnonPlaylist{Correlation: protocol.Correlation{ID: msg.ID}, URL: url})
		return nil
	})
	return nil
}

// setCollectionPath selects the collection at msg.Path, or deselects and
// suggests completions when it is not a valid collection.
func (s *session) setCollectionPath(msg *protocol.SetCollection) error {
	id := msg.ID
	path := cleanPath(msg.Path)

	if err := repositories.ValidateCollection(path); err != nil {
		s.logger.Info("rejected collection", "path", path, "err", err)
		s.setCollection(nil)
		errMsg := msgInvalidCollection
		s.send(&protocol.CollectionInfo{
			ID:              id,
			ErrorMessage:    &errMsg,
			PathCompletions: shared.PathCompletions(s.hub.fs, msg.Path),
		})
		return nil
	}

	repo, err := s.hub.open(path)
	if err != nil {
		return err
	}
	col, err := repo.Collection()
	if err != nil {
		return err
	}
	col.Path = path

	s.setCollection(&col)
	info := col
	s.send(&protocol.CollectionInfo{ID: id, Collection: &info})
	return nil
}

func (s *session) createCollection(msg *protocol.CreateCollection) error {
	path := cleanPath(msg.Path)

	if _, err := os.Stat(path); err == nil {
		s.notify(protocol.NotifyError, msgFileExists)
		return nil
	}

	repo, err := s.hub.open(path)
	if err != nil {
		return err
	}
	col, err := repo.Collection()
	if err != nil {
		return err
	}
	col.Path = path

	s.setCollection(&col)
	info := col
	s.send(&protocol.CollectionInfo{Collection: &info})
	return nil
}

// exportTracks copies tracks into another collection, creating it if needed.
// Tracks already present there are kept.
func (s *session) exportTracks(msg *protocol.ExportTracksToCollection) error {
	path := cleanPath(msg.Collection)

	if _, err := os.Stat(path); err == nil {
		if err := repositories.ValidateCollection(path); err != nil {
			return err
		}
	}

	repo, err := s.hub.open(path)
	if err != nil {
		return err
	}
	n, err := repo.InsertMany(msg.Tracks, false)
	if err != nil {
		return err
	}

	s.notify(protocol.NotifyInfo, fmt.Sprintf("exported %d tracks to %s", n, msg.Collection))
	s.hub.publish(path, &protocol.ReloadTracks{})
	return s.hub.refresh(path)
}
