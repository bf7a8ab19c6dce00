package state

import (
	"time"

	"github.com/desertthunder/stereo/internal/client"
	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
)

// Action is an input to [Reduce].
type Action interface {
	action()
}

// Server pushes.
type (
	BackendInfoReceived struct{ Version string }

	DefaultCollectionReceived struct{ Collection models.Collection }

	// CollectionChanged carries either a collection or the reason one was rejected.
	CollectionChanged struct {
		Collection      *models.Collection
		Error           string
		PathCompletions []string
	}

	PathCompletionsReceived struct{ Paths []string }

	TracksReloaded struct{}

	TrackUpdated struct{ Track models.Track }

	SearchResultsReceived struct {
		QueryID int
		Tracks  []models.Track
	}

	SearchCompleted struct{ QueryID int }

	Notified struct {
		Message string
		Kind    string
	}

	ImportChecked struct {
		Path  string
		Valid bool
	}

	PlayRequested struct{ YTID string }
)

// Connection events.
type (
	ConnectionChanged struct {
		Status client.Status
		Err    error
	}

	LatencyMeasured struct{ Latency time.Duration }
)

// UI intent.
type (
	// SetSearch starts a new search; results of earlier query ids are ignored from then on.
	SetSearch struct {
		QueryID int
		Query   string
		Kind    string
	}

	CancelSearch struct{}

	SetSort struct{ Model models.SortModel }

	SetFilter struct{ Text string }

	Select struct {
		YTID     string
		Selected bool
	}

	ClearSelection struct{}

	Play struct{ YTID string }

	Dismiss struct{ ID int }

	SetImportPath struct{ Path string }

	RowsLoaded struct {
		Start   int
		Tracks  []models.Track
		LastRow *int
	}
)

func (BackendInfoReceived) action()       {}
func (DefaultCollectionReceived) action() {}
func (CollectionChanged) action()         {}
func (PathCompletionsReceived) action()   {}
func (TracksReloaded) action()            {}
func (TrackUpdated) action()              {}
func (SearchResultsReceived) action()     {}
func (SearchCompleted) action()           {}
func (Notified) action()                  {}
func (ImportChecked) action()             {}
func (PlayRequested) action()             {}
func (ConnectionChanged) action()         {}
func (LatencyMeasured) action()           {}
func (SetSearch) action()                 {}
func (CancelSearch) action()              {}
func (SetSort) action()                   {}
func (SetFilter) action()                 {}
func (Select) action()                    {}
func (ClearSelection) action()            {}
func (Play) action()                      {}
func (Dismiss) action()                   {}
func (SetImportPath) action()             {}
func (RowsLoaded) action()                {}

// FromMessage maps a server push to its action. Heartbeats and late replies
// other than errors have no action.
func FromMessage(m protocol.Message) (Action, bool) {
	switch m := m.(type) {
	case *protocol.BackendInfo:
		return BackendInfoReceived{Version: m.Version}, true
	case *protocol.DefaultCollection:
		return DefaultCollectionReceived{Collection: m.Collection}, true
	case *protocol.CollectionInfo:
		a := CollectionChanged{Collection: m.Collection, PathCompletions: m.PathCompletions}
		if m.ErrorMessage != nil {
			a.Error = *m.ErrorMessage
		}
		return a, true
	case *protocol.PathCompletions:
		return PathCompletionsReceived{Paths: m.Paths}, true
	case *protocol.ReloadTracks:
		return TracksReloaded{}, true
	case *protocol.TrackUpdate:
		return TrackUpdated{Track: m.Track}, true
	case *protocol.TrackInfo:
		return TrackUpdated{Track: m.Track}, true
	case *protocol.SearchResult:
		return SearchResultsReceived{QueryID: m.QueryID, Tracks: []models.Track{m.Track}}, true
	case *protocol.SearchResults:
		return SearchResultsReceived{QueryID: m.QueryID, Tracks: m.Tracks}, true
	case *protocol.SearchComplete:
		return SearchCompleted{QueryID: m.QueryID}, true
	case *protocol.Notification:
		return Notified{Message: m.Message, Kind: m.Kind}, true
	case *protocol.ImportFromValid:
		return ImportChecked{Path: m.Path, Valid: m.IsValid}, true
	case *protocol.PlayID:
		return PlayRequested{YTID: m.YTID}, true
	case *protocol.Error:
		return Notified{Message: m.Message, Kind: protocol.NotifyError}, true
	default:
		return nil, false
	}
}
