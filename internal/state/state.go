// Package state mirrors server pushes and local UI intent into one flat value.
//
// [Reduce] is a pure function from a [State] and an [Action] to the next State.
// [Store] owns the current State, serializes dispatch and implements
// [client.Handler] so a client can feed it directly.
package state

import (
	"time"

	"github.com/desertthunder/stereo/internal/client"
	"github.com/desertthunder/stereo/internal/models"
)

// maxNotifications bounds the notification list; the oldest are dropped first.
const maxNotifications = 20

type Notification struct {
	ID      int
	Message string
	Kind    string
}

type Search struct {
	QueryID int
	Query   string
	Kind    string
	Results []models.Track
	Running bool
}

type Import struct {
	Path    string
	Checked bool
	Valid   bool
}

// Rows is the window of the grid last loaded from the server.
type Rows struct {
	Start   int
	Tracks  []models.Track
	LastRow *int
}

type State struct {
	Status      client.Status
	StatusError string
	Latency     time.Duration

	BackendVersion    string
	DefaultCollection *models.Collection
	Collection        *models.Collection
	CollectionError   string
	PathCompletions   []string

	// RowsGeneration changes whenever loaded rows may be stale.
	RowsGeneration int
	Rows           Rows
	Tracks         map[string]models.Track

	Search Search

	Notifications      []Notification
	NextNotificationID int

	NowPlaying string
	Import     Import
	Sort       models.SortModel
	Filter     string
	Selected   map[string]bool
}

// New returns the state of a client that has not connected yet.
func New() State {
	return State{
		Status:             client.StatusDisconnected,
		Tracks:             map[string]models.Track{},
		Selected:           map[string]bool{},
		NextNotificationID: 1,
	}
}

// SelectedIDs returns the selected track ids in grid order, followed by any not loaded.
func (s State) SelectedIDs() []string {
	ids := make([]string, 0, len(s.Selected))
	seen := make(map[string]bool, len(s.Selected))
	for _, t := range s.Rows.Tracks {
		if s.Selected[t.YTID] {
			ids = append(ids, t.YTID)
			seen[t.YTID] = true
		}
	}
	for id, on := range s.Selected {
		if on && !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Track returns the cached copy of a track.
func (s State) Track(ytID string) (models.Track, bool) {
	t, ok := s.Tracks[ytID]
	return t, ok
}

// FilterModel is the grid filter sent with row requests. The filter box matches titles.
func (s State) FilterModel() models.FilterModel {
	if s.Filter == "" {
		return nil
	}
	return models.FilterModel{"title": models.TextFilter(s.Filter)}
}
