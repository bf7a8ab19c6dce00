package state

import (
	"maps"
	"slices"

	"github.com/desertthunder/stereo/internal/client"
	"github.com/desertthunder/stereo/internal/models"
)

// Reduce returns the state that follows s after a. It never modifies s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case ConnectionChanged:
		s.Status = a.Status
		s.StatusError = ""
		if a.Err != nil {
			s.StatusError = a.Err.Error()
		}
		if a.Status == client.StatusConnected {
			// Whatever was loaded belongs to the previous connection.
			s.RowsGeneration++
		}
		if a.Status == client.StatusDisconnected {
			s.Search.Running = false
		}

	case LatencyMeasured:
		s.Latency = a.Latency

	case BackendInfoReceived:
		s.BackendVersion = a.Version

	case DefaultCollectionReceived:
		c := a.Collection
		s.DefaultCollection = &c
		if s.Collection == nil {
			s.Collection = &c
			s.RowsGeneration++
		}

	case CollectionChanged:
		if a.Collection != nil {
			c := *a.Collection
			if s.Collection == nil || s.Collection.Path != c.Path {
				s.RowsGeneration++
				s.Selected = map[string]bool{}
			}
			s.Collection = &c
			s.CollectionError = ""
			s.PathCompletions = nil
		} else {
			// The server deselects its collection when it rejects a path.
			if s.Collection != nil {
				s.RowsGeneration++
			}
			s.Collection = nil
			s.Rows = Rows{}
			s.Selected = map[string]bool{}
			s.CollectionError = a.Error
			s.PathCompletions = slices.Clone(a.PathCompletions)
		}

	case PathCompletionsReceived:
		s.PathCompletions = slices.Clone(a.Paths)

	case TracksReloaded:
		s.RowsGeneration++

	case TrackUpdated:
		s = patchTrack(s, a.Track)

	case RowsLoaded:
		s.Rows = Rows{Start: a.Start, Tracks: slices.Clone(a.Tracks), LastRow: a.LastRow}
		tracks := maps.Clone(s.Tracks)
		if tracks == nil {
			tracks = map[string]models.Track{}
		}
		for _, t := range a.Tracks {
			tracks[t.YTID] = t
		}
		s.Tracks = tracks

	case SetSearch:
		s.Search = Search{
			QueryID: a.QueryID,
			Query:   a.Query,
			Kind:    a.Kind,
			Running: a.Query != "",
		}

	case CancelSearch:
		s.Search.Running = false

	case SearchResultsReceived:
		if a.QueryID != s.Search.QueryID {
			break
		}
		results := make([]models.Track, 0, len(s.Search.Results)+len(a.Tracks))
		results = append(results, s.Search.Results...)
		s.Search.Results = append(results, a.Tracks...)

	case SearchCompleted:
		if a.QueryID == s.Search.QueryID {
			s.Search.Running = false
		}

	case Notified:
		s = notify(s, a.Message, a.Kind)

	case Dismiss:
		s.Notifications = slices.DeleteFunc(slices.Clone(s.Notifications), func(n Notification) bool {
			return n.ID == a.ID
		})

	case ImportChecked:
		if a.Path == s.Import.Path {
			s.Import.Checked = true
			s.Import.Valid = a.Valid
		}

	case SetImportPath:
		s.Import = Import{Path: a.Path}

	case PlayRequested:
		s.NowPlaying = a.YTID

	case Play:
		s.NowPlaying = a.YTID

	case SetSort:
		s.Sort = slices.Clone(a.Model)
		s.RowsGeneration++

	case SetFilter:
		if a.Text != s.Filter {
			s.Filter = a.Text
			s.RowsGeneration++
		}

	case Select:
		selected := maps.Clone(s.Selected)
		if selected == nil {
			selected = map[string]bool{}
		}
		if a.Selected {
			selected[a.YTID] = true
		} else {
			delete(selected, a.YTID)
		}
		s.Selected = selected

	case ClearSelection:
		s.Selected = map[string]bool{}
	}

	return s
}

// patchTrack replaces every copy of t held in s.
func patchTrack(s State, t models.Track) State {
	tracks := maps.Clone(s.Tracks)
	if tracks == nil {
		tracks = map[string]models.Track{}
	}
	tracks[t.YTID] = t
	s.Tracks = tracks

	s.Rows.Tracks = replaceTrack(s.Rows.Tracks, t)
	s.Search.Results = replaceTrack(s.Search.Results, t)
	return s
}

func replaceTrack(list []models.Track, t models.Track) []models.Track {
	idx := slices.IndexFunc(list, func(x models.Track) bool { return x.YTID == t.YTID })
	if idx < 0 {
		return list
	}
	out := slices.Clone(list)
	out[idx] = t
	return out
}

func notify(s State, msg, kind string) State {
	n := Notification{ID: s.NextNotificationID, Message: msg, Kind: kind}
	if n.ID == 0 {
		n.ID = 1
	}
	s.NextNotificationID = n.ID + 1

	list := make([]Notification, 0, len(s.Notifications)+1)
	list = append(list, s.Notifications...)
	list = append(list, n)
	if len(list) > maxNotifications {
		list = list[len(list)-maxNotifications:]
	}
	s.Notifications = list
	return s
}
