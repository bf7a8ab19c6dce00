package tasks

import (
	"fmt"

	"github.com/desertthunder/stereo/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveTracks Phase = iota
	SaveTracks
)

func (p Phase) String() string {
	switch p {
	case ResolveTracks:
		return "resolve_tracks"
	case SaveTracks:
		return "save_tracks"
	default:
		return ""
	}
}

func resolveStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Searching for %d tracks...", total),
	}
}

func resolvedUpdate(step, total int, res EntryResult) ProgressUpdate {
	if res.Error != nil {
		return ProgressUpdate{
			Phase:   ResolveTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Entry, res.Error),
			Data:    res,
		}
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s → %s", step, total, res.Entry, res.Track.YTID),
		Data:    res,
	}
}

func saveUpdate(tracks []models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saving %d tracks...", len(tracks)),
	}
}
