// package services scrapes the public catalogues used to find and describe tracks
//
// Beatport, YouTube, MusicBrainz
package services

import (
	"context"

	"github.com/desertthunder/stereo/internal/models"
)

// Catalogue is a store listing released tracks with label and artist metadata.
type Catalogue interface {
	// SearchTracks returns tracks matching free text.
	SearchTracks(ctx context.Context, query string) ([]models.BeatportTrack, error)

	// SearchArtists returns at most limit artists matching name.
	SearchArtists(ctx context.Context, name string, limit int) ([]models.BeatportArtist, error)

	// SearchLabels returns at most limit labels matching name.
	SearchLabels(ctx context.Context, name string, limit int) ([]models.BeatportLabel, error)

	// ArtistReleases lists an artist's tracks published within [from, to].
	// A nil bound is open.
	ArtistReleases(ctx context.Context, artist models.BeatportArtist, from, to *models.Date) ([]models.BeatportTrack, error)

	// LabelReleases lists a label's tracks published within [from, to].
	LabelReleases(ctx context.Context, label models.BeatportLabel, from, to *models.Date) ([]models.BeatportTrack, error)
}

// VideoSearcher finds videos on the video platform.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]models.Video, error)
}

// RecordingSearcher looks up recordings in a metadata database.
type RecordingSearcher interface {
	SearchRecordings(ctx context.Context, query string) ([]models.Recording, error)
}
