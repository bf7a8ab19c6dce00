package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/desertthunder/stereo/internal/models"
)

const defaultMusicBrainzURL = "https://musicbrainz.org"

type mbRecording struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	FirstReleaseDate string `json:"first-release-date"`
	ArtistCredit     []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
}

// MusicBrainz queries the MusicBrainz web service.
type MusicBrainz struct {
	baseURL string
	client  *HTTPClient
}

func NewMusicBrainz(baseURL string, client *HTTPClient) *MusicBrainz {
	if baseURL == "" {
		baseURL = defaultMusicBrainzURL
	}
	if client == nil {
		client = NewHTTPClient()
	}
	return &MusicBrainz{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// SearchRecordings runs a Lucene query such as `recording:"houdini" AND artist:"dua lipa"`.
func (m *MusicBrainz) SearchRecordings(ctx context.Context, query string) ([]models.Recording, error) {
	resp, err := m.client.Get(ctx, m.baseURL+"/ws/2/recording", url.Values{
		"fmt":   {"json"},
		"query": {query},
	})
	if err != nil {
		return nil, err
	}

	var data struct {
		Recordings []mbRecording `json:"recordings"`
	}
	if err := resp.JSON(&data); err != nil {
		return nil, err
	}

	recs := make([]models.Recording, 0, len(data.Recordings))
	for _, r := range data.Recordings {
		rec := models.Recording{ID: r.ID, Title: r.Title, Artists: make([]string, 0, len(r.ArtistCredit))}
		for _, a := range r.ArtistCredit {
			rec.Artists = append(rec.Artists, a.Name)
		}
		// Partial dates such as "2019" are left unset.
		if len(r.FirstReleaseDate) == len(models.DateLayout) {
			if d, err := models.ParseDate(r.FirstReleaseDate); err == nil {
				rec.ReleaseDate = &d
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// RecordingQuery builds the query for a title and artist.
func RecordingQuery(title, artist string) string {
	q := `recording:"` + escapeLucene(title) + `"`
	if artist != "" {
		q += ` AND artist:"` + escapeLucene(artist) + `"`
	}
	return q
}

func escapeLucene(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
