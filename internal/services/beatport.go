// Beatport [Catalogue] implementation
//
// Scrapes the JSON that Beatport's Next.js pages embed in their __NEXT_DATA__ script.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

const (
	defaultBeatportURL = "https://www.beatport.com"
	releasesPerPage    = 1000
)

// earliestRelease opens a release window that only has an end.
var earliestRelease = models.MustParseDate("1990-01-01")

type nextData struct {
	Props struct {
		PageProps struct {
			DehydratedState struct {
				Queries []nextQuery `json:"queries"`
			} `json:"dehydratedState"`
		} `json:"pageProps"`
	} `json:"props"`
}

// nextQuery is one dehydrated react-query entry. Fields are kept raw because
// their shapes vary between queries on the same page.
type nextQuery struct {
	QueryKey json.RawMessage `json:"queryKey"`
	State    struct {
		Data json.RawMessage `json:"data"`
	} `json:"state"`
}

// hasKey reports whether the query key contains key.
func (q nextQuery) hasKey(key string) bool {
	var parts []any
	if json.Unmarshal(q.QueryKey, &parts) != nil {
		return false
	}
	for _, k := range parts {
		if s, ok := k.(string); ok && s == key {
			return true
		}
	}
	return false
}

// items decodes the list at state.data[field] into v, reporting false when
// the query has no such list.
func (q nextQuery) items(field string, v any) bool {
	var data map[string]json.RawMessage
	if json.Unmarshal(q.State.Data, &data) != nil {
		return false
	}
	raw := data[field]
	if len(raw) == 0 || raw[0] != '[' {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

type bpSearchTrack struct {
	Artists []struct {
		Name string `json:"artist_name"`
	} `json:"artists"`
	BPM     *int    `json:"bpm"`
	KeyName *string `json:"key_name"`
	ISRC    *string `json:"isrc"`
	Label   struct {
		Name string `json:"label_name"`
	} `json:"label"`
	ReleaseDate string `json:"release_date"`
	TrackID     int    `json:"track_id"`
	TrackName   string `json:"track_name"`
	MixName     string `json:"mix_name"`
	Genre       []struct {
		Name string `json:"genre_name"`
	} `json:"genre"`
}

type bpSearchArtist struct {
	Name     string `json:"artist_name"`
	ID       int    `json:"artist_id"`
	ImageURI string `json:"artist_image_uri"`
}

type bpSearchLabel struct {
	Name string `json:"label_name"`
	ID   int    `json:"label_id"`
}

type bpName struct {
	Name string `json:"name"`
}

type bpReleaseTrack struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	MixName        string   `json:"mix_name"`
	ISRC           string   `json:"isrc"`
	BPM            *int     `json:"bpm"`
	Key            *bpName  `json:"key"`
	Genre          *bpName  `json:"genre"`
	NewReleaseDate string   `json:"new_release_date"`
	Artists        []bpName `json:"artists"`
	Release        struct {
		Label bpName `json:"label"`
	} `json:"release"`
}

// Beatport reads the Beatport web store.
type Beatport struct {
	baseURL string
	client  *HTTPClient
}

// NewBeatport creates a scraper for baseURL; empty means the public site.
func NewBeatport(baseURL string, client *HTTPClient) *Beatport {
	if baseURL == "" {
		baseURL = defaultBeatportURL
	}
	if client == nil {
		client = NewHTTPClient()
	}
	return &Beatport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (b *Beatport) Name() string {
	return "Beatport"
}

// SearchTracks calls GET /search/tracks?q={query}.
func (b *Beatport) SearchTracks(ctx context.Context, query string) ([]models.BeatportTrack, error) {
	queries, err := b.queries(ctx, "/search/tracks", url.Values{
		"q":        {query},
		"per_page": {strconv.Itoa(releasesPerPage)},
		"page":     {"1"},
	})
	if err != nil {
		return nil, err
	}

	tracks := []models.BeatportTrack{}
	for _, q := range queries {
		var items []bpSearchTrack
		if !q.items("data", &items) {
			continue
		}
		for _, item := range items {
			if item.TrackID == 0 {
				continue
			}
			tracks = append(tracks, item.toModel())
		}
	}
	return tracks, nil
}

// SearchArtists calls GET /search/artists?q={name}.
func (b *Beatport) SearchArtists(ctx context.Context, name string, limit int) ([]models.BeatportArtist, error) {
	queries, err := b.queries(ctx, "/search/artists", url.Values{"q": {name}})
	if err != nil {
		return nil, err
	}

	artists := []models.BeatportArtist{}
	for _, q := range queries {
		var items []bpSearchArtist
		if !q.items("data", &items) {
			continue
		}
		for _, item := range items {
			if item.ID == 0 {
				continue
			}
			artists = append(artists, models.BeatportArtist{
				ID:       item.ID,
				Name:     strings.TrimSpace(item.Name),
				ImageURI: item.ImageURI,
			})
			if limit > 0 && len(artists) >= limit {
				return artists, nil
			}
		}
	}
	return artists, nil
}

// SearchLabels calls GET /search/labels?q={name}.
func (b *Beatport) SearchLabels(ctx context.Context, name string, limit int) ([]models.BeatportLabel, error) {
	queries, err := b.queries(ctx, "/search/labels", url.Values{"q": {name}})
	if err != nil {
		return nil, err
	}

	labels := []models.BeatportLabel{}
	for _, q := range queries {
		var items []bpSearchLabel
		if !q.items("data", &items) {
			continue
		}
		for _, item := range items {
			if item.ID == 0 {
				continue
			}
			labels = append(labels, models.BeatportLabel{ID: item.ID, Name: strings.TrimSpace(item.Name)})
			if limit > 0 && len(labels) >= limit {
				return labels, nil
			}
		}
	}
	return labels, nil
}

// ArtistReleases calls GET /artist/{name}/{id}/tracks.
func (b *Beatport) ArtistReleases(ctx context.Context, artist models.BeatportArtist, from, to *models.Date) ([]models.BeatportTrack, error) {
	return b.releases(ctx, "artist", artist.Name, artist.ID, from, to)
}

// LabelReleases calls GET /label/{name}/{id}/tracks.
func (b *Beatport) LabelReleases(ctx context.Context, label models.BeatportLabel, from, to *models.Date) ([]models.BeatportTrack, error) {
	return b.releases(ctx, "label", label.Name, label.ID, from, to)
}

func (b *Beatport) releases(ctx context.Context, kind, name string, id int, from, to *models.Date) ([]models.BeatportTrack, error) {
	params := url.Values{
		"page":     {"1"},
		"per_page": {strconv.Itoa(releasesPerPage)},
	}
	if window := publishWindow(from, to); window != "" {
		params.Set("publish_date", window)
	}

	endpoint := fmt.Sprintf("/%s/%s/%d/tracks", kind, url.PathEscape(name), id)
	queries, err := b.queries(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	tracks := []models.BeatportTrack{}
	for _, q := range queries {
		if !q.hasKey("tracks") {
			continue
		}
		var items []bpReleaseTrack
		if !q.items("results", &items) {
			continue
		}
		for _, item := range items {
			if item.ID == 0 {
				continue
			}
			tracks = append(tracks, item.toModel())
		}
	}
	return tracks, nil
}

// publishWindow formats the publish_date filter; an open start means 1990-01-01
// and an open end means today.
func publishWindow(from, to *models.Date) string {
	if from == nil && to == nil {
		return ""
	}

	start, end := earliestRelease, models.Today()
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}
	return start.String() + ":" + end.String()
}

func (b *Beatport) queries(ctx context.Context, endpoint string, params url.Values) ([]nextQuery, error) {
	resp, err := b.client.Get(ctx, b.baseURL+endpoint, params)
	if err != nil {
		return nil, err
	}

	raw, err := extractNextData(resp.Body)
	if err != nil {
		return nil, err
	}

	var data nextData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: __NEXT_DATA__: %v", shared.ErrMalformed, err)
	}
	return data.Props.PageProps.DehydratedState.Queries, nil
}

// extractNextData returns the text of the <script id="__NEXT_DATA__"> element.
func extractNextData(page []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(page))
	inNextData := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil, fmt.Errorf("%w: page has no __NEXT_DATA__ script", shared.ErrMalformed)
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "id" && string(val) == "__NEXT_DATA__" {
					inNextData = true
					break
				}
				if !more {
					break
				}
			}
		case html.TextToken:
			if inNextData {
				return bytes.Clone(z.Text()), nil
			}
		case html.EndTagToken:
			inNextData = false
		}
	}
}

func (item bpSearchTrack) toModel() models.BeatportTrack {
	t := models.BeatportTrack{
		ID:      item.TrackID,
		Name:    strings.TrimSpace(item.TrackName),
		MixName: strings.TrimSpace(item.MixName),
		BPM:     item.BPM,
		Key:     item.KeyName,
		ISRC:    item.ISRC,
		Label:   strings.TrimSpace(item.Label.Name),
		Artists: make([]string, 0, len(item.Artists)),
		Genres:  make([]string, 0, len(item.Genre)),
	}
	for _, a := range item.Artists {
		t.Artists = append(t.Artists, strings.TrimSpace(a.Name))
	}
	for _, g := range item.Genre {
		t.Genres = append(t.Genres, strings.TrimSpace(g.Name))
	}
	if d, err := models.ParseDate(item.ReleaseDate); err == nil {
		t.ReleaseDate = &d
	}
	return t
}

func (item bpReleaseTrack) toModel() models.BeatportTrack {
	t := models.BeatportTrack{
		ID:      item.ID,
		Name:    strings.TrimSpace(item.Name),
		MixName: strings.TrimSpace(item.MixName),
		BPM:     item.BPM,
		Label:   strings.TrimSpace(item.Release.Label.Name),
		Artists: make([]string, 0, len(item.Artists)),
	}
	for _, a := range item.Artists {
		t.Artists = append(t.Artists, strings.TrimSpace(a.Name))
	}
	if isrc := strings.TrimSpace(item.ISRC); isrc != "" {
		t.ISRC = &isrc
	}
	if item.Key != nil {
		key := strings.TrimSpace(item.Key.Name)
		t.Key = &key
	}
	if item.Genre != nil {
		t.Genres = []string{strings.TrimSpace(item.Genre.Name)}
	}
	if d, err := models.ParseDate(item.NewReleaseDate); err == nil {
		t.ReleaseDate = &d
	}
	return t
}
