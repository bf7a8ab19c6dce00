// YouTube [VideoSearcher] implementation
//
// Talks to the innertube API used by the YouTube web and mobile clients.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

const (
	defaultYTBaseURL = "https://www.youtube.com"
	musicWatchURL    = "https://music.youtube.com/watch"
	innertubeKey     = "AIzaSyDummyKey"
)

// InnertubeClient is a client identity the innertube API accepts.
type InnertubeClient struct {
	Name    string
	Version string
}

// DefaultClients are tried in order until one returns results.
var DefaultClients = []InnertubeClient{
	{Name: "WEB", Version: "2.20240201.00.00"},
	{Name: "MWEB", Version: "2.20240201.00.00"},
	{Name: "ANDROID", Version: "19.09.37"},
}

type ytRuns struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r ytRuns) text() string {
	if len(r.Runs) == 0 {
		return ""
	}
	return r.Runs[0].Text
}

type ytVideoRenderer struct {
	VideoID        string `json:"videoId"`
	Title          ytRuns `json:"title"`
	OwnerText      ytRuns `json:"ownerText"`
	LongBylineText ytRuns `json:"longBylineText"`
}

type ytSearchResponse struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []struct {
						ItemSectionRenderer struct {
							Contents []struct {
								VideoRenderer *ytVideoRenderer `json:"videoRenderer"`
							} `json:"contents"`
						} `json:"itemSectionRenderer"`
					} `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

// videos flattens the response into at most limit videos.
func (r ytSearchResponse) videos(limit int) []models.Video {
	videos := []models.Video{}
	sections := r.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents
	for _, section := range sections {
		for _, item := range section.ItemSectionRenderer.Contents {
			v := item.VideoRenderer
			if v == nil || v.VideoID == "" {
				continue
			}

			channel := v.OwnerText.text()
			if channel == "" {
				channel = v.LongBylineText.text()
			}
			videos = append(videos, models.Video{ID: v.VideoID, Title: v.Title.text(), Channel: channel})

			if limit > 0 && len(videos) >= limit {
				return videos
			}
		}
	}
	return videos
}

// YouTubeService searches YouTube without an account.
type YouTubeService struct {
	baseURL string
	client  *HTTPClient
	clients []InnertubeClient
}

// NewYouTubeService creates a YouTube client for baseURL; empty means the public site.
func NewYouTubeService(baseURL string, client *HTTPClient) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = NewHTTPClient()
	}

	return &YouTubeService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		clients: DefaultClients,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// SearchVideos returns at most limit videos for query.
//
// Calls POST /youtubei/v1/search once per client identity until one has results.
// An empty result is not an error; failing with every identity is.
func (y *YouTubeService) SearchVideos(ctx context.Context, query string, limit int) ([]models.Video, error) {
	var errs []error
	for _, c := range y.clients {
		body := map[string]any{
			"context": map[string]any{
				"client": map[string]string{
					"clientName":    c.Name,
					"clientVersion": c.Version,
				},
			},
			"query": query,
		}

		resp, err := y.client.PostJSON(ctx, y.baseURL+"/youtubei/v1/search", url.Values{"key": {innertubeKey}}, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s client: %w", c.Name, err))
			continue
		}

		var data ytSearchResponse
		if err := resp.JSON(&data); err != nil {
			errs = append(errs, fmt.Errorf("%s client: %w", c.Name, err))
			continue
		}

		if videos := data.videos(limit); len(videos) > 0 {
			return videos, nil
		}
	}

	if len(errs) == len(y.clients) && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, errors.Join(errs...))
	}
	return []models.Video{}, nil
}

// SearchTrack returns the best matching video for a title and artist.
func (y *YouTubeService) SearchTrack(ctx context.Context, title, artist string) (*models.Video, error) {
	videos, err := y.SearchVideos(ctx, strings.TrimSpace(title+" "+artist), 10)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: '%s' by '%s'", shared.ErrNoResults, title, artist)
	}

	best, ok := SelectVideo(title, artist, videos)
	if !ok {
		return nil, fmt.Errorf("%w: no close match for '%s' by '%s'", shared.ErrNoResults, title, artist)
	}
	return &best, nil
}

// AnonPlaylist builds a playlist of ytIDs that needs no account.
//
// The watch_videos endpoint redirects to a watch page carrying a generated list id,
// which is then opened on YouTube Music.
func (y *YouTubeService) AnonPlaylist(ctx context.Context, ytIDs []string) (string, error) {
	if len(ytIDs) == 0 {
		return "", fmt.Errorf("%w: no video ids", shared.ErrInvalidInput)
	}

	resp, err := y.client.Get(ctx, y.baseURL+"/watch_videos", url.Values{"video_ids": {strings.Join(ytIDs, ",")}})
	if err != nil {
		return "", err
	}

	list := resp.FinalURL.Query().Get("list")
	if list == "" {
		return "", fmt.Errorf("%w: redirect carried no playlist id", shared.ErrNoResults)
	}
	return musicWatchURL + "?list=" + url.QueryEscape(list), nil
}
