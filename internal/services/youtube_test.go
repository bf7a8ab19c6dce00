package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

func searchResponse(videos ...map[string]any) map[string]any {
	items := make([]map[string]any, 0, len(videos)+1)
	// Non-video items such as shelves are skipped.
	items = append(items, map[string]any{"shelfRenderer": map[string]any{}})
	for _, v := range videos {
		items = append(items, map[string]any{"videoRenderer": v})
	}
	return map[string]any{
		"contents": map[string]any{
			"twoColumnSearchResultsRenderer": map[string]any{
				"primaryContents": map[string]any{
					"sectionListRenderer": map[string]any{
						"contents": []any{
							map[string]any{"itemSectionRenderer": map[string]any{"contents": items}},
						},
					},
				},
			},
		},
	}
}

func video(id, title, owner string) map[string]any {
	v := map[string]any{
		"videoId": id,
		"title":   map[string]any{"runs": []any{map[string]any{"text": title}}},
	}
	if owner != "" {
		v["ownerText"] = map[string]any{"runs": []any{map[string]any{"text": owner}}}
	} else {
		v["longBylineText"] = map[string]any{"runs": []any{map[string]any{"text": "byline"}}}
	}
	return v
}

func TestYouTubeService(t *testing.T) {
	t.Run("NewYouTubeService", func(t *testing.T) {
		t.Run("creates service with default URL", func(t *testing.T) {
			if svc := NewYouTubeService("", nil); svc.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultYTBaseURL, svc.baseURL)
			}
		})

		t.Run("creates service with custom URL", func(t *testing.T) {
			customURL := "http://localhost:9000"
			if svc := NewYouTubeService(customURL, nil); svc.baseURL != customURL {
				t.Errorf("expected baseURL to be %s, got %s", customURL, svc.baseURL)
			}
		})
	})

	t.Run("Name", func(t *testing.T) {
		if svc := NewYouTubeService("", nil); svc.Name() != "YouTube" {
			t.Errorf("expected name to be 'YouTube', got %s", svc.Name())
		}
	})

	t.Run("SearchVideos", func(t *testing.T) {
		t.Run("parses video renderers", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/youtubei/v1/search" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if r.URL.Query().Get("key") == "" {
					t.Error("expected key parameter")
				}

				var body struct {
					Context struct {
						Client struct {
							ClientName string `json:"clientName"`
						} `json:"client"`
					} `json:"context"`
					Query string `json:"query"`
				}
				json.NewDecoder(r.Body).Decode(&body)
				if body.Context.Client.ClientName != "WEB" {
					t.Errorf("expected WEB client first, got %s", body.Context.Client.ClientName)
				}
				if body.Query != "glue bicep" {
					t.Errorf("expected query 'glue bicep', got %q", body.Query)
				}

				json.NewEncoder(w).Encode(searchResponse(
					video("aaa", "Bicep - Glue", "Ninja Tune"),
					video("bbb", "Glue (Live)", ""),
					video("ccc", "Other", "x"),
				))
			}))
			defer server.Close()

			videos, err := NewYouTubeService(server.URL, testClient()).SearchVideos(context.Background(), "glue bicep", 2)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(videos) != 2 {
				t.Fatalf("expected limit of 2 videos, got %d", len(videos))
			}
			if videos[0] != (models.Video{ID: "aaa", Title: "Bicep - Glue", Channel: "Ninja Tune"}) {
				t.Errorf("unexpected first video: %+v", videos[0])
			}
			if videos[1].Channel != "byline" {
				t.Errorf("expected byline fallback, got %q", videos[1].Channel)
			}
		})

		t.Run("falls back through clients", func(t *testing.T) {
			var (
				mu   sync.Mutex
				seen []string
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Context struct {
						Client struct {
							ClientName string `json:"clientName"`
						} `json:"client"`
					} `json:"context"`
				}
				json.NewDecoder(r.Body).Decode(&body)
				mu.Lock()
				seen = append(seen, body.Context.Client.ClientName)
				mu.Unlock()

				switch body.Context.Client.ClientName {
				case "WEB":
					w.WriteHeader(http.StatusBadRequest)
				case "MWEB":
					json.NewEncoder(w).Encode(searchResponse())
				default:
					json.NewEncoder(w).Encode(searchResponse(video("zzz", "Found", "c")))
				}
			}))
			defer server.Close()

			videos, err := NewYouTubeService(server.URL, testClient()).SearchVideos(context.Background(), "q", 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(videos) != 1 || videos[0].ID != "zzz" {
				t.Errorf("expected result from ANDROID client, got %+v", videos)
			}
			mu.Lock()
			defer mu.Unlock()
			if strings.Join(seen, ",") != "WEB,MWEB,ANDROID" {
				t.Errorf("expected clients in order, got %v", seen)
			}
		})

		t.Run("empty results are not an error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(searchResponse())
			}))
			defer server.Close()

			videos, err := NewYouTubeService(server.URL, testClient()).SearchVideos(context.Background(), "q", 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(videos) != 0 {
				t.Errorf("expected no videos, got %d", len(videos))
			}
		})

		t.Run("every client failing is an error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer server.Close()

			_, err := NewYouTubeService(server.URL, testClient()).SearchVideos(context.Background(), "q", 5)
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("SearchTrack", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(searchResponse(
				video("nope", "Cooking show episode 4", "tv"),
				video("yes", "Glue (Official Video)", "Bicep"),
			))
		}))
		defer server.Close()

		got, err := NewYouTubeService(server.URL, testClient()).SearchTrack(context.Background(), "Glue", "Bicep")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.ID != "yes" {
			t.Errorf("expected best match 'yes', got %q", got.ID)
		}
	})

	t.Run("AnonPlaylist", func(t *testing.T) {
		t.Run("reads list from redirect", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/watch_videos":
					if got := r.URL.Query().Get("video_ids"); got != "a,b,c" {
						t.Errorf("expected video_ids=a,b,c, got %q", got)
					}
					http.Redirect(w, r, "/watch?v=a&list=TLGGabc123", http.StatusSeeOther)
				case "/watch":
					w.Write([]byte("<html></html>"))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			}))
			defer server.Close()

			got, err := NewYouTubeService(server.URL, testClient()).AnonPlaylist(context.Background(), []string{"a", "b", "c"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "https://music.youtube.com/watch?list=TLGGabc123" {
				t.Errorf("unexpected playlist url %q", got)
			}
		})

		t.Run("fails without list", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html></html>"))
			}))
			defer server.Close()

			_, err := NewYouTubeService(server.URL, testClient()).AnonPlaylist(context.Background(), []string{"a"})
			if !errors.Is(err, shared.ErrNoResults) {
				t.Errorf("expected ErrNoResults, got %v", err)
			}
		})

		t.Run("fails without ids", func(t *testing.T) {
			_, err := NewYouTubeService("", nil).AnonPlaylist(context.Background(), nil)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})
}

func TestMusicBrainz(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/2/recording" {
			t.Errorf("expected path /ws/2/recording, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("fmt") != "json" {
			t.Error("expected fmt=json")
		}
		if got := r.URL.Query().Get("query"); got != `recording:"houdini" AND artist:"dua lipa"` {
			t.Errorf("unexpected query %q", got)
		}
		w.Write([]byte(`{"recordings": [
			{"id": "r1", "title": "Houdini", "first-release-date": "2023-11-09", "artist-credit": [{"name": "Dua Lipa"}]},
			{"id": "r2", "title": "Houdini (live)", "first-release-date": "2024", "artist-credit": []}
		]}`))
	}))
	defer server.Close()

	recs, err := NewMusicBrainz(server.URL, testClient()).SearchRecordings(context.Background(), RecordingQuery("houdini", "dua lipa"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}
	if recs[0].ReleaseDate == nil || recs[0].ReleaseDate.String() != "2023-11-09" {
		t.Errorf("expected release date, got %v", recs[0].ReleaseDate)
	}
	if len(recs[0].Artists) != 1 || recs[0].Artists[0] != "Dua Lipa" {
		t.Errorf("unexpected artists %v", recs[0].Artists)
	}
	if recs[1].ReleaseDate != nil {
		t.Errorf("expected partial date to be dropped, got %v", recs[1].ReleaseDate)
	}
}
