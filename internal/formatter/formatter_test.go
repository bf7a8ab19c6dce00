package formatter

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

func testTracks() []models.Track {
	released := models.MustParseDate("2017-02-10")
	played := models.MustParseDate("2024-05-01")
	return []models.Track{
		{
			YTID:        "glue-id",
			BPID:        models.Ptr(9055391),
			Title:       "Glue",
			MixName:     models.Ptr("Original Mix"),
			Artists:     models.Artists{"Bicep"},
			ReleaseDate: &released,
			Label:       models.Ptr("Ninja Tune"),
			Length:      models.Ptr(269),
			BPM:         models.Ptr(130),
			Rating:      models.Ptr(5),
			PlayCount:   3,
			LastPlayed:  &played,
		},
		{
			YTID:    "houdini-id",
			Title:   "Houdini",
			Artists: models.Artists{"Dua Lipa", "Kevin Parker"},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportCSV", func(t *testing.T) {
		data, err := ExportCSV(testTracks())
		if err != nil {
			t.Fatalf("ExportCSV failed: %v", err)
		}
		output := string(data)

		header := strings.Join(models.Columns, ",")
		if !strings.HasPrefix(output, header) {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "glue-id,9055391,,Glue,Original Mix,Bicep,2017-02-10") {
			t.Errorf("CSV missing glue row, got: %s", output)
		}
		if !strings.Contains(output, "Dua Lipa; Kevin Parker") {
			t.Errorf("CSV missing joined artists, got: %s", output)
		}
	})

	t.Run("ExportMarkdown", func(t *testing.T) {
		data, err := ExportMarkdown("Friday", testTracks())
		if err != nil {
			t.Fatalf("ExportMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Friday",
			"**Tracks**: 2",
			"1. Bicep - Glue (Original Mix) (Ninja Tune, 2017-02-10) [4:29]",
			"2. Dua Lipa, Kevin Parker - Houdini [-:--]",
			"<https://www.youtube.com/watch?v=glue-id>",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportText", func(t *testing.T) {
		data, err := ExportText("Friday", testTracks())
		if err != nil {
			t.Fatalf("ExportText failed: %v", err)
		}
		want := "Collection: Friday\nTracks: 2\n\n1. Bicep - Glue (Original Mix)\n2. Dua Lipa, Kevin Parker - Houdini\n"
		if string(data) != want {
			t.Errorf("expected:\n%s\ngot:\n%s", want, data)
		}
	})

	t.Run("ExportYAML", func(t *testing.T) {
		data, err := ExportYAML(testTracks())
		if err != nil {
			t.Fatalf("ExportYAML failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "tracks:") {
			t.Errorf("expected a tracks document, got:\n%s", output)
		}
		if !strings.Contains(output, "release_date: \"2017-02-10\"") && !strings.Contains(output, "release_date: 2017-02-10") {
			t.Errorf("expected dates as YYYY-MM-DD, got:\n%s", output)
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		if _, err := Export(Format("xml"), "x", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLoaders(t *testing.T) {
	t.Run("CSVRoundTrip", func(t *testing.T) {
		data, err := ExportCSV(testTracks())
		if err != nil {
			t.Fatalf("ExportCSV failed: %v", err)
		}
		tracks, err := LoadCSV(data)
		if err != nil {
			t.Fatalf("LoadCSV failed: %v", err)
		}
		if !reflect.DeepEqual(tracks, testTracks()) {
			t.Errorf("round trip changed tracks:\n%+v\n%+v", tracks, testTracks())
		}
	})

	t.Run("YAMLRoundTrip", func(t *testing.T) {
		data, err := ExportYAML(testTracks())
		if err != nil {
			t.Fatalf("ExportYAML failed: %v", err)
		}
		tracks, err := LoadYAML(data)
		if err != nil {
			t.Fatalf("LoadYAML failed: %v", err)
		}
		if !reflect.DeepEqual(tracks, testTracks()) {
			t.Errorf("round trip changed tracks:\n%+v\n%+v", tracks, testTracks())
		}
	})

	t.Run("InvalidTrack", func(t *testing.T) {
		doc := "tracks:\n  - yt_id: abc\n    title: \"\"\n    artists: [Bicep]\n"
		if _, err := LoadYAML([]byte(doc)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("InvalidCSVNumber", func(t *testing.T) {
		data := strings.Join(models.Columns, ",") + "\nabc,x,,Glue,,Bicep,,,,,,,,,,0,\n"
		if _, err := LoadCSV([]byte(data)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestFiles(t *testing.T) {
	tests := []struct {
		path    string
		format  Format
		wantErr bool
	}{
		{path: "out/set.csv", format: FormatCSV},
		{path: "out/set.yml", format: FormatYAML},
		{path: "out/set.yaml", format: FormatYAML},
		{path: "out/set.md", format: FormatMarkdown},
		{path: "out/set.txt", format: FormatText},
		{path: "out/set.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, err := FormatFromPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.path)
				}
				return
			}
			if err != nil || format != tt.format {
				t.Fatalf("expected %s, got %s (%v)", tt.format, format, err)
			}

			fs := afero.NewMemMapFs()
			if err := WriteExport(fs, tt.path, "Friday", testTracks()); err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if ok, _ := afero.Exists(fs, tt.path); !ok {
				t.Fatalf("expected %s to be written", tt.path)
			}

			tracks, err := ReadExport(fs, tt.path)
			if format == FormatCSV || format == FormatYAML {
				if err != nil || len(tracks) != 2 {
					t.Errorf("expected 2 tracks back, got %d (%v)", len(tracks), err)
				}
			} else if err == nil {
				t.Errorf("expected %s to be write-only", format)
			}
		})
	}
}

func TestReadPlaylistCSV(t *testing.T) {
	t.Run("Columns", func(t *testing.T) {
		data := "#,Song,Artist,Album\n1,Glue,Bicep,Bicep\n2,\"Houdini, Extended\",Dua Lipa,Radical Optimism\n"
		entries, err := ReadPlaylistCSV(strings.NewReader(data))
		if err != nil {
			t.Fatalf("ReadPlaylistCSV failed: %v", err)
		}
		want := []models.PlaylistEntry{
			{Title: "Glue", Artist: "Bicep"},
			{Title: "Houdini, Extended", Artist: "Dua Lipa"},
		}
		if !reflect.DeepEqual(entries, want) {
			t.Errorf("expected %v, got %v", want, entries)
		}
	})

	t.Run("HeaderOnly", func(t *testing.T) {
		entries, err := ReadPlaylistCSV(strings.NewReader("#,Song,Artist\n"))
		if err != nil || len(entries) != 0 {
			t.Errorf("expected no entries, got %v (%v)", entries, err)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		for _, data := range []string{"", "#,Song\n1,Glue\n"} {
			if _, err := ReadPlaylistCSV(strings.NewReader(data)); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for %q, got %v", data, err)
			}
		}
	})
}
