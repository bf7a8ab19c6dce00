// package formatter exports collection tracks to various formats (CSV, Markdown, plain text, YAML)
// and reads tracks and playlists back in.
package formatter

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// FormatFromPath picks the format from the extension of path.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// trackRow is the CSV shape of a track. Artists are joined with "; ".
type trackRow struct {
	YTID        string `csv:"yt_id"`
	BPID        string `csv:"bp_id"`
	MBID        string `csv:"mb_id"`
	Title       string `csv:"title"`
	MixName     string `csv:"mix_name"`
	Artists     string `csv:"artists"`
	ReleaseDate string `csv:"release_date"`
	Label       string `csv:"label"`
	Album       string `csv:"album"`
	Length      string `csv:"length"`
	BPM         string `csv:"bpm"`
	Genre       string `csv:"genre"`
	Key         string `csv:"key"`
	Mood        string `csv:"mood"`
	Rating      string `csv:"rating"`
	PlayCount   int    `csv:"play_count"`
	LastPlayed  string `csv:"last_played"`
}

const artistSep = "; "

func toRow(t models.Track) trackRow {
	return trackRow{
		YTID:        t.YTID,
		BPID:        intString(t.BPID),
		MBID:        deref(t.MBID),
		Title:       t.Title,
		MixName:     deref(t.MixName),
		Artists:     strings.Join(t.Artists, artistSep),
		ReleaseDate: dateString(t.ReleaseDate),
		Label:       deref(t.Label),
		Album:       deref(t.Album),
		Length:      intString(t.Length),
		BPM:         intString(t.BPM),
		Genre:       deref(t.Genre),
		Key:         deref(t.Key),
		Mood:        deref(t.Mood),
		Rating:      intString(t.Rating),
		PlayCount:   t.PlayCount,
		LastPlayed:  dateString(t.LastPlayed),
	}
}

func fromRow(r trackRow) (models.Track, error) {
	t := models.Track{
		YTID:      r.YTID,
		MBID:      optString(r.MBID),
		Title:     r.Title,
		MixName:   optString(r.MixName),
		Label:     optString(r.Label),
		Album:     optString(r.Album),
		Genre:     optString(r.Genre),
		Key:       optString(r.Key),
		Mood:      optString(r.Mood),
		PlayCount: r.PlayCount,
	}
	for _, a := range strings.Split(r.Artists, ";") {
		if a = strings.TrimSpace(a); a != "" {
			t.Artists = append(t.Artists, a)
		}
	}

	var err error
	if t.BPID, err = optInt(r.BPID); err != nil {
		return t, fmt.Errorf("bp_id: %w", err)
	}
	if t.Length, err = optInt(r.Length); err != nil {
		return t, fmt.Errorf("length: %w", err)
	}
	if t.BPM, err = optInt(r.BPM); err != nil {
		return t, fmt.Errorf("bpm: %w", err)
	}
	if t.Rating, err = optInt(r.Rating); err != nil {
		return t, fmt.Errorf("rating: %w", err)
	}
	if t.ReleaseDate, err = optDate(r.ReleaseDate); err != nil {
		return t, fmt.Errorf("release_date: %w", err)
	}
	if t.LastPlayed, err = optDate(r.LastPlayed); err != nil {
		return t, fmt.Errorf("last_played: %w", err)
	}
	return t, nil
}

// ExportCSV writes tracks as CSV with one column per track field.
func ExportCSV(tracks []models.Track) ([]byte, error) {
	rows := make([]trackRow, len(tracks))
	for i, t := range tracks {
		rows[i] = toRow(t)
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return data, nil
}

// LoadCSV reads tracks written by [ExportCSV]. Every track is validated.
func LoadCSV(data []byte) ([]models.Track, error) {
	var rows []trackRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	tracks := make([]models.Track, 0, len(rows))
	for i, r := range rows {
		t, err := fromRow(r)
		if err == nil {
			err = t.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", shared.ErrInvalidInput, i+1, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// ExportMarkdown lists tracks as a numbered Markdown list under title.
func ExportMarkdown(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, t := range tracks {
		details := []string{}
		if t.Label != nil && *t.Label != "" {
			details = append(details, *t.Label)
		}
		if t.ReleaseDate != nil {
			details = append(details, t.ReleaseDate.String())
		}
		extra := ""
		if len(details) > 0 {
			extra = fmt.Sprintf(" (%s)", strings.Join(details, ", "))
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, t.Artists, t.DisplayTitle(), extra, formatLength(t.Length)))
		buf.WriteString(fmt.Sprintf("   <%s>\n", models.WatchURL(t.YTID)))
	}

	return buf.Bytes(), nil
}

// ExportText lists tracks one per line.
func ExportText(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Collection: %s\n", title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, t := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, t.Artists, t.DisplayTitle()))
	}

	return buf.Bytes(), nil
}

type yamlDoc struct {
	Tracks []models.Track `yaml:"tracks"`
}

// ExportYAML writes tracks as a YAML document with a top-level tracks list.
func ExportYAML(tracks []models.Track) ([]byte, error) {
	if tracks == nil {
		tracks = []models.Track{}
	}
	data, err := yaml.Marshal(yamlDoc{Tracks: tracks})
	if err != nil {
		return nil, fmt.Errorf("failed to write YAML: %w", err)
	}
	return data, nil
}

// LoadYAML reads a document written by [ExportYAML]. Every track is validated.
func LoadYAML(data []byte) ([]models.Track, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	for i := range doc.Tracks {
		if err := doc.Tracks[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: track %d: %v", shared.ErrInvalidInput, i+1, err)
		}
	}
	return doc.Tracks, nil
}

// Export renders tracks in format; title heads the Markdown and text formats.
func Export(format Format, title string, tracks []models.Track) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportCSV(tracks)
	case FormatMarkdown:
		return ExportMarkdown(title, tracks)
	case FormatText:
		return ExportText(title, tracks)
	case FormatYAML:
		return ExportYAML(tracks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Load reads tracks from a CSV or YAML export.
func Load(format Format, data []byte) ([]models.Track, error) {
	switch format {
	case FormatCSV:
		return LoadCSV(data)
	case FormatYAML:
		return LoadYAML(data)
	default:
		return nil, fmt.Errorf("%w: cannot load %s", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes tracks to path in the format named by its extension.
func WriteExport(fs afero.Fs, path, title string, tracks []models.Track) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Export(format, title, tracks)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := shared.EnsureDir(fs, dir); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// ReadExport loads tracks from a CSV or YAML file.
func ReadExport(fs afero.Fs, path string) ([]models.Track, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Load(format, data)
}

// ReadPlaylistCSV reads a playlist export: a header row, then rows whose second and
// third columns are the song title and artist.
func ReadPlaylistCSV(r io.Reader) ([]models.PlaylistEntry, error) {
	reader := gocsv.LazyCSVReader(r)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty playlist", shared.ErrInvalidInput)
	}

	entries := make([]models.PlaylistEntry, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("%w: line %d has %d columns, need 3", shared.ErrInvalidInput, i+2, len(rec))
		}
		entries = append(entries, models.PlaylistEntry{Title: rec[1], Artist: rec[2]})
	}
	return entries, nil
}

func formatLength(sec *int) string {
	if sec == nil {
		return "-:--"
	}
	return fmt.Sprintf("%d:%02d", *sec/60, *sec%60)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func dateString(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optDate(s string) (*models.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
