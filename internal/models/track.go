package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Track is one entry of a collection.
//
// Optional fields are pointers so that "unknown" survives the round trip
// through JSON (null), YAML and SQLite (NULL).
type Track struct {
	YTID string  `json:"yt_id" yaml:"yt_id" validate:"required"`
	BPID *int    `json:"bp_id" yaml:"bp_id"`
	MBID *string `json:"mb_id" yaml:"mb_id"`

	Title       string  `json:"title" yaml:"title" validate:"required"`
	MixName     *string `json:"mix_name" yaml:"mix_name"`
	Artists     Artists `json:"artists" yaml:"artists" validate:"required,min=1,dive,required"`
	ReleaseDate *Date   `json:"release_date" yaml:"release_date"`
	Label       *string `json:"label" yaml:"label"`
	Album       *string `json:"album" yaml:"album"`
	Length      *int    `json:"length" yaml:"length" validate:"omitempty,gte=0"` // seconds
	BPM         *int    `json:"bpm" yaml:"bpm" validate:"omitempty,gte=0"`
	Genre       *string `json:"genre" yaml:"genre"`
	Key         *string `json:"key" yaml:"key"`
	Mood        *string `json:"mood" yaml:"mood"`

	// User data
	Rating     *int  `json:"rating" yaml:"rating" validate:"omitempty,gte=0,lte=5"`
	PlayCount  int   `json:"play_count" yaml:"play_count" validate:"gte=0"`
	LastPlayed *Date `json:"last_played" yaml:"last_played"`
}

// Columns lists the stored track fields in schema order.
var Columns = []string{
	"yt_id", "bp_id", "mb_id", "title", "mix_name", "artists", "release_date", "label", "album",
	"length", "bpm", "genre", "key", "mood", "rating", "play_count", "last_played",
}

// CatalogueColumns are the columns that describe the recording, without user data.
var CatalogueColumns = []string{
	"yt_id", "title", "mix_name", "artists", "bp_id", "mb_id", "release_date", "label", "bpm",
	"key", "album", "genre", "mood",
}

// IsColumn reports whether name is a stored track field.
func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid track: " + strings.Join(e.Fields, "; ")
}

// Validate checks the required fields and value ranges of t.
func (t *Track) Validate() error {
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ve := &ValidationError{Fields: make([]string, len(verrs))}
			for i, fe := range verrs {
				ve.Fields[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
			}
			return ve
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateTrackMap reports whether a raw JSON object decodes into a valid [Track].
func ValidateTrackMap(m map[string]any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	var t Track
	if err := json.Unmarshal(data, &t); err != nil {
		return &ValidationError{Fields: []string{err.Error()}}
	}
	return t.Validate()
}

// TrackFromBeatport builds a collection entry from a catalogue track resolved to ytID.
func TrackFromBeatport(bp BeatportTrack, ytID string) Track {
	id := bp.ID
	t := Track{
		YTID:        ytID,
		BPID:        &id,
		Title:       bp.Name,
		Artists:     append(Artists(nil), bp.Artists...),
		ReleaseDate: bp.ReleaseDate,
		BPM:         bp.BPM,
		Key:         bp.Key,
	}
	if bp.MixName != "" {
		t.MixName = Ptr(bp.MixName)
	}
	if bp.Label != "" {
		t.Label = Ptr(bp.Label)
	}
	if len(bp.Genres) > 0 {
		t.Genre = Ptr(strings.Join(bp.Genres, ", "))
	}
	return t
}

// SortKey orders tracks by artists, then release date, then title.
func SortKey(t Track) string {
	released := ""
	if t.ReleaseDate != nil {
		released = t.ReleaseDate.String()
	}
	return fmt.Sprintf("%s %s %s", strings.Join(t.Artists, ","), released, t.Title)
}

// SortTracks deduplicates tracks by yt_id, keeping the last one, and sorts by [SortKey].
func SortTracks(tracks []Track) []Track {
	byID := make(map[string]int, len(tracks))
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if i, ok := byID[t.YTID]; ok {
			out[i] = t
			continue
		}
		byID[t.YTID] = len(out)
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return SortKey(out[i]) < SortKey(out[j]) })
	return out
}

// DisplayTitle is the title with the mix name in parentheses.
func (t Track) DisplayTitle() string {
	if t.MixName == nil || *t.MixName == "" {
		return t.Title
	}
	return fmt.Sprintf("%s (%s)", t.Title, *t.MixName)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Artists is stored in SQLite as a JSON list.
type Artists []string

func (a Artists) String() string {
	return strings.Join(a, ", ")
}

// Value encodes the list as JSON text.
func (a Artists) Value() (driver.Value, error) {
	if a == nil {
		a = Artists{}
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan decodes JSON text.
func (a *Artists) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*a = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Artists", src)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("artists column is not a JSON list: %w", err)
	}
	*a = list
	return nil
}
