package models

import (
	"fmt"
	"strings"
)

// Collection is a collection file and its size in tracks.
type Collection struct {
	Path string `json:"path" yaml:"path"`
	Size int    `json:"size" yaml:"size"`
}

// BeatportTrack is a track listed by the Beatport catalogue.
type BeatportTrack struct {
	ID          int
	Name        string
	MixName     string
	Artists     []string
	BPM         *int
	Key         *string
	ISRC        *string
	Label       string
	ReleaseDate *Date
	Genres      []string
}

// Query builds the text used to look the track up on the video platform.
func (t BeatportTrack) Query() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", t.Name, strings.Join(t.Artists, ", "), t.Label))
}

// BeatportArtist is an artist listed by the Beatport catalogue.
type BeatportArtist struct {
	ID       int
	Name     string
	ImageURI string
}

// BeatportLabel is a record label listed by the Beatport catalogue.
type BeatportLabel struct {
	ID   int
	Name string
}

// Video is a video platform search result.
type Video struct {
	ID      string
	Title   string
	Channel string
}

// URL is the watch page of the video.
func (v Video) URL() string {
	return WatchURL(v.ID)
}

// Recording is a MusicBrainz recording.
type Recording struct {
	ID          string
	Title       string
	Artists     []string
	ReleaseDate *Date
}

// WatchURL returns the watch page for a video id.
func WatchURL(ytID string) string {
	return "https://www.youtube.com/watch?v=" + ytID
}

// PlaylistEntry is one row of an exported playlist: a song title and its artist.
type PlaylistEntry struct {
	Title  string
	Artist string
}

func (e PlaylistEntry) String() string {
	return e.Artist + " - " + e.Title
}
