// Package models defines the entities shared by the stereo server, client and storage.
//
//   - [Track] : one entry of a collection, keyed by its video id
//   - [Date] : calendar date without time of day, serialized as YYYY-MM-DD
//   - [Collection] : a collection file and the number of tracks it holds
//   - [BeatportTrack], [BeatportArtist], [BeatportLabel], [Video], [Recording] : catalogue search results
//
// Tracks travel unchanged over the wire, into SQLite rows and into YAML/CSV exports,
// so the field tags here define all of those formats.
package models
