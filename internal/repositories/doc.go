// Package repositories implements SQLite persistence for collections.
//
// A collection is a single SQLite file with a tracks table keyed by yt_id.
// [TrackRepository] serves one collection; the grid's sort and filter models are
// translated to SQL by [BuildWhere] and [BuildOrder], which only accept known
// column names.
//
// Key Implementations:
//   - [TrackRepository] : track CRUD, paging, row lookup and play counting
//   - [ValidateCollection] : checks that an arbitrary file is a usable collection
//   - [TrackRepository.ImportFrom] : copies tracks from another collection file
package repositories
