// Package tasks resolves catalogue tracks to playable videos with real-time progress reporting.
//
// # Core Operations
//
// The [Searcher] interface defines two operations:
//
//  1. [Searcher.Search] : Stream search results
//     - fuzzy: free text search of the catalogue
//     - by-artist / by-label: releases of the best matching artist or label
//     - Each catalogue track is looked up on the video platform; tracks without a video are skipped
//     - Stops at the limit or when the context is cancelled
//
//  2. [Searcher.FindTrack] : First match for a title and artist
//     - Prefers the catalogue track chosen by fuzzy matching
//     - Falls back to the best matching video when the catalogue has nothing playable
//
// [SearchEngine.ImportPlaylist] runs FindTrack over a playlist with a pool of workers,
// optionally annotates each track with its MusicBrainz recording and stores the result.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
