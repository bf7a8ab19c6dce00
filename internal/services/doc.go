// Package services reads the public music catalogues stereo builds tracks from.
//
// # HTTP Client
//
// All scrapers share one [HTTPClient]. It limits the outbound request rate with
// a token bucket and retries transport failures, 429 and 5xx responses with a
// doubling backoff.
//
// # Beatport
//
// [Beatport] implements [Catalogue]. Beatport pages are rendered by Next.js and
// embed their data as JSON in a script tag with id "__NEXT_DATA__"; the scraper
// finds that tag with golang.org/x/net/html and reads the dehydrated react-query
// state from it:
//   - search pages: props.pageProps.dehydratedState.queries[].state.data.data[]
//   - release pages: queries whose queryKey contains "tracks", state.data.results[]
//
// # YouTube
//
// [YouTubeService] implements [VideoSearcher] through the innertube search
// endpoint. Client identities are tried in order (WEB, MWEB, ANDROID) until one
// yields results. Anonymous playlists are built by following the redirect of
// the watch_videos endpoint and reading its list parameter.
//
// # MusicBrainz
//
// [MusicBrainz] implements [RecordingSearcher] with the JSON web service.
//
// # Matching
//
// Candidates are ranked with a partial token sort ratio computed from
// Levenshtein similarity (go-edlib). Scores are 0 to 100; anything under
// [MatchCutoff] is rejected.
//
// # Error Handling
//
// Failed requests wrap [shared.ErrAPIRequest]. A search that finds nothing
// returns an empty slice, not an error.
package services
