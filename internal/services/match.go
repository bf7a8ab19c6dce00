package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"

	"github.com/desertthunder/stereo/internal/models"
)

// MatchCutoff is the lowest score accepted as a match.
const MatchCutoff = 50

// Scorer rates the similarity of two strings from 0 to 100.
type Scorer func(a, b string) int

// Ratio is the Levenshtein similarity of the lowercased strings.
func Ratio(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return int(sim*100 + 0.5)
}

// PartialRatio is the best [Ratio] of the shorter string against any equally
// long window of the longer one.
func PartialRatio(a, b string) int {
	short, long := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		if score := Ratio(string(short), string(long[i:i+len(short)])); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// PartialTokenSortRatio compares both strings after sorting their words.
func PartialTokenSortRatio(a, b string) int {
	return PartialRatio(sortTokens(a), sortTokens(b))
}

// WeightedRatio favours whole string similarity and falls back to a discounted partial match.
func WeightedRatio(a, b string) int {
	full := Ratio(sortTokens(a), sortTokens(b))
	partial := PartialTokenSortRatio(a, b) * 9 / 10
	return max(full, partial)
}

func sortTokens(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	sort.Strings(words)
	return strings.Join(words, " ")
}

// ExtractOne returns the index and score of the choice scoring highest against
// query. The first of equal scores wins; ok is false when none reaches cutoff.
func ExtractOne(query string, choices []string, cutoff int, scorer Scorer) (index, score int, ok bool) {
	index = -1
	for i, c := range choices {
		if s := scorer(query, c); s >= cutoff && s > score {
			index, score = i, s
		}
	}
	return index, score, index >= 0
}

// SelectVideo picks the video whose "title - artist" best contains title.
func SelectVideo(title, artist string, candidates []models.Video) (models.Video, bool) {
	choices := make([]string, len(candidates))
	for i, c := range candidates {
		choices[i] = c.Title + " - " + artist
	}

	i, _, ok := ExtractOne(title, choices, MatchCutoff, PartialTokenSortRatio)
	if !ok {
		return models.Video{}, false
	}
	return candidates[i], true
}

// SelectRecording picks the recording best matching "title - artist".
func SelectRecording(title, artist string, candidates []models.Recording) (models.Recording, bool) {
	choices := make([]string, len(candidates))
	for i, c := range candidates {
		choices[i] = c.Title + " - " + strings.Join(c.Artists, ",")
	}

	i, _, ok := ExtractOne(title+" - "+artist, choices, MatchCutoff, PartialTokenSortRatio)
	if !ok {
		return models.Recording{}, false
	}
	return candidates[i], true
}

// SelectBeatport picks the track with the best title once both a title and an
// artist match exist among the candidates.
func SelectBeatport(title, artist string, candidates []models.BeatportTrack) (models.BeatportTrack, bool) {
	titles := make([]string, len(candidates))
	artists := make([]string, len(candidates))
	for i, c := range candidates {
		titles[i] = c.Name
		artists[i] = strings.Join(c.Artists, ",")
	}

	i, _, titleOK := ExtractOne(title, titles, MatchCutoff, WeightedRatio)
	_, _, artistOK := ExtractOne(artist, artists, MatchCutoff, PartialTokenSortRatio)
	if !titleOK || !artistOK {
		return models.BeatportTrack{}, false
	}
	return candidates[i], true
}
