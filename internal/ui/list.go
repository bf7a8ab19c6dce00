package ui

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"

	"github.com/desertthunder/stereo/internal/models"
)

var _ list.Item = completionItem{}

// completionItem wraps a path completion to implement [list.Item].
type completionItem struct {
	path string
}

func (i completionItem) FilterValue() string { return i.path }
func (i completionItem) Title() string       { return filepath.Base(strings.TrimSuffix(i.path, string(filepath.Separator))) }
func (i completionItem) Description() string { return i.path }

func completionItems(paths []string) []list.Item {
	items := make([]list.Item, len(paths))
	for i, p := range paths {
		items[i] = completionItem{path: p}
	}
	return items
}

// sortable lists the grid columns cycled by the sort key.
var sortable = []string{"artists", "title", "release_date", "label", "bpm", "rating", "play_count", "last_played"}

func trackColumns(width int) []table.Column {
	cols := []table.Column{
		{Title: " ", Width: 1},
		{Title: "Title", Width: 28},
		{Title: "Artists", Width: 22},
		{Title: "Released", Width: 10},
		{Title: "Label", Width: 16},
		{Title: "BPM", Width: 4},
		{Title: "Key", Width: 8},
		{Title: "Rating", Width: 6},
		{Title: "Plays", Width: 5},
	}
	fixed := 0
	for _, c := range cols {
		fixed += c.Width + 2
	}
	// Give spare width to the title and artist columns.
	if extra := width - fixed; extra > 0 {
		cols[1].Width += extra / 2
		cols[2].Width += extra - extra/2
	}
	return cols
}

func trackRow(t models.Track, selected bool) table.Row {
	mark := ""
	if selected {
		mark = "●"
	}
	return table.Row{
		mark,
		t.DisplayTitle(),
		t.Artists.String(),
		dateCell(t.ReleaseDate),
		strCell(t.Label),
		intCell(t.BPM),
		strCell(t.Key),
		stars(t.Rating),
		strconv.Itoa(t.PlayCount),
	}
}

// stars renders a 0-5 rating; unrated tracks are blank.
func stars(rating *int) string {
	if rating == nil {
		return ""
	}
	n := min(max(*rating, 0), 5)
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func dateCell(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intCell(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
