package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/stereo/internal/client"
	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/state"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LibraryView ViewState = iota
	SearchView
	CollectionView
	ImportView
	FilterView
)

// DefaultPageSize is the number of rows loaded per page.
const DefaultPageSize = 100

var searchKinds = []string{protocol.KindFuzzy, protocol.KindByArtist, protocol.KindByLabel}

// Remote is the connection to the backend; [client.Client] implements it.
type Remote interface {
	Send(msg protocol.Message) error
	Call(msg protocol.Correlated, timeout time.Duration, cb client.Callback) int
}

// Player plays a track; see the player package.
type Player interface {
	Play(ytID string) error
}

// Model represents the TUI application state.
//
// The [state.Store] is the source of truth. Store changes arrive as [MsgState]
// messages; the latest change wins when the UI falls behind.
type Model struct {
	store   *state.Store
	remote  Remote
	player  Player
	timeout time.Duration

	updates     chan state.State
	unsubscribe func()

	view   ViewState
	state  state.State
	width  int
	height int

	page             int
	pageSize         int
	loadedGeneration int
	playing          string
	nextQueryID      int
	kind             int
	browsing         bool
	pendingPath      string
	keepUserData     bool
	sortColumn       int

	tracks      table.Model
	results     table.Model
	input       textinput.Model
	completions list.Model
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model and subscribes it to store.
//
// Requests that get no reply within timeout fail; zero waits forever.
func NewModel(store *state.Store, remote Remote, player Player, timeout time.Duration) *Model {
	m := &Model{
		store:            store,
		remote:           remote,
		player:           player,
		timeout:          timeout,
		updates:          make(chan state.State, 1),
		state:            store.State(),
		pageSize:         DefaultPageSize,
		loadedGeneration: -1,
		sortColumn:       -1,
		tracks:           table.New(table.WithColumns(trackColumns(0)), table.WithFocused(true)),
		results:          table.New(table.WithColumns(trackColumns(0))),
		input:            textinput.New(),
		completions:      list.New(nil, list.NewDefaultDelegate(), 0, 0),
		spinner:          spinner.New(),
		help:             help.New(),
		keys:             newKeyMap(),
	}
	m.spinner.Spinner = spinner.Dot
	m.completions.Title = "Completions"
	m.completions.SetShowHelp(false)
	m.completions.SetFilteringEnabled(false)

	m.unsubscribe = store.Subscribe(m.publish)
	return m
}

// publish hands s to the UI without blocking the dispatcher, replacing an unread state.
func (m *Model) publish(s state.State) {
	for {
		select {
		case m.updates <- s:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

// Close unsubscribes the model from its store.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init applies the current state, which starts listening for store changes.
func (m *Model) Init() tea.Cmd {
	current := m.store.State()
	return tea.Batch(
		func() tea.Msg { return stateMsg(current) },
		m.spinner.Tick,
	)
}

func (m *Model) waitForState() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		return stateMsg(<-updates)
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgState:
			return m, m.applyState(msg.data.(state.State))
		case MsgPlayed:
			p := msg.data.(played)
			if p.err != nil {
				m.store.Dispatch(state.Notified{Message: p.err.Error(), Kind: protocol.NotifyError})
			}
		case MsgFailed:
			m.store.Dispatch(state.Notified{Message: msg.data.(error).Error(), Kind: protocol.NotifyError})
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case CollectionView:
			return m.handleCollectionKeys(msg)
		case ImportView:
			return m.handleImportKeys(msg)
		case FilterView:
			return m.handleFilterKeys(msg)
		}
	}
	return m, nil
}

// applyState takes in a new store state and reacts to what changed since the last one.
func (m *Model) applyState(s state.State) tea.Cmd {
	prev := m.state
	m.state = s
	cmds := []tea.Cmd{m.waitForState()}

	// A new default-collection push means a fresh server session, which has
	// no collection selected yet.
	if s.DefaultCollection != nil && s.DefaultCollection != prev.DefaultCollection && s.Collection != nil {
		m.call(&protocol.SetCollection{Path: s.Collection.Path})
	}

	if m.pendingPath != "" && s.Collection != nil && s.Collection.Path == m.pendingPath {
		m.pendingPath = ""
		m.page = 0
		m.setView(LibraryView)
	}

	if s.Status == client.StatusConnected && s.Collection != nil && s.RowsGeneration != m.loadedGeneration {
		m.requestRows()
	}

	if s.NowPlaying != "" && s.NowPlaying != m.playing {
		m.playing = s.NowPlaying
		cmds = append(cmds, m.play(s.NowPlaying))
	}

	if m.view == CollectionView {
		m.completions.SetItems(completionItems(s.PathCompletions))
	}
	m.refreshTables()
	return tea.Batch(cmds...)
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.play):
		if t, ok := m.current(); ok {
			m.store.Dispatch(state.Play{YTID: t.YTID})
		}
		return m, nil

	case key.Matches(msg, m.keys.toggle):
		if t, ok := m.current(); ok {
			m.store.Dispatch(state.Select{YTID: t.YTID, Selected: !m.state.Selected[t.YTID]})
		}
		return m, nil

	case key.Matches(msg, m.keys.rate):
		if t, ok := m.current(); ok {
			rating := int(msg.Runes[0] - '0')
			return m, m.send(&protocol.UpdateRating{YTID: t.YTID, Rating: &rating})
		}
		return m, nil

	case key.Matches(msg, m.keys.unrate):
		if t, ok := m.current(); ok {
			return m, m.send(&protocol.UpdateRating{YTID: t.YTID})
		}
		return m, nil

	case key.Matches(msg, m.keys.remove):
		ids := m.targets()
		if len(ids) == 0 {
			return m, nil
		}
		m.store.Dispatch(state.ClearSelection{})
		return m, m.send(&protocol.DeleteTracks{IDs: ids})

	case key.Matches(msg, m.keys.random):
		return m, m.send(&protocol.GetRandomTrack{})

	case key.Matches(msg, m.keys.sort):
		m.sortColumn = (m.sortColumn + 1) % len(sortable)
		m.page = 0
		m.store.Dispatch(state.SetSort{Model: models.SortModel{{ColID: sortable[m.sortColumn], Sort: "asc"}}})
		return m, nil

	case key.Matches(msg, m.keys.reverse):
		if len(m.state.Sort) == 0 {
			return m, nil
		}
		item := m.state.Sort[0]
		if item.Desc() {
			item.Sort = "asc"
		} else {
			item.Sort = "desc"
		}
		m.store.Dispatch(state.SetSort{Model: models.SortModel{item}})
		return m, nil

	case key.Matches(msg, m.keys.next):
		if m.state.Rows.LastRow == nil || (m.page+1)*m.pageSize < *m.state.Rows.LastRow {
			m.page++
			m.requestRows()
		}
		return m, nil

	case key.Matches(msg, m.keys.prev):
		if m.page > 0 {
			m.page--
			m.requestRows()
		}
		return m, nil

	case key.Matches(msg, m.keys.dismiss):
		if n := len(m.state.Notifications); n > 0 {
			m.store.Dispatch(state.Dismiss{ID: m.state.Notifications[n-1].ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.playlist):
		ids := m.targets()
		if len(ids) == 0 {
			return m, nil
		}
		m.call(&protocol.CreateYTAnonPlaylist{YTIDs: ids})
		return m, nil

	case key.Matches(msg, m.keys.search):
		m.browsing = false
		m.input.SetValue(m.state.Search.Query)
		return m, m.setView(SearchView)

	case key.Matches(msg, m.keys.filter):
		m.input.SetValue(m.state.Filter)
		return m, m.setView(FilterView)

	case key.Matches(msg, m.keys.open):
		if m.state.Collection != nil {
			m.input.SetValue(m.state.Collection.Path)
		}
		m.requestCompletions()
		return m, m.setView(CollectionView)

	case key.Matches(msg, m.keys.importDB):
		m.input.SetValue(m.state.Import.Path)
		return m, m.setView(ImportView)
	}

	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) {
		if m.state.Search.Running {
			m.store.Dispatch(state.CancelSearch{})
			return m, tea.Batch(m.send(&protocol.SearchCancelAll{}), m.setView(LibraryView))
		}
		return m, m.setView(LibraryView)
	}

	if m.browsing {
		switch {
		case key.Matches(msg, m.keys.add):
			row := m.results.Cursor()
			if row >= 0 && row < len(m.state.Search.Results) {
				return m, m.send(&protocol.AddTrack{Track: m.state.Search.Results[row]})
			}
			return m, nil
		case key.Matches(msg, m.keys.edit):
			m.browsing = false
			m.results.Blur()
			return m, m.input.Focus()
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.kind):
		m.kind = (m.kind + 1) % len(searchKinds)
		return m, nil
	case msg.Type == tea.KeyEnter:
		query := strings.TrimSpace(m.input.Value())
		m.nextQueryID++
		kind := searchKinds[m.kind]
		m.store.Dispatch(state.SetSearch{QueryID: m.nextQueryID, Query: query, Kind: kind})
		m.browsing = true
		m.input.Blur()
		m.results.Focus()
		return m, m.send(&protocol.Search{Query: query, QueryID: m.nextQueryID, Kind: kind})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCollectionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.pendingPath = ""
		return m, m.setView(LibraryView)

	case key.Matches(msg, m.keys.complete):
		if item, ok := m.completions.SelectedItem().(completionItem); ok {
			m.input.SetValue(item.path)
			m.input.CursorEnd()
			m.requestCompletions()
		}
		return m, nil

	case msg.Type == tea.KeyUp || msg.Type == tea.KeyDown:
		var cmd tea.Cmd
		m.completions, cmd = m.completions.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.create):
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		m.pendingPath = path
		return m, m.send(&protocol.CreateCollection{Path: path})

	case msg.Type == tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		m.pendingPath = path
		m.call(&protocol.SetCollection{Path: path})
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.requestCompletions()
	}
	return m, cmd
}

func (m *Model) handleImportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, m.setView(LibraryView)

	case key.Matches(msg, m.keys.keep):
		m.keepUserData = !m.keepUserData
		return m, nil

	case msg.Type == tea.KeyEnter:
		imp := m.state.Import
		if !imp.Checked || !imp.Valid {
			return m, nil
		}
		return m, tea.Batch(
			m.send(&protocol.ImportFrom{Path: imp.Path, KeepUserData: m.keepUserData}),
			m.setView(LibraryView),
		)
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if path := m.input.Value(); path != before {
		m.store.Dispatch(state.SetImportPath{Path: path})
		return m, tea.Batch(cmd, m.send(&protocol.CheckImportFrom{Path: path}))
	}
	return m, cmd
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, m.setView(LibraryView)
	case msg.Type == tea.KeyEnter:
		m.page = 0
		m.store.Dispatch(state.SetFilter{Text: strings.TrimSpace(m.input.Value())})
		return m, m.setView(LibraryView)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// setView switches views and moves the focus to the view's main widget.
func (m *Model) setView(v ViewState) tea.Cmd {
	m.view = v
	m.tracks.Blur()
	m.results.Blur()
	m.input.Blur()

	switch v {
	case LibraryView:
		m.tracks.Focus()
		return nil
	case SearchView:
		m.input.Prompt = "search> "
		if m.browsing {
			m.results.Focus()
			return nil
		}
	case CollectionView:
		m.input.Prompt = "collection> "
		m.completions.SetItems(completionItems(m.state.PathCompletions))
	case ImportView:
		m.input.Prompt = "import from> "
	case FilterView:
		m.input.Prompt = "title contains> "
	}
	m.input.CursorEnd()
	return m.input.Focus()
}

// current returns the track under the grid cursor.
func (m *Model) current() (models.Track, bool) {
	rows := m.state.Rows.Tracks
	i := m.tracks.Cursor()
	if i < 0 || i >= len(rows) {
		return models.Track{}, false
	}
	return rows[i], true
}

// targets are the selected tracks, or the track under the cursor when none are selected.
func (m *Model) targets() []string {
	if ids := m.state.SelectedIDs(); len(ids) > 0 {
		return ids
	}
	if t, ok := m.current(); ok {
		return []string{t.YTID}
	}
	return nil
}

func (m *Model) requestRows() {
	s := m.state
	m.loadedGeneration = s.RowsGeneration
	start := m.page * m.pageSize

	store := m.store
	m.remote.Call(&protocol.GetRows{
		StartRow:    start,
		EndRow:      start + m.pageSize,
		SortModel:   s.Sort,
		FilterModel: s.FilterModel(),
	}, m.timeout, func(reply protocol.Message, err error) {
		if err != nil {
			store.Dispatch(state.Notified{Message: fmt.Sprintf("failed to load tracks: %v", err), Kind: protocol.NotifyError})
			return
		}
		if rows, ok := reply.(*protocol.Rows); ok {
			store.Dispatch(state.RowsLoaded{Start: start, Tracks: rows.Rows, LastRow: rows.LastRow})
		}
	})
}

func (m *Model) requestCompletions() {
	m.call(&protocol.GetPathCompletions{PathPrefix: m.input.Value()})
}

// call sends a correlated request whose reply is fed to the store like a push.
func (m *Model) call(msg protocol.Correlated) {
	store := m.store
	m.remote.Call(msg, m.timeout, func(reply protocol.Message, err error) {
		if err != nil {
			store.Dispatch(state.Notified{Message: fmt.Sprintf("%s failed: %v", msg.Type(), err), Kind: protocol.NotifyError})
			return
		}
		if link, ok := reply.(*protocol.YTAnonPlaylist); ok {
			store.Dispatch(state.Notified{Message: "playlist: " + link.URL, Kind: protocol.NotifyInfo})
			return
		}
		if a, ok := state.FromMessage(reply); ok {
			store.Dispatch(a)
		}
	})
}

func (m *Model) send(msg protocol.Message) tea.Cmd {
	remote := m.remote
	return func() tea.Msg {
		if err := remote.Send(msg); err != nil {
			return failedMsg(fmt.Errorf("failed to send %s: %w", msg.Type(), err))
		}
		return nil
	}
}

func (m *Model) play(ytID string) tea.Cmd {
	player := m.player
	return func() tea.Msg {
		if player == nil {
			return nil
		}
		return playedMsg(ytID, player.Play(ytID))
	}
}

func (m *Model) refreshTables() {
	s := m.state

	rows := make([]table.Row, len(s.Rows.Tracks))
	for i, t := range s.Rows.Tracks {
		rows[i] = trackRow(t, s.Selected[t.YTID])
	}
	m.tracks.SetRows(rows)
	if m.tracks.Cursor() >= len(rows) && len(rows) > 0 {
		m.tracks.SetCursor(len(rows) - 1)
	}

	results := make([]table.Row, len(s.Search.Results))
	for i, t := range s.Search.Results {
		results[i] = trackRow(t, false)
	}
	m.results.SetRows(results)
}

func (m *Model) resize() {
	// Header, input, status and help take about ten lines.
	h := max(m.height-10, 3)
	m.tracks.SetColumns(trackColumns(m.width))
	m.tracks.SetHeight(h)
	m.tracks.SetWidth(m.width)
	m.results.SetColumns(trackColumns(m.width))
	m.results.SetHeight(h - 2)
	m.results.SetWidth(m.width)
	m.completions.SetSize(m.width, h-2)
	m.input.Width = max(m.width-20, 10)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LibraryView:
		body = m.renderLibrary()
	case SearchView:
		body = m.renderSearch()
	case CollectionView:
		body = m.renderCollection()
	case ImportView:
		body = m.renderImport()
	case FilterView:
		body = m.renderFilter()
	}
	return fmt.Sprintf("%s\n%s\n%s", m.renderHeader(), body, m.renderStatus())
}

func (m *Model) renderHeader() string {
	name := "no collection"
	if c := m.state.Collection; c != nil {
		name = fmt.Sprintf("%s (%d tracks)", c.Path, c.Size)
	}
	return styles.title.Render("stereo • " + name)
}

func (m *Model) renderLibrary() string {
	s := m.state
	info := ""
	if s.Rows.LastRow != nil && *s.Rows.LastRow > 0 {
		end := min(s.Rows.Start+len(s.Rows.Tracks), *s.Rows.LastRow)
		info = fmt.Sprintf("rows %d-%d of %d", s.Rows.Start+1, end, *s.Rows.LastRow)
	}
	if s.Filter != "" {
		info += fmt.Sprintf(" • title contains %q", s.Filter)
	}
	if len(s.Sort) > 0 {
		info += fmt.Sprintf(" • sorted by %s %s", s.Sort[0].ColID, s.Sort[0].Sort)
	}
	if n := len(s.Selected); n > 0 {
		info += fmt.Sprintf(" • %d selected", n)
	}

	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.play, m.keys.toggle, m.keys.rate, m.keys.remove, m.keys.random,
		m.keys.search, m.keys.filter, m.keys.open, m.keys.importDB, m.keys.quit,
	})
	return fmt.Sprintf("%s\n%s\n%s", m.tracks.View(), styles.help.Render(info), helpView)
}

func (m *Model) renderSearch() string {
	s := m.state.Search
	status := fmt.Sprintf("%d results", len(s.Results))
	if s.Running {
		status = m.spinner.View() + " searching • " + status
	}

	keys := []key.Binding{m.keys.kind, m.keys.back}
	if m.browsing {
		keys = []key.Binding{m.keys.add, m.keys.edit, m.keys.back}
	}
	return fmt.Sprintf("%s  %s\n%s\n%s\n%s",
		m.input.View(),
		styles.accent.Render("["+searchKinds[m.kind]+"]"),
		m.results.View(),
		styles.help.Render(status),
		m.help.ShortHelpView(keys),
	)
}

func (m *Model) renderCollection() string {
	errLine := ""
	if m.state.CollectionError != "" {
		errLine = styles.err.Render(m.state.CollectionError)
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		m.input.View(),
		errLine,
		m.completions.View(),
		m.help.ShortHelpView([]key.Binding{m.keys.complete, m.keys.create, m.keys.back}),
	)
}

func (m *Model) renderImport() string {
	imp := m.state.Import
	validity := ""
	switch {
	case imp.Path == "":
	case !imp.Checked:
		validity = styles.help.Render("checking...")
	case imp.Valid:
		validity = styles.ok.Render("✓ valid collection")
	default:
		validity = styles.err.Render("✗ not a valid collection")
	}
	keep := "no"
	if m.keepUserData {
		keep = "yes"
	}
	return fmt.Sprintf("%s\n%s\nkeep ratings and play counts: %s\n\n%s",
		m.input.View(),
		validity,
		keep,
		m.help.ShortHelpView([]key.Binding{m.keys.keep, m.keys.back}),
	)
}

func (m *Model) renderFilter() string {
	return fmt.Sprintf("%s\n\n%s", m.input.View(), m.help.ShortHelpView([]key.Binding{m.keys.back}))
}

func (m *Model) renderStatus() string {
	s := m.state
	parts := []string{s.Status.String()}
	if s.Status == client.StatusConnected && s.Latency > 0 {
		parts = append(parts, s.Latency.Round(time.Millisecond).String())
	}
	if s.BackendVersion != "" {
		parts = append(parts, "backend "+s.BackendVersion)
	}
	if s.StatusError != "" {
		parts = append(parts, s.StatusError)
	}
	if s.NowPlaying != "" {
		title := s.NowPlaying
		if t, ok := s.Track(s.NowPlaying); ok {
			title = fmt.Sprintf("%s - %s", t.Artists, t.DisplayTitle())
		}
		parts = append(parts, "▶ "+title)
	}
	line := styles.status.Render(strings.Join(parts, " • "))

	if n := len(s.Notifications); n > 0 {
		last := s.Notifications[n-1]
		line += "\n" + styles.notice(last.Kind).Render(last.Message)
	}
	return line
}
