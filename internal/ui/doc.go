// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a client of a stereo backend:
//  1. [LibraryView] : Browse the collection a page at a time, rate, select, play and delete tracks
//  2. [SearchView] : Run a search and add results to the collection
//  3. [CollectionView] : Open or create a collection with path completion
//  4. [ImportView] : Import tracks from another collection file
//  5. [FilterView] : Filter the grid by title
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// It renders a [state.Store] rather than owning state: server pushes and user actions are dispatched to the store,
// and the store's changes flow back through a channel as [MsgState] messages.
//
// Requests go out through a [Remote], normally the websocket [client.Client].
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
