package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/stereo/internal/state"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgState MsgKind = iota
	MsgPlayed
	MsgFailed
)

// stateMsg is the constructor for [MsgState]
func stateMsg(s state.State) Msg {
	return Msg{kind: MsgState, data: s}
}

type played struct {
	ytID string
	err  error
}

// playedMsg is the constructor for [MsgPlayed]
func playedMsg(ytID string, err error) Msg {
	return Msg{kind: MsgPlayed, data: played{ytID, err}}
}

// failedMsg is the constructor for [MsgFailed]
func failedMsg(err error) Msg {
	return Msg{kind: MsgFailed, data: err}
}
