package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/movli/internal/models"
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
	MsgWatchlistChanged MsgKind = iota
	MsgMutationDone
	MsgSearchDone
	MsgSaveDone
	MsgChatReply
)

// watchlistChangedMsg is the constructor for [MsgWatchlistChanged]
func watchlistChangedMsg() Msg {
	return Msg{kind: MsgWatchlistChanged}
}

// mutationDoneMsg is the constructor for [MsgMutationDone]
func mutationDoneMsg(err error) Msg {
	return Msg{kind: MsgMutationDone, data: err}
}

type searchDone struct {
	results []models.Movie
	err     error
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(results []models.Movie, err error) Msg {
	return Msg{kind: MsgSearchDone, data: searchDone{results, err}}
}

type saveDone struct {
	message string
	err     error
}

// saveDoneMsg is the constructor for [MsgSaveDone]
func saveDoneMsg(message string, err error) Msg {
	return Msg{kind: MsgSaveDone, data: saveDone{message, err}}
}

// chatReplyMsg is the constructor for [MsgChatReply]
func chatReplyMsg(reply models.ChatMessage, sent bool) Msg {
	if !sent {
		return Msg{kind: MsgChatReply}
	}
	return Msg{kind: MsgChatReply, data: reply}
}
