package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/acs/internal/live"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/tasks"
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
	MsgThreadLoaded MsgKind = iota
	MsgLiveEvent
	MsgStreamClosed
	MsgSubmitted
	MsgFeedbackDone
)

type threadLoaded struct {
	details *models.ThreadDetails
	err     error
}

type submitted struct {
	thread *models.Thread
	err    error
}

type feedbackDone struct {
	result *tasks.FeedbackResult
	err    error
}

// threadLoadedMsg is the constructor for [MsgThreadLoaded]
func threadLoadedMsg(details *models.ThreadDetails, err error) Msg {
	return Msg{kind: MsgThreadLoaded, data: threadLoaded{details, err}}
}

// liveEventMsg is the constructor for [MsgLiveEvent]
func liveEventMsg(ev live.Event) Msg {
	return Msg{kind: MsgLiveEvent, data: ev}
}

// streamClosedMsg is the constructor for [MsgStreamClosed]
func streamClosedMsg() Msg {
	return Msg{kind: MsgStreamClosed}
}

// submittedMsg is the constructor for [MsgSubmitted]
func submittedMsg(thread *models.Thread, err error) Msg {
	return Msg{kind: MsgSubmitted, data: submitted{thread, err}}
}

// feedbackDoneMsg is the constructor for [MsgFeedbackDone]
func feedbackDoneMsg(result *tasks.FeedbackResult, err error) Msg {
	return Msg{kind: MsgFeedbackDone, data: feedbackDone{result, err}}
}
