package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/acs/internal/live"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/desertthunder/acs/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ContentsView ViewState = iota
	DetailView
	ComposeView
	FeedbackView
)

// Deps are the services the watcher talks to.
type Deps struct {
	Threads  services.ThreadService
	Content  services.ContentService
	Feedback *tasks.FeedbackEngine // defaults to an engine over Content
	Events   <-chan live.Event     // nil disables live updates
	Conn     func() live.ConnState // optional connection indicator
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	threadID     string
	deps         Deps
	view         ViewState
	state        *live.State
	thread       *models.ThreadDetails
	contents     list.Model
	viewport     viewport.Model
	input        textinput.Model
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
	width        int
	height       int
	busy         bool
	selected     models.Content
	regenerate   *models.Content
	notice       string
	err          error
	streamClosed bool
	listening    bool
}

// NewModel creates a watcher for threadID.
func NewModel(ctx context.Context, threadID string, deps Deps) *Model {
	if deps.Feedback == nil && deps.Content != nil {
		deps.Feedback = tasks.NewFeedbackEngine(deps.Content, nil)
	}

	contents := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	contents.Title = "Loading thread..."
	contents.SetShowHelp(false)

	input := textinput.New()
	input.CharLimit = 4000

	return &Model{
		ctx:      ctx,
		threadID: threadID,
		deps:     deps,
		view:     ContentsView,
		state:    live.NewState(nil),
		contents: contents,
		viewport: viewport.New(0, 0),
		input:    input,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the thread. Live updates are read once it has loaded.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchThread(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.contents.SetSize(msg.Width-4, msg.Height-8)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8
		m.input.Width = msg.Width - 10
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if m.err != nil {
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		switch m.view {
		case ContentsView:
			return m.handleContentsKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ComposeView, FeedbackView:
			return m.handleInputKeys(msg)
		}
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgThreadLoaded:
		data := msg.data.(threadLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.thread = data.details
		m.state.Reset(data.details.Contents)
		m.contents.Title = fmt.Sprintf("%s • %s", fallbackTitle(data.details.Title), models.ContentTypeLabel(string(data.details.Type)))
		if m.listening {
			return m, m.refresh()
		}
		m.listening = true
		return m, tea.Batch(m.refresh(), m.waitForEvent())

	case MsgLiveEvent:
		ev := msg.data.(live.Event)
		var cmd tea.Cmd
		if m.state.Apply(ev) {
			cmd = m.refresh()
			if m.view == DetailView && ev.ContentID() == m.selected.ID {
				m.selected, _ = m.state.Get(m.selected.ID)
				m.viewport.SetContent(renderContent(m.selected))
			}
		}
		return m, tea.Batch(cmd, m.waitForEvent())

	case MsgStreamClosed:
		m.streamClosed = true
		m.notice = "Live updates stopped; press r to reload"
		return m, nil

	case MsgSubmitted:
		data := msg.data.(submitted)
		m.busy = false
		if data.err != nil {
			m.notice = errorNotice("Generation request failed", data.err)
			return m, nil
		}
		if data.thread == nil || data.thread.LastContent == nil {
			m.notice = "Submitted"
			return m, nil
		}
		m.state.Track(*data.thread.LastContent)
		m.notice = "Submitted; waiting for live updates"
		cmd := m.refresh()
		m.contents.Select(len(m.contents.Items()) - 1)
		return m, cmd

	case MsgFeedbackDone:
		data := msg.data.(feedbackDone)
		m.busy = false
		if data.err != nil {
			m.notice = errorNotice("Failed to submit feedback", data.err)
			m.view = ContentsView
			return m, nil
		}

		result := data.result
		if result.Sentiment == "" {
			m.notice = "Feedback submitted"
			m.view = ContentsView
			return m, nil
		}

		if rec, ok := m.state.Get(m.selected.ID); ok {
			rec.Sentiment = result.Sentiment
			m.state.Track(rec)
			m.selected = rec
		}
		m.notice = fmt.Sprintf("Sentiment saved: %s", shared.TitleCase(string(result.Sentiment)))
		if result.Sentiment == models.Negative {
			rec := m.selected
			m.regenerate = &rec
			m.view = FeedbackView
		} else {
			m.view = ContentsView
		}
		return m, m.refresh()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ContentsView:
		return m.renderContents()
	case DetailView:
		return m.renderDetail()
	case ComposeView:
		return m.renderInput("New prompt", []key.Binding{m.keys.submit, m.keys.back})
	case FeedbackView:
		if m.regenerate != nil {
			return m.renderConfirm()
		}
		return m.renderInput("Feedback (positive, neutral, negative or free text)", []key.Binding{m.keys.submit, m.keys.back})
	default:
		return ""
	}
}

func (m *Model) handleContentsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.contents.FilterState() == list.Filtering {
		return m.updateComponents(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if c, ok := m.selectedContent(); ok {
			m.selected = c
			m.viewport.SetContent(renderContent(c))
			m.viewport.GotoTop()
			m.view = DetailView
		}
		return m, nil
	case key.Matches(msg, m.keys.compose):
		if m.thread == nil {
			return m, nil
		}
		return m, m.openInput(ComposeView, "Describe what to generate")
	case key.Matches(msg, m.keys.feedback):
		if c, ok := m.selectedContent(); ok {
			return m, m.startFeedback(c)
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.notice = "Reloading..."
		return m, m.fetchThread()
	}

	return m.updateComponents(msg)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ContentsView
		return m, nil
	case key.Matches(msg, m.keys.feedback):
		return m, m.startFeedback(m.selected)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.regenerate != nil {
		switch {
		case key.Matches(msg, m.keys.yes):
			target := *m.regenerate
			m.regenerate = nil
			m.view = ContentsView
			m.busy = true
			m.notice = "Regenerating..."
			return m, m.submitRegenerate(target)
		case key.Matches(msg, m.keys.no):
			m.regenerate = nil
			m.view = ContentsView
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.view = ContentsView
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			m.notice = "Nothing to submit"
			return m, nil
		}
		view := m.view
		m.input.Blur()
		m.view = ContentsView
		m.busy = true
		if view == ComposeView {
			m.notice = "Submitting prompt..."
			return m, m.submitPrompt(value)
		}
		m.notice = "Submitting feedback..."
		return m, m.submitFeedback(m.selected, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ContentsView:
		m.contents, cmd = m.contents.Update(msg)
	case DetailView:
		m.viewport, cmd = m.viewport.Update(msg)
	case ComposeView, FeedbackView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) openInput(view ViewState, placeholder string) tea.Cmd {
	m.view = view
	m.input.Reset()
	m.input.Placeholder = placeholder
	return m.input.Focus()
}

func (m *Model) startFeedback(c models.Content) tea.Cmd {
	if c.Status != models.ContentCompleted {
		m.notice = "Only completed content accepts feedback"
		return nil
	}
	m.selected = c
	return m.openInput(FeedbackView, "positive, neutral, negative or a sentence")
}

func (m *Model) selectedContent() (models.Content, bool) {
	item, ok := m.contents.SelectedItem().(contentItem)
	if !ok {
		return models.Content{}, false
	}
	return item.content, true
}

func (m *Model) refresh() tea.Cmd {
	return m.contents.SetItems(contentItems(m.state.Snapshot()))
}

// inFlight reports whether any generation in the thread has not settled.
func (m *Model) inFlight() bool {
	for _, c := range m.state.Snapshot() {
		if !c.Status.Terminal() {
			return true
		}
	}
	return m.busy
}

func (m *Model) fetchThread() tea.Cmd {
	ctx, id, threads := m.ctx, m.threadID, m.deps.Threads
	return func() tea.Msg {
		if threads == nil {
			return threadLoadedMsg(nil, fmt.Errorf("%w: thread service not initialized", shared.ErrServiceUnavailable))
		}
		details, err := threads.Get(ctx, id)
		return threadLoadedMsg(details, err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.deps.Events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg()
		}
		return liveEventMsg(ev)
	}
}

func (m *Model) submitPrompt(prompt string) tea.Cmd {
	ctx, content := m.ctx, m.deps.Content
	req := services.GenerateRequest{Prompt: prompt, ContentType: m.thread.Type, ThreadID: m.threadID}
	return func() tea.Msg {
		thread, err := content.Generate(ctx, req)
		return submittedMsg(thread, err)
	}
}

func (m *Model) submitRegenerate(c models.Content) tea.Cmd {
	ctx, content, threadID, contentType := m.ctx, m.deps.Content, m.threadID, m.thread.Type
	return func() tea.Msg {
		thread, err := content.Regenerate(ctx, threadID, c.Prompt, contentType)
		return submittedMsg(thread, err)
	}
}

func (m *Model) submitFeedback(c models.Content, text string) tea.Cmd {
	ctx, engine := m.ctx, m.deps.Feedback
	req := tasks.FeedbackRequest{Content: c, ThreadID: m.threadID, ContentType: m.thread.Type, Text: text}
	return func() tea.Msg {
		result, err := engine.Submit(ctx, nil, req)
		return feedbackDoneMsg(result, err)
	}
}

func (m *Model) connection() string {
	switch {
	case m.deps.Events == nil:
		return styles.help.Render("live updates off")
	case m.streamClosed:
		return styles.err.Render("● offline")
	case m.deps.Conn == nil:
		return styles.ok.Render("● live")
	}

	switch state := m.deps.Conn(); state {
	case live.StateOpen:
		return styles.ok.Render("● live")
	case live.StateErrored:
		return styles.err.Render("● reconnecting")
	default:
		return styles.warn.Render("● " + state.String())
	}
}

func (m *Model) renderContents() string {
	status := m.connection()
	if m.inFlight() {
		status = fmt.Sprintf("%s %s generating", status, m.spinner.View())
	}
	if m.notice != "" {
		status = fmt.Sprintf("%s  %s", status, styles.help.Render(m.notice))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.compose, m.keys.feedback, m.keys.reload, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", m.contents.View(), status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderDetail() string {
	title := styles.title.Render(shared.Truncate(m.selected.Prompt, 72))
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.feedback, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, styles.body.Render(m.viewport.View()), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderInput(label string, helpKeys []key.Binding) string {
	title := styles.title.Render(label)
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.warn.Render("Feedback saved as negative. Regenerate this prompt?")
	prompt := styles.help.Render(shared.Truncate(m.regenerate.Prompt, 72))
	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, prompt, m.help.ShortHelpView(helpKeys))
}

func renderContent(c models.Content) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", styles.status(c.Status).Render(models.StatusLabel(string(c.Status))))
	switch {
	case c.Status == models.ContentFailed:
		fmt.Fprintf(&b, "Generation failed: %s", fallbackText(c.Error, "unknown error"))
	case c.GeneratedContent == "":
		b.WriteString(styles.help.Render("Waiting for content..."))
	default:
		b.WriteString(c.GeneratedContent)
	}
	if c.Sentiment != "" {
		fmt.Fprintf(&b, "\n\nFeedback: %s", shared.TitleCase(string(c.Sentiment)))
	}
	return b.String()
}

func errorNotice(prefix string, err error) string {
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.UserMessage != "" {
		return fmt.Sprintf("%s: %s", prefix, apiErr.UserMessage)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

func fallbackTitle(title string) string {
	return fallbackText(title, "Untitled thread")
}

func fallbackText(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
