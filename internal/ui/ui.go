package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/movli/internal/chat"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/search"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/desertthunder/movli/internal/watchlist"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WatchlistView ViewState = iota
	SearchView
	ChatView
)

var viewNames = []string{"Watchlist", "Search", "Chat"}

func (v ViewState) String() string {
	if int(v) < len(viewNames) {
		return viewNames[v]
	}
	return ""
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	controller *watchlist.Controller
	search     *search.Page
	chat       *chat.Conversation

	updates     chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()

	state      watchlist.State
	items      list.Model
	results    list.Model
	query      textinput.Model
	prompt     textinput.Model
	spinner    spinner.Model
	searching  bool
	status     string
	statusErr  bool
	suggestion int

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model over the watchlist controller, search page and conversation.
//
// The model observes the controller until [Model.Close].
func NewModel(ctx context.Context, controller *watchlist.Controller, page *search.Page, conversation *chat.Conversation) *Model {
	query := textinput.New()
	query.Placeholder = "Search for a movie..."
	query.Prompt = "/ "
	query.CharLimit = 200

	prompt := textinput.New()
	prompt.Placeholder = "Ask about movies..."
	prompt.Prompt = "> "
	prompt.CharLimit = 2000

	m := &Model{
		ctx:        ctx,
		view:       WatchlistView,
		controller: controller,
		search:     page,
		chat:       conversation,
		updates:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		state:      controller.State(),
		items:      newList(nil),
		results:    newList(nil),
		query:      query,
		prompt:     prompt,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.selected)),
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.items.SetItems(savedItems(m.state.Sorted()))
	m.unsubscribe = controller.Subscribe(func(watchlist.Event) { m.notify() })
	return m
}

// Close stops observing the controller.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		close(m.done)
	})
}

// notify records that the controller changed. A pending notification absorbs later ones.
func (m *Model) notify() {
	select {
	case m.updates <- struct{}{}:
	default:
	}
}

// Init starts the spinner and waits for controller changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.items.SetSize(msg.Width-4, max(msg.Height-10, 3))
		m.results.SetSize(msg.Width-4, max(msg.Height-12, 3))
		m.query.Width = max(msg.Width-8, 10)
		m.prompt.Width = max(msg.Width-8, 10)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.next) {
			return m, m.switchView((m.view + 1) % ViewState(len(viewNames)))
		}
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case ChatView:
			return m.handleChatKeys(msg)
		default:
			return m.handleWatchlistKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgWatchlistChanged:
		m.refreshWatchlist()
		return m, m.waitForChange()

	case MsgMutationDone:
		if err, _ := msg.data.(error); errors.Is(err, shared.ErrUnknownItem) {
			m.setStatus("That movie is no longer on your list.", true)
		}
		return m, nil

	case MsgSearchDone:
		m.searching = false
		res := msg.data.(searchDone)
		m.results.SetItems(movieItems(res.results))
		m.results.ResetSelected()
		return m, nil

	case MsgSaveDone:
		res := msg.data.(saveDone)
		m.setStatus(res.message, res.err != nil)
		if res.err == nil {
			if err := m.controller.Reload(); err != nil {
				m.setStatus(res.message+" Reopen the watchlist to see it.", false)
			}
		}
		return m, nil

	}
	return m, nil
}

func (m *Model) handleWatchlistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		if id, ok := m.selectedID(); ok {
			return m, m.mutate(m.controller.ToggleWatched, id)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if id, ok := m.selectedID(); ok {
			return m, m.mutate(m.controller.DeleteItem, id)
		}
		return m, nil
	case key.Matches(msg, m.keys.dismiss):
		m.controller.DismissError()
		return m, nil
	case key.Matches(msg, m.keys.reload):
		if err := m.controller.Reload(); err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
			m.setStatus(err.Error(), true)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.items, cmd = m.items.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, m.switchView(WatchlistView)
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.status = ""
		return m, m.runSearch(m.query.Value())
	case key.Matches(msg, m.keys.save):
		if it, ok := m.results.SelectedItem().(movieItem); ok {
			return m, m.runSave(it.movie)
		}
		return m, nil
	case msg.Type == tea.KeyUp || msg.Type == tea.KeyDown:
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	empty := len(m.chat.Messages()) == 0
	switch {
	case key.Matches(msg, m.keys.back):
		return m, m.switchView(WatchlistView)
	case key.Matches(msg, m.keys.reset):
		if !m.chat.Pending() {
			m.chat.Reset()
			m.suggestion = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.send):
		input := m.prompt.Value()
		if strings.TrimSpace(input) == "" && empty {
			input = chat.Suggestions()[m.suggestion]
		}
		if strings.TrimSpace(input) == "" || m.chat.Pending() {
			return m, nil
		}
		m.prompt.Reset()
		return m, m.runChat(input)
	case empty && m.prompt.Value() == "" && (msg.Type == tea.KeyUp || msg.Type == tea.KeyDown):
		n := len(chat.Suggestions())
		if msg.Type == tea.KeyUp {
			m.suggestion = (m.suggestion + n - 1) % n
		} else {
			m.suggestion = (m.suggestion + 1) % n
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) switchView(view ViewState) tea.Cmd {
	m.view = view
	m.status = ""
	m.query.Blur()
	m.prompt.Blur()
	switch view {
	case SearchView:
		return m.query.Focus()
	case ChatView:
		return m.prompt.Focus()
	}
	return nil
}

func (m *Model) refreshWatchlist() {
	m.state = m.controller.State()
	selected, _ := m.selectedID()
	sorted := m.state.Sorted()
	m.items.SetItems(savedItems(sorted))
	for i, item := range sorted {
		if item.ID == selected {
			m.items.Select(i)
			return
		}
	}
	if m.items.Index() >= len(sorted) && len(sorted) > 0 {
		m.items.Select(len(sorted) - 1)
	}
}

func (m *Model) selectedID() (string, bool) {
	it, ok := m.items.SelectedItem().(savedItem)
	if !ok {
		return "", false
	}
	return it.item.ID, true
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status, m.statusErr = msg, isErr
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return watchlistChangedMsg()
		case <-m.done:
			return nil
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) mutate(op func(context.Context, string) error, id string) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg(op(m.ctx, id))
	}
}

func (m *Model) runSearch(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.search.Search(m.ctx, query)
		return searchDoneMsg(results, err)
	}
}

func (m *Model) runSave(movie models.Movie) tea.Cmd {
	return func() tea.Msg {
		return saveDoneMsg(m.search.Save(m.ctx, movie))
	}
}

func (m *Model) runChat(input string) tea.Cmd {
	return func() tea.Msg {
		return chatReplyMsg(m.chat.Send(m.ctx, input))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case SearchView:
		body = m.renderSearch()
	case ChatView:
		body = m.renderChat()
	default:
		body = m.renderWatchlist()
	}

	helpView := m.help.ShortHelpView(m.keys.viewHelp(m.view))
	return fmt.Sprintf("%s\n\n%s\n\n%s", m.renderTabs(), body, helpView)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		if ViewState(i) == m.view {
			tabs[i] = styles.active.Render(name)
		} else {
			tabs[i] = styles.tab.Render(name)
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if label := m.state.User.Label(); label != "" {
		bar += "  " + styles.muted.Render(label)
	}
	return bar
}

func (m *Model) renderWatchlist() string {
	st := m.state
	var b strings.Builder

	watched := 0
	for _, item := range st.Items {
		if item.Watched {
			watched++
		}
	}
	b.WriteString(styles.title.Render(fmt.Sprintf("My Watchlist  %s %d  %s %d",
		styles.ok.Render(boxChecked), watched, styles.muted.Render(boxUnchecked), len(st.Items)-watched)))
	b.WriteString("\n")

	if st.HasError() {
		b.WriteString(styles.err.Render(st.Err) + styles.help.Render("  (e to dismiss)") + "\n")
	}
	if m.status != "" {
		b.WriteString(m.renderStatus() + "\n")
	}

	switch {
	case st.Status == watchlist.StatusUnauthenticated:
		b.WriteString(styles.warn.Render("You are signed out. Run `movli auth login` to see your watchlist."))
	case st.Loading && len(st.Items) == 0:
		b.WriteString(m.spinner.View() + " Loading your watchlist...")
	case len(st.Items) == 0:
		b.WriteString(styles.muted.Render("Your watchlist is empty. Search for movies to add!"))
	default:
		if st.Loading {
			b.WriteString(m.spinner.View() + " Refreshing...\n")
		}
		b.WriteString(m.items.View())
	}
	return b.String()
}

func (m *Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Search Movies"))
	b.WriteString("\n")
	b.WriteString(m.query.View())
	b.WriteString("\n\n")

	st := m.search.State()
	switch {
	case m.searching || st.Loading:
		b.WriteString(m.spinner.View() + " Searching...")
		return b.String()
	case st.Err != "":
		b.WriteString(styles.err.Render(st.Err))
		return b.String()
	}

	if m.status != "" {
		b.WriteString(m.renderStatus() + "\n")
	}
	if !m.search.CanSave() && len(st.Results) > 0 {
		b.WriteString(styles.help.Render(search.MsgLoginToSave) + "\n")
	}
	if len(m.results.Items()) > 0 {
		b.WriteString(m.results.View())
	}
	return b.String()
}

func (m *Model) renderChat() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Movie Assistant"))
	b.WriteString("\n")

	messages := m.chat.Messages()
	if len(messages) == 0 {
		b.WriteString(styles.muted.Render(chat.Greeting) + "\n\n")
		for i, s := range chat.Suggestions() {
			prefix := "  "
			if i == m.suggestion {
				prefix = styles.selected.Render("> ")
			}
			b.WriteString(prefix + s + "\n")
		}
	}

	for _, msg := range messages {
		if msg.Sender == models.SenderUser {
			b.WriteString(styles.selected.Render("You: ") + msg.Text + "\n")
		} else {
			b.WriteString(styles.ok.Render("Bot: ") + msg.Text + "\n")
		}
	}
	if m.chat.Pending() {
		b.WriteString(m.spinner.View() + styles.help.Render(" Bot is typing...") + "\n")
	}

	b.WriteString("\n" + m.prompt.View())
	return b.String()
}

func (m *Model) renderStatus() string {
	if m.statusErr {
		return styles.warn.Render(m.status)
	}
	return styles.ok.Render(m.status)
}
