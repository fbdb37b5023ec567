package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/movli/internal/models"
)

const (
	boxUnchecked = "☐"
	boxChecked   = "☑"
)

var (
	_ list.Item         = savedItem{}
	_ list.Item         = movieItem{}
	_ list.ItemDelegate = itemDelegate{}
)

// savedItem wraps [models.SavedItem] to implement [list.Item].
type savedItem struct {
	item models.SavedItem
}

func (i savedItem) FilterValue() string { return i.item.Title }
func (i savedItem) Title() string       { return i.item.Title }
func (i savedItem) Description() string { return i.item.Year }

// movieItem wraps [models.Movie] to implement [list.Item].
type movieItem struct {
	movie models.Movie
}

func (i movieItem) FilterValue() string { return i.movie.Title }
func (i movieItem) Title() string       { return i.movie.Title }
func (i movieItem) Description() string { return i.movie.Year() }

// itemDelegate renders both item kinds on a single line; saved items get a watched checkbox.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var line string
	switch it := item.(type) {
	case savedItem:
		box, title := styles.muted.Render(boxUnchecked), it.item.Title
		if it.item.Watched {
			box, title = styles.ok.Render(boxChecked), styles.done.Render(title)
		}
		line = fmt.Sprintf("%s %s %s", box, title, styles.muted.Render(it.item.Year))
	case movieItem:
		poster := ""
		if it.movie.PosterPath == "" {
			poster = styles.warn.Render(" (no poster)")
		}
		line = fmt.Sprintf("%s %s%s", it.movie.Title, styles.muted.Render(it.movie.Year()), poster)
	default:
		return
	}

	prefix := "  "
	if index == m.Index() {
		prefix = styles.selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

func savedItems(items []models.SavedItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		out[i] = savedItem{item: item}
	}
	return out
}

func movieItems(movies []models.Movie) []list.Item {
	out := make([]list.Item, len(movies))
	for i, movie := range movies {
		out[i] = movieItem{movie: movie}
	}
	return out
}

func newList(items []list.Item) list.Model {
	l := list.New(items, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	return l
}
