// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has three views, cycled with tab:
//  1. [WatchlistView] : the signed-in user's watchlist, unwatched first (toggle, delete, dismiss error, reload)
//  2. [SearchView] : catalog search with save-to-watchlist
//  3. [ChatView] : conversation with the movie assistant
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Watchlist changes flow from [watchlist.Controller] events through a one-slot channel, so bursts of events
// collapse into a single redraw that reads the controller's latest state.
//
// Keyboard navigation uses vim-style bindings (j/k, space, d, tab, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
