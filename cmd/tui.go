package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/movli/internal/chat"
	"github.com/desertthunder/movli/internal/search"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/desertthunder/movli/internal/ui"
	"github.com/desertthunder/movli/internal/watchlist"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for the watchlist, search and chat views.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	provider, err := r.identityProvider()
	if err != nil {
		return err
	}
	store, err := r.watchlistStore(ctx)
	if err != nil {
		return err
	}
	catalog, err := r.catalogService()
	if err != nil {
		return err
	}
	assistant, err := r.assistantService(ctx)
	if err != nil {
		return err
	}

	controller := watchlist.New(ctx, provider, store, watchlist.WithLogger(shared.WithLogger(r.logger, "component", "watchlist")))
	defer controller.Close()

	page := search.NewPage(catalog, store, provider, shared.WithLogger(r.logger, "component", "search"))
	conversation := chat.New(assistant, shared.WithLogger(r.logger, "component", "chat"))

	model := ui.NewModel(ctx, controller, page, conversation)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
