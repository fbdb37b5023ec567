package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/movli/internal/search"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search queries the catalog and optionally saves one of the results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")

	catalog, err := r.catalogService()
	if err != nil {
		return err
	}
	provider, err := r.identityProvider()
	if err != nil {
		return err
	}

	pick := cmd.Int("save")
	var saver search.Saver
	if pick > 0 && provider.Current() != nil {
		store, err := r.watchlistStore(ctx)
		if err != nil {
			return err
		}
		saver = store
	}

	page := search.NewPage(catalog, saver, provider, shared.WithLogger(r.logger, "component", "search"))
	results, err := page.Search(ctx, query)
	switch {
	case errors.Is(err, shared.ErrEmptyQuery):
		return fmt.Errorf("%w: %s", shared.ErrMissingArgument, search.MsgEmptyQuery)
	case errors.Is(err, shared.ErrNoResults):
		return r.writePlain("%s\n", search.MsgNoResults)
	case err != nil:
		r.writePlain("✗ %s\n", search.MsgFetchFailed)
		return err
	}

	if pick > 0 {
		return r.saveResult(ctx, page, pick)
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	rows := make([][]string, 0, len(results))
	for i, movie := range results {
		poster := "no"
		if movie.PosterPath != "" {
			poster = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), movie.SavedID(), movie.Title, movie.Year(), poster})
	}
	if err := r.writeTable([]string{"#", "ID", "Title", "Year", "Poster"}, rows, 1); err != nil {
		return err
	}

	if page.CanSave() && r.isTerminal() {
		r.writePlain("Save a result with 'movli search %s --save <#>'\n", query)
	}
	return nil
}

func (r *Runner) saveResult(ctx context.Context, page *search.Page, pick int) error {
	results := page.State().Results
	if pick > len(results) {
		return fmt.Errorf("%w: --save %d but only %d results", shared.ErrInvalidFlag, pick, len(results))
	}

	msg, err := page.Save(ctx, results[pick-1])
	switch {
	case err == nil:
		return r.writePlain("✓ %s\n", msg)
	case errors.Is(err, shared.ErrDuplicate):
		return r.writePlain("%s\n", msg)
	default:
		r.writePlain("✗ %s\n", msg)
		return err
	}
}
