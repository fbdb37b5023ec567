package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/chat"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/services"
	"github.com/desertthunder/movli/internal/session"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/desertthunder/movli/internal/tasks"
	"github.com/desertthunder/movli/internal/watchlist"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Store is the remote watchlist used by the watchlist, search and import commands.
type Store interface {
	watchlist.Store
	Save(ctx context.Context, movie models.Movie) (*models.SavedItem, error)
}

// Identity reports the signed-in user and notifies subscribers of changes.
type Identity interface {
	Subscribe(fn func(*models.Identity)) (unsubscribe func())
	Current() *models.Identity
}

// Assistant answers chat prompts and lists the signed-in user's earlier messages.
type Assistant interface {
	chat.Assistant
	History(ctx context.Context) ([]models.ChatMessage, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services not supplied through [RunnerOpts] are built from the configuration on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      *bufio.Reader
	httpClient *http.Client

	manager   *session.Manager
	identity  Identity
	store     Store
	catalog   tasks.Catalog
	assistant Assistant
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	HTTPClient *http.Client

	Session   *session.Manager
	Identity  Identity
	Store     Store
	Catalog   tasks.Catalog
	Assistant Assistant
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      bufio.NewReader(opts.Input),
		httpClient: opts.HTTPClient,
		manager:    opts.Session,
		identity:   opts.Identity,
		store:      opts.Store,
		catalog:    opts.Catalog,
		assistant:  opts.Assistant,
	}
	if r.identity == nil && r.manager != nil {
		r.identity = r.manager
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, watchlistCommand, chatCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration named by --config and applies --debug.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// sessionManager returns the session manager, loading persisted credentials on first use.
func (r *Runner) sessionManager() (*session.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	path, err := r.config.Session.ResolvedPath()
	if err != nil {
		return nil, err
	}

	toolkit := session.NewIdentityToolkit(r.config.Credentials.Firebase, r.httpClient)
	manager := session.NewManager(toolkit, session.NewFileStore(path), shared.WithLogger(r.logger, "component", "session"))
	manager.SetRefreshTimeout(r.config.Backend.Timeout())
	if err := manager.Load(); err != nil {
		r.logger.Warn("continuing signed out", "error", err)
	}

	r.manager = manager
	if r.identity == nil {
		r.identity = manager
	}
	return manager, nil
}

func (r *Runner) identityProvider() (Identity, error) {
	if r.identity != nil {
		return r.identity, nil
	}
	if _, err := r.sessionManager(); err != nil {
		return nil, err
	}
	return r.identity, nil
}

// watchlistStore returns the remote store, authenticating requests with the session's ID token.
func (r *Runner) watchlistStore(ctx context.Context) (Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	manager, err := r.sessionManager()
	if err != nil {
		return nil, err
	}

	client := services.NewAuthenticatedClient(ctx, manager, r.config.Backend)
	api := services.NewAPIService(r.config.Backend.BaseURL, client)
	r.store = services.NewHTTPStore(api, r.config.Backend, shared.WithLogger(r.logger, "component", "store"))
	return r.store, nil
}

// catalogService returns the movie catalog client.
func (r *Runner) catalogService() (tasks.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	if r.config.Credentials.TMDB.APIKey == "" {
		return nil, fmt.Errorf("%w: credentials.tmdb.api_key must be set in %s", shared.ErrMissingCredentials, r.configLabel())
	}
	r.catalog = services.NewTMDBService(r.config.Credentials.TMDB, r.httpClient, shared.WithLogger(r.logger, "component", "catalog"))
	return r.catalog, nil
}

// assistantService returns the chat client. Requests carry the ID token when signed in.
func (r *Runner) assistantService(ctx context.Context) (Assistant, error) {
	if r.assistant != nil {
		return r.assistant, nil
	}

	manager, err := r.sessionManager()
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: r.config.Backend.Timeout()}
	if manager.Current() != nil {
		client = services.NewAuthenticatedClient(ctx, manager, r.config.Backend)
	}
	r.assistant = services.NewAssistantService(services.NewAPIService(r.config.Backend.BaseURL, client))
	return r.assistant, nil
}

// controller builds a watchlist controller and waits for its first fetch.
//
// The caller must Close the returned controller.
func (r *Runner) controller(ctx context.Context) (*watchlist.Controller, error) {
	provider, err := r.identityProvider()
	if err != nil {
		return nil, err
	}
	store, err := r.watchlistStore(ctx)
	if err != nil {
		return nil, err
	}

	c := watchlist.New(ctx, provider, store, watchlist.WithLogger(shared.WithLogger(r.logger, "component", "watchlist")))
	c.Wait()

	st := c.State()
	switch {
	case st.Status == watchlist.StatusUnauthenticated:
		c.Close()
		return nil, fmt.Errorf("%w: run 'movli auth login' first", shared.ErrNotAuthenticated)
	case st.HasError():
		c.Close()
		return nil, fmt.Errorf("%w: %s", shared.ErrFetchFailed, st.Err)
	}
	return c, nil
}

func (r *Runner) configLabel() string {
	if r.configPath == "" {
		return "config.toml"
	}
	return r.configPath
}

// readLine prompts and reads one line of input without the trailing newline.
func (r *Runner) readLine(prompt string) (string, error) {
	if prompt != "" {
		if err := r.writePlain("%s", prompt); err != nil {
			return "", err
		}
	}
	line, err := r.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// isTerminal reports whether output goes to an interactive terminal.
func (r *Runner) isTerminal() bool {
	file, ok := r.output.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// writeTable renders rows as a table on terminals and as tab-separated lines otherwise.
// Columns listed in right are right aligned.
func (r *Runner) writeTable(headers []string, rows [][]string, right ...int) error {
	if !r.isTerminal() {
		var b strings.Builder
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		return r.writePlain("%s", b.String())
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				tr[i] = row[i]
			}
		}
		tw.AppendRow(tr)
	}

	configs := make([]table.ColumnConfig, 0, len(right))
	for _, col := range right {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return r.writePlain("%s\n", tw.Render())
}
