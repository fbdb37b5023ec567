package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
	tu "github.com/desertthunder/movli/internal/testing"
	"github.com/urfave/cli/v3"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			identity := tu.NewMockSession()
			store := &tu.MockStore{}
			catalog := &tu.MockCatalog{}
			assistant := &tu.MockAssistant{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Identity:   identity,
				Store:      store,
				Catalog:    catalog,
				Assistant:  assistant,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.identity != identity {
				t.Error("expected identity to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.assistant != assistant {
				t.Error("expected assistant to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.configLabel() != "/test/path/config.toml" {
				t.Errorf("expected label to be the path, got %s", runner.configLabel())
			}
		})

		t.Run("with empty configPath", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: ""})

			if runner.configPath != "" {
				t.Errorf("expected empty configPath, got %s", runner.configPath)
			}
			if runner.configLabel() != "config.toml" {
				t.Errorf("expected default label, got %s", runner.configLabel())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if output.String() != "\ndone\n" {
				t.Errorf("expected surrounding newlines, got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writeTable", func(t *testing.T) {
		t.Run("writes tab separated rows when not a terminal", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeTable([]string{"#", "Title"}, [][]string{{"1", "Alien"}, {"2", "Brazil"}}, 1)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if output.String() != "1\tAlien\n2\tBrazil\n" {
				t.Errorf("unexpected table output %q", output.String())
			}
		})

		t.Run("buffers are not terminals", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if runner.isTerminal() {
				t.Error("expected buffer output to be treated as non-terminal")
			}
		})
	})

	t.Run("readLine", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader("first\r\nlast")})

		line, err := runner.readLine("> ")
		if err != nil || line != "first" {
			t.Fatalf("expected first line, got %q, %v", line, err)
		}

		line, err = runner.readLine("")
		if err != nil || line != "last" {
			t.Fatalf("expected unterminated last line, got %q, %v", line, err)
		}

		if _, err := runner.readLine(""); err == nil {
			t.Error("expected EOF once input is exhausted")
		}
		if output.String() != "> " {
			t.Errorf("expected prompt to be written once, got %q", output.String())
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "search", "watchlist", "chat", "serve", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("expected command %q at index %d, got %q", want[i], i, cmd.Name)
			}
		}
	})

	t.Run("before", func(t *testing.T) {
		newApp := func(r *Runner) *cli.Command {
			return &cli.Command{
				Name: "movli",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config"},
					&cli.BoolFlag{Name: "debug"},
				},
				Before: r.before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
		}

		t.Run("loads the config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			data := "[backend]\nbase_url = \"http://backend.test\"\n"
			if err := os.WriteFile(path, []byte(data), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{})
			if err := newApp(runner).Run(context.Background(), []string{"movli", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.config.Backend.BaseURL != "http://backend.test" {
				t.Errorf("expected backend URL from file, got %s", runner.config.Backend.BaseURL)
			}
			if runner.config.Credentials.TMDB.BaseURL == "" {
				t.Error("expected missing keys to keep defaults")
			}
			if runner.configPath != path {
				t.Errorf("expected config path %s, got %s", path, runner.configPath)
			}
		})

		t.Run("missing file keeps defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			config := runner.config

			path := filepath.Join(t.TempDir(), "missing.toml")
			if err := newApp(runner).Run(context.Background(), []string{"movli", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config != config {
				t.Error("expected default config to remain")
			}
		})

		t.Run("invalid config is rejected", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server]\nport = 0\n"), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{})
			err := newApp(runner).Run(context.Background(), []string{"movli", "--config", path})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("catalogService", func(t *testing.T) {
		t.Run("requires an API key", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if _, err := runner.catalogService(); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("builds the client once", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.TMDB.APIKey = "key"
			runner := NewRunner(RunnerOpts{Config: config})

			first, err := runner.catalogService()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			second, _ := runner.catalogService()
			if first != second {
				t.Error("expected the catalog client to be reused")
			}
		})
	})

	t.Run("sessionManager", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Session.Path = filepath.Join(t.TempDir(), "session.json")
		runner := NewRunner(RunnerOpts{Config: config})

		manager, err := runner.sessionManager()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if manager.Loading() {
			t.Error("expected the stored session to be loaded")
		}
		if manager.Current() != nil {
			t.Error("expected no identity without a session file")
		}
		if provider, _ := runner.identityProvider(); provider != manager {
			t.Error("expected the manager to provide the identity")
		}
		if _, err := runner.watchlistStore(context.Background()); err != nil {
			t.Errorf("expected a store, got %v", err)
		}
	})

	t.Run("resolveItem", func(t *testing.T) {
		items := []models.SavedItem{{ID: "tmdb-2", Title: "Brazil"}, {ID: "tmdb-1", Title: "Alien"}}

		tc := []struct {
			name string
			ref  string
			want string
			err  error
		}{
			{name: "by id", ref: "tmdb-1", want: "tmdb-1"},
			{name: "by position", ref: "1", want: "tmdb-2"},
			{name: "trimmed", ref: " 2 ", want: "tmdb-1"},
			{name: "position out of range", ref: "3", err: shared.ErrInvalidArgument},
			{name: "zero position", ref: "0", err: shared.ErrInvalidArgument},
			{name: "unknown id", ref: "tmdb-9", err: shared.ErrUnknownItem},
			{name: "empty", ref: "", err: shared.ErrMissingArgument},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				item, err := resolveItem(items, tt.ref)
				if tt.err != nil {
					if !errors.Is(err, tt.err) {
						t.Errorf("expected %v, got %v", tt.err, err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if item.ID != tt.want {
					t.Errorf("expected %s, got %s", tt.want, item.ID)
				}
			})
		}
	})
}
