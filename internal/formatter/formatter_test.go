package formatter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/movli/internal/models"
	th "github.com/desertthunder/movli/internal/testing"
)

func testExport(posterURL string) *WatchlistExport {
	return &WatchlistExport{
		Owner:      "Ann",
		ExportedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Items: []models.SavedItem{
			{ID: "tmdb-2", Title: "Brazil", Year: "1985", Poster: posterURL},
			{ID: "tmdb-1", Title: "Alien, Director's Cut", Year: "1979", Poster: "N/A", Watched: true},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport("https://img/b.jpg"))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Year,Watched,Poster\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "tmdb-2,Brazil,1985,false,https://img/b.jpg") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if !strings.Contains(output, `"Alien, Director's Cut"`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("remote posters", func(t *testing.T) {
			data, err := ExportToMarkdown(testExport("https://img/b.jpg"), nil)
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# Ann's Watchlist",
				"**Movies**: 2",
				"**Watched**: 1",
				"- [ ] Brazil (1985) [poster](https://img/b.jpg)",
				"- [x] Alien, Director's Cut (1979)\n",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
		})

		t.Run("local posters", func(t *testing.T) {
			data, _ := ExportToMarkdown(testExport("https://img/b.jpg"), map[string]string{"tmdb-2": "posters/tmdb-2.jpg"})
			if !strings.Contains(string(data), "![poster](posters/tmdb-2.jpg)") {
				t.Errorf("Markdown should reference the local poster, got:\n%s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport(""))
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Movies: 2 (1 watched)") {
			t.Errorf("text missing summary, got: %s", output)
		}
		if !strings.Contains(output, "1. Brazil (1985) [To watch]") || !strings.Contains(output, "2. Alien, Director's Cut (1979) [Watched]") {
			t.Errorf("text missing rows, got: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testExport(""))
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, `"movies": 2`) || !strings.Contains(output, `"owner": "Ann"`) {
			t.Errorf("unexpected metadata: %s", output)
		}
		if strings.Contains(output, "Brazil") {
			t.Error("metadata should not include items")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(context.Background(), ""); err == nil {
			t.Error("expected error for empty URL")
		}
	})

	t.Run("Status", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		if _, err := DownloadImage(context.Background(), server.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriteExports(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "mine")
		result, err := WriteCSVExport(testExport(""), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		th.AssertFileExists(t, result.MoviesFile)
		th.AssertFileExists(t, result.MetadataFile)
		if !strings.HasSuffix(result.MoviesFile, "mine_movies.csv") {
			t.Errorf("unexpected movies file %s", result.MoviesFile)
		}
		if !strings.Contains(th.MustReadFile(t, result.MoviesFile), "tmdb-1") {
			t.Error("CSV file missing rows")
		}
	})

	t.Run("WriteCSVExport WithDefaultPath", func(t *testing.T) {
		t.Chdir(t.TempDir())

		result, err := WriteCSVExport(testExport(""), "")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if result.MoviesFile != "watchlist_movies.csv" {
			t.Errorf("unexpected default file %s", result.MoviesFile)
		}
		th.AssertFileExists(t, result.MoviesFile)
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/missing.jpg" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		export := testExport(server.URL + "/b.jpg")
		export.Items = append(export.Items, models.SavedItem{ID: "tmdb-3", Title: "Casablanca", Poster: server.URL + "/missing.jpg"})

		dir := filepath.Join(t.TempDir(), "out")
		result, err := WriteMarkdownExport(context.Background(), export, dir, true)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		if result.Posters != 1 {
			t.Errorf("expected 1 poster, got %d", result.Posters)
		}
		if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Casablanca") {
			t.Errorf("expected a warning for the missing poster, got %v", result.Warnings)
		}
		th.AssertFileExists(t, filepath.Join(dir, "posters", "tmdb-2.jpg"))

		readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
		if !strings.Contains(readme, "![poster](posters/tmdb-2.jpg)") {
			t.Errorf("README should reference the downloaded poster, got:\n%s", readme)
		}
		if !strings.Contains(readme, "[poster]("+server.URL+"/missing.jpg)") {
			t.Errorf("README should fall back to the remote poster, got:\n%s", readme)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "list.txt")
		got, err := WriteTextExport(testExport(""), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
	})
}

func TestReadTitles(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  []TitleEntry
	}{
		{
			name:  "lines",
			input: "# my list\nThe Matrix (1999)\n\n  Alien  \nSe7en (19xx)\n",
			want:  []TitleEntry{{Title: "The Matrix", Year: "1999"}, {Title: "Alien"}, {Title: "Se7en (19xx)"}},
		},
		{
			name:  "csv export",
			input: "ID,Title,Year,Watched,Poster\ntmdb-1,\"Alien, Director's Cut\",1979,true,N/A\ntmdb-2,Brazil,N/A,false,\n",
			want:  []TitleEntry{{Title: "Alien, Director's Cut", Year: "1979"}, {Title: "Brazil"}},
		},
		{
			name:  "comma title without header",
			input: "Crouching Tiger, Hidden Dragon\nHeat\n",
			want:  []TitleEntry{{Title: "Crouching Tiger, Hidden Dragon"}, {Title: "Heat"}},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadTitles(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}
