// package formatter provides functions to export watchlist data to various formats (CSV, Markdown, plain text)
// and to read title lists back in for bulk import.
package formatter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

// WatchlistExport is a snapshot of one user's watchlist in display order.
type WatchlistExport struct {
	Owner      string             `json:"owner"`
	ExportedAt time.Time          `json:"exportedAt"`
	Items      []models.SavedItem `json:"items"`
}

// Watched returns the number of watched items.
func (e *WatchlistExport) Watched() int {
	n := 0
	for _, item := range e.Items {
		if item.Watched {
			n++
		}
	}
	return n
}

// ExportToCSV converts a WatchlistExport to CSV format with columns: ID, Title, Year, Watched, Poster
func ExportToCSV(export *WatchlistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Year", "Watched", "Poster"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range export.Items {
		record := []string{
			item.ID,
			item.Title,
			item.Year,
			fmt.Sprintf("%t", item.Watched),
			item.Poster,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a WatchlistExport to a Markdown checkbox list.
//
// posters maps item IDs to local poster filenames; items without one link the remote poster, if any.
func ExportToMarkdown(export *WatchlistExport, posters map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	title := "Watchlist"
	if export.Owner != "" {
		title = fmt.Sprintf("%s's Watchlist", export.Owner)
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Movies**: %d\n", len(export.Items))
	fmt.Fprintf(&buf, "**Watched**: %d\n\n", export.Watched())

	buf.WriteString("## Movies\n\n")
	for _, item := range export.Items {
		check := " "
		if item.Watched {
			check = "x"
		}
		yearPart := ""
		if item.Year != "" {
			yearPart = fmt.Sprintf(" (%s)", item.Year)
		}
		fmt.Fprintf(&buf, "- [%s] %s%s", check, item.Title, yearPart)

		if local, ok := posters[item.ID]; ok {
			fmt.Fprintf(&buf, " ![poster](%s)", local)
		} else if item.HasPoster() {
			fmt.Fprintf(&buf, " [poster](%s)", item.Poster)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a WatchlistExport to plain text format
func ExportToText(export *WatchlistExport) ([]byte, error) {
	var buf bytes.Buffer

	if export.Owner != "" {
		fmt.Fprintf(&buf, "Watchlist: %s\n", export.Owner)
	}
	fmt.Fprintf(&buf, "Movies: %d (%d watched)\n\n", len(export.Items), export.Watched())

	for i, item := range export.Items {
		yearPart := ""
		if item.Year != "" {
			yearPart = fmt.Sprintf(" (%s)", item.Year)
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s]\n", i+1, item.Title, yearPart, shared.WatchedString(item.Watched))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON summary of the export (owner, counts, timestamp) without items
func ToMetadataJSON(export *WatchlistExport) ([]byte, error) {
	meta := map[string]any{
		"owner":      export.Owner,
		"exportedAt": export.ExportedAt,
		"movies":     len(export.Items),
		"watched":    export.Watched(),
	}
	return shared.MarshalJSON(meta, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	MoviesFile   string
	MetadataFile string
}

// WriteCSVExport exports a watchlist to CSV format with accompanying metadata JSON file.
//
// Creates {base}_movies.csv and {base}_metadata.json; base defaults to "watchlist".
func WriteCSVExport(export *WatchlistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "watchlist"
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	moviesFile := baseFilepath + "_movies.csv"
	if err := os.WriteFile(moviesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		MoviesFile:   moviesFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Posters   int
	Warnings  []string
}

// WriteMarkdownExport exports a watchlist to Markdown format in a dedicated directory.
//
// Directory name defaults to "watchlist". With downloadPosters set, posters are fetched into {dir}/posters/
// and referenced locally; failed downloads are recorded as warnings and fall back to the remote link.
func WriteMarkdownExport(ctx context.Context, export *WatchlistExport, outputDir string, downloadPosters bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "watchlist"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	posters := make(map[string]string)
	if downloadPosters {
		posterDir := filepath.Join(outputDir, "posters")
		if err := os.MkdirAll(posterDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create poster directory: %w", err)
		}

		for _, item := range export.Items {
			if !item.HasPoster() {
				continue
			}
			imageData, err := DownloadImage(ctx, item.Poster)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", item.Title, err))
				continue
			}

			name := filepath.Join("posters", safeFilename(item.ID)+".jpg")
			if err := os.WriteFile(filepath.Join(outputDir, name), imageData, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", item.Title, err))
				continue
			}
			posters[item.ID] = name
			result.Posters++
			result.Files = append(result.Files, filepath.Join(outputDir, name))
		}
	}

	mdData, err := ExportToMarkdown(export, posters)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a watchlist to plain text format.
//
// Defaults to watchlist.txt as the filename.
func WriteTextExport(export *WatchlistExport, path string) (string, error) {
	if path == "" {
		path = "watchlist.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// TitleEntry is one movie to import.
type TitleEntry struct {
	Title string
	Year  string
}

// ReadTitles parses an import list.
//
// CSV input with a Title header (such as a CSV export) is read by column, using Year when present.
// Anything else is read one title per line; blank lines and lines starting with # are skipped, and a
// trailing "(1999)" is taken as the year.
func ReadTitles(r io.Reader) ([]TitleEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}

	if entries, ok, err := readCSVTitles(data); ok || err != nil {
		return entries, err
	}

	var entries []TitleEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, splitYear(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}
	return entries, nil
}

func readCSVTitles(data []byte) ([]TitleEntry, bool, error) {
	firstLine, _, _ := strings.Cut(string(data), "\n")
	if !strings.Contains(firstLine, ",") {
		return nil, false, nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, false, nil
	}
	titleCol, yearCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "title":
			titleCol = i
		case "year":
			yearCol = i
		}
	}
	if titleCol < 0 {
		return nil, false, nil
	}

	var entries []TitleEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, true, fmt.Errorf("failed to parse CSV titles: %w", err)
		}
		if titleCol >= len(record) || strings.TrimSpace(record[titleCol]) == "" {
			continue
		}
		entry := TitleEntry{Title: strings.TrimSpace(record[titleCol])}
		if yearCol >= 0 && yearCol < len(record) && record[yearCol] != models.PosterSentinel {
			entry.Year = strings.TrimSpace(record[yearCol])
		}
		entries = append(entries, entry)
	}
	return entries, true, nil
}

func splitYear(line string) TitleEntry {
	if strings.HasSuffix(line, ")") {
		if i := strings.LastIndex(line, "("); i > 0 {
			year := line[i+1 : len(line)-1]
			if len(year) == 4 && strings.Trim(year, "0123456789") == "" {
				return TitleEntry{Title: strings.TrimSpace(line[:i]), Year: year}
			}
		}
	}
	return TitleEntry{Title: line}
}

func safeFilename(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == '.' {
			return '_'
		}
		return r
	}, id)
}
