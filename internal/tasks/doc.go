// Package tasks runs long watchlist operations with real-time progress reporting.
//
// # Operations
//
//  1. [ImportEngine.Import] : bulk import of a title list
//     - Deduplicates titles (accent and case folded, plus year)
//     - Skips titles already on the watchlist
//     - Searches each title in the catalog (rate limited, worker pool)
//     - Saves the first result with a poster, preferring a matching year
//     - Reports each title as saved, duplicate, not found or failed
//
//  2. [Export] : writes the sorted watchlist as JSON, CSV, Markdown or text
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Updates use select with default,
// so a slow or absent reader never stalls the work; callers must not rely on seeing every update.
package tasks
