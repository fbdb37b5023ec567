package web

import (
	"fmt"
	"strings"

	"github.com/desertthunder/movli/internal/models"
)

var recommendWords = []string{"recommend", "suggest", "watch", "what should", "pick"}

// Reply answers prompt using the caller's watchlist. It is deterministic: recommendations come from the first
// unwatched title in insertion order.
func Reply(prompt string, watchlist []models.SavedItem) string {
	lower := strings.ToLower(prompt)

	wantsPick := false
	for _, w := range recommendWords {
		if strings.Contains(lower, w) {
			wantsPick = true
			break
		}
	}

	if wantsPick && len(watchlist) > 0 {
		for _, item := range watchlist {
			if !item.Watched {
				return fmt.Sprintf("From your watchlist, how about '%s'%s? You haven't watched it yet.", item.Title, year(item.Year))
			}
		}
		return "You've watched everything on your list! Search for something new and save it for later."
	}

	return fmt.Sprintf("I can't look that up myself yet. Try searching the catalog for %q and save anything that catches your eye.", topic(prompt))
}

func year(y string) string {
	if y == "" || y == models.PosterSentinel {
		return ""
	}
	return " (" + y + ")"
}

// topic trims a prompt to a short search phrase.
func topic(prompt string) string {
	words := strings.Fields(strings.Trim(prompt, "?!. "))
	if len(words) > 6 {
		words = words[len(words)-6:]
	}
	return strings.Join(words, " ")
}
