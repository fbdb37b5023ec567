package watchlist

import "github.com/desertthunder/movli/internal/models"

// SortItems returns a new slice with unwatched items first and watched items after,
// keeping the relative order within each group. items is not modified.
func SortItems(items []models.SavedItem) []models.SavedItem {
	out := make([]models.SavedItem, 0, len(items))
	for _, item := range items {
		if !item.Watched {
			out = append(out, item)
		}
	}
	for _, item := range items {
		if item.Watched {
			out = append(out, item)
		}
	}
	return out
}

func cloneItems(items []models.SavedItem) []models.SavedItem {
	if items == nil {
		return nil
	}
	out := make([]models.SavedItem, len(items))
	copy(out, items)
	return out
}

func indexOf(items []models.SavedItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
