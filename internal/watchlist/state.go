package watchlist

import (
	"context"

	"github.com/desertthunder/movli/internal/models"
)

// User-facing messages stored in [State.Err].
const (
	MsgFetchFailed  = "Failed to fetch your watchlist. Please try again later."
	MsgUpdateFailed = "Failed to update the movie status. Please try again."
	MsgDeleteFailed = "Failed to delete the movie. Please try again."
)

// SessionProvider notifies the controller of identity changes.
//
// Subscribe returns a function that releases the subscription.
type SessionProvider interface {
	Subscribe(fn func(*models.Identity)) (unsubscribe func())
}

// Store is the remote watchlist.
type Store interface {
	FetchAll(ctx context.Context) ([]models.SavedItem, error)
	UpdateByID(ctx context.Context, id string, update models.ItemUpdate) error
	DeleteByID(ctx context.Context, id string) error
}

// Status is the controller's coarse state.
type Status int

const (
	StatusLoading Status = iota
	StatusUnauthenticated
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the controller's view state.
type State struct {
	Items   []models.SavedItem
	Loading bool
	Err     string
	User    *models.Identity
	Status  Status
	Version uint64
}

// HasError reports whether the error slot is set.
func (s State) HasError() bool { return s.Err != "" }

// Sorted returns [SortItems] applied to the state's items.
func (s State) Sorted() []models.SavedItem { return SortItems(s.Items) }

func (s State) clone() State {
	out := s
	out.Items = cloneItems(s.Items)
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// EventKind distinguishes controller notifications.
type EventKind int

const (
	// EventChanged is sent after every state change.
	EventChanged EventKind = iota
	// EventAuthRequired is sent when the session reports no identity; views should leave the watchlist.
	EventAuthRequired
)

func (k EventKind) String() string {
	if k == EventAuthRequired {
		return "auth_required"
	}
	return "changed"
}

// Event is delivered to observers registered with [Controller.Subscribe].
type Event struct {
	Kind  EventKind
	State State
}
