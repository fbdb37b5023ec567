// Package watchlist holds the view state of a signed-in user's saved movies.
//
// # Lifecycle
//
// [New] subscribes a [Controller] to a [SessionProvider]. Until the provider reports, the controller
// is in [StatusLoading] and fetches nothing. Each new identity triggers exactly one [Store.FetchAll];
// a nil identity clears the list, moves to [StatusUnauthenticated] and emits [EventAuthRequired].
// [Controller.Close] releases the subscription; completions that arrive afterwards are dropped.
//
// # Optimistic mutations
//
// [Controller.ToggleWatched] and [Controller.DeleteItem] copy the whole item sequence, apply the change
// locally, notify observers, and only then call the store. When the store fails the copy is put back
// and the single error slot is overwritten with a user-facing message.
//
// Both methods block until the store responds. The local change is visible to [Controller.State]
// and observers before the remote call is issued, so callers that need the UI to stay responsive
// run them in a goroutine (or a tea.Cmd).
//
// # Observers
//
// [Controller.Subscribe] registers a callback receiving an [Event] with a copy of the [State].
// Callbacks run outside the controller's lock on the goroutine that caused the change. When
// mutations run concurrently, events can arrive out of order; [State.Version] increases with every
// change so stale events can be ignored.
package watchlist
