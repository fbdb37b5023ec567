package watchlist

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

// Option configures a [Controller].
type Option func(*Controller)

// WithLogger sets the controller's logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns the watchlist view state for the current session.
//
// All state transitions happen under one mutex; store calls are made without holding it.
type Controller struct {
	ctx    context.Context
	store  Store
	logger *log.Logger

	mu          sync.Mutex
	state       State
	uid         string
	generation  uint64
	closed      bool
	unsubscribe func()
	observers   map[int]func(Event)
	nextID      int

	fetches sync.WaitGroup
}

// New creates a [Controller] and subscribes it to provider.
//
// ctx is used for fetches started by session notifications. It is not cancelled by [Controller.Close].
func New(ctx context.Context, provider SessionProvider, store Store, opts ...Option) *Controller {
	c := &Controller{
		ctx:       ctx,
		store:     store,
		logger:    log.New(io.Discard),
		state:     State{Loading: true, Status: StatusLoading},
		observers: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}

	unsubscribe := provider.Subscribe(c.onIdentity)

	c.mu.Lock()
	closed := c.closed
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	if closed {
		unsubscribe()
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SortedItems returns the current items with unwatched first. See [SortItems].
func (c *Controller) SortedItems() []models.SavedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SortItems(c.state.Items)
}

// Subscribe registers fn for state events and returns a function that removes it.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}

	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Wait blocks until every fetch started so far has completed.
func (c *Controller) Wait() {
	c.fetches.Wait()
}

// Close releases the session subscription and all observers. Later completions are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.observers = nil
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.logger.Debug("watchlist controller closed")
}

// DismissError clears the error slot.
func (c *Controller) DismissError() {
	c.mu.Lock()
	if c.closed || c.state.Err == "" {
		c.mu.Unlock()
		return
	}
	c.state.Err = ""
	d := c.commit(EventChanged)
	c.mu.Unlock()
	d.send()
}

// Reload fetches the watchlist again for the signed-in user, as when the view is reopened.
//
// Items stay visible until the fetch completes. Stale completions are discarded as for identity changes.
func (c *Controller) Reload() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrClosed
	}
	if c.uid == "" {
		c.mu.Unlock()
		return shared.ErrNotAuthenticated
	}

	c.generation++
	generation, uid := c.generation, c.uid
	c.state.Err = ""
	c.state.Loading = true
	d := c.commit(EventChanged)
	c.fetches.Add(1)
	c.mu.Unlock()
	d.send()

	go c.fetch(generation, uid)
	return nil
}

// ToggleWatched flips the watched flag of id locally, then asks the store to persist it.
//
// On store failure the item sequence is restored to what it was before the call and
// the error slot is set. The returned error wraps [shared.ErrUpdateFailed] and the store error.
func (c *Controller) ToggleWatched(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrClosed
	}
	idx := indexOf(c.state.Items, id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrUnknownItem, id)
	}

	snapshot := cloneItems(c.state.Items)
	generation := c.generation
	items := cloneItems(c.state.Items)
	items[idx].Watched = !items[idx].Watched
	watched := items[idx].Watched
	c.state.Items = items
	d := c.commit(EventChanged)
	c.mu.Unlock()
	d.send()

	err := c.store.UpdateByID(ctx, id, models.ItemUpdate{Watched: &watched})
	if err == nil {
		return nil
	}

	c.logger.Error("failed to update watched status", "id", id, "watched", watched, "error", err)
	c.rollback(generation, snapshot, MsgUpdateFailed)
	return fmt.Errorf("%w: %s: %w", shared.ErrUpdateFailed, id, err)
}

// DeleteItem removes id locally, then asks the store to delete it.
//
// On store failure the item sequence is restored, so the item is back at its original index,
// and the error slot is set. The returned error wraps [shared.ErrDeleteFailed] and the store error.
func (c *Controller) DeleteItem(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrClosed
	}
	idx := indexOf(c.state.Items, id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrUnknownItem, id)
	}

	snapshot := cloneItems(c.state.Items)
	generation := c.generation
	items := make([]models.SavedItem, 0, len(snapshot)-1)
	items = append(items, snapshot[:idx]...)
	items = append(items, snapshot[idx+1:]...)
	c.state.Items = items
	d := c.commit(EventChanged)
	c.mu.Unlock()
	d.send()

	err := c.store.DeleteByID(ctx, id)
	if err == nil {
		return nil
	}

	c.logger.Error("failed to delete movie", "id", id, "error", err)
	c.rollback(generation, snapshot, MsgDeleteFailed)
	return fmt.Errorf("%w: %s: %w", shared.ErrDeleteFailed, id, err)
}

// rollback restores snapshot and sets msg, unless the controller was closed or the identity changed since.
func (c *Controller) rollback(generation uint64, snapshot []models.SavedItem, msg string) {
	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding rollback for stale controller state")
		return
	}
	c.state.Items = snapshot
	c.state.Err = msg
	d := c.commit(EventChanged)
	c.mu.Unlock()
	d.send()
}

func (c *Controller) onIdentity(identity *models.Identity) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if identity == nil {
		c.uid = ""
		c.generation++
		c.state.Items = nil
		c.state.User = nil
		c.state.Err = ""
		c.state.Loading = false
		c.state.Status = StatusUnauthenticated
		d := c.commit(EventChanged, EventAuthRequired)
		c.mu.Unlock()
		c.logger.Debug("no identity, watchlist requires sign in")
		d.send()
		return
	}

	user := *identity
	c.state.User = &user
	if identity.UID == c.uid {
		d := c.commit(EventChanged)
		c.mu.Unlock()
		d.send()
		return
	}

	c.uid = identity.UID
	c.generation++
	generation := c.generation
	c.state.Items = nil
	c.state.Err = ""
	c.state.Loading = true
	c.state.Status = StatusLoading
	d := c.commit(EventChanged)
	c.fetches.Add(1)
	c.mu.Unlock()
	d.send()

	go c.fetch(generation, identity.UID)
}

func (c *Controller) fetch(generation uint64, uid string) {
	defer c.fetches.Done()

	items, err := c.store.FetchAll(c.ctx)

	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding stale fetch result", "uid", uid)
		return
	}

	c.state.Loading = false
	c.state.Status = StatusReady
	if err != nil {
		c.state.Items = nil
		c.state.Err = MsgFetchFailed
	} else {
		c.state.Items = cloneItems(items)
		c.state.Err = ""
	}
	d := c.commit(EventChanged)
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("failed to fetch watchlist", "uid", uid, "error", err)
	} else {
		c.logger.Debug("fetched watchlist", "uid", uid, "count", len(items))
	}
	d.send()
}

// dispatch is a batch of events captured under the lock and delivered after it is released.
type dispatch struct {
	observers []func(Event)
	events    []Event
}

// commit bumps the version and captures events for the current state. Caller must hold c.mu.
func (c *Controller) commit(kinds ...EventKind) dispatch {
	c.state.Version++
	if len(c.observers) == 0 {
		return dispatch{}
	}

	d := dispatch{observers: make([]func(Event), 0, len(c.observers))}
	for _, fn := range c.observers {
		d.observers = append(d.observers, fn)
	}
	for _, kind := range kinds {
		d.events = append(d.events, Event{Kind: kind, State: c.state.clone()})
	}
	return d
}

func (d dispatch) send() {
	for _, ev := range d.events {
		for _, fn := range d.observers {
			fn(ev)
		}
	}
}
