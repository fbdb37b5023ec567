// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/movli/internal/models"
)

// MockSession is a test double for a session provider. Identities are delivered with [MockSession.Emit].
type MockSession struct {
	mu           sync.Mutex
	subs         map[int]func(*models.Identity)
	next         int
	current      *models.Identity
	emitted      bool
	Unsubscribed int
}

func NewMockSession() *MockSession {
	return &MockSession{subs: make(map[int]func(*models.Identity))}
}

// Subscribe registers fn. After the first Emit, fn is called with the current identity before Subscribe returns.
func (m *MockSession) Subscribe(fn func(*models.Identity)) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = fn
	emitted, current := m.emitted, m.current
	m.mu.Unlock()

	if emitted {
		fn(current)
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			m.Unsubscribed++
		}
	}
}

// Emit delivers identity to every current subscriber.
func (m *MockSession) Emit(identity *models.Identity) {
	m.mu.Lock()
	m.current = identity
	m.emitted = true
	fns := make([]func(*models.Identity), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(identity)
	}
}

// Current returns the last emitted identity.
func (m *MockSession) Current() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribers returns the number of live subscriptions.
func (m *MockSession) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// MockStore is an in-memory watchlist store.
//
// Set the Err fields to make calls fail. A non-nil gate channel makes the matching call block
// until a value is received or the channel is closed. [MockStore.HoldUpdate] and [MockStore.HoldDelete]
// block a single call for one id and decide its result.
type MockStore struct {
	mu    sync.Mutex
	Items []models.SavedItem

	FetchErr  error
	UpdateErr error
	DeleteErr error
	SaveErr   error

	FetchGate  chan struct{}
	UpdateGate chan struct{}
	DeleteGate chan struct{}

	FetchCalls int
	Updates    []MockUpdate
	Deletes    []string
	Saved      []models.Movie

	holds map[string][]*MockHold
}

// MockHold blocks one store call until [MockHold.Release] is called.
type MockHold struct {
	result chan error
}

// Release lets the held call return err.
func (h *MockHold) Release(err error) {
	h.result <- err
}

// HoldUpdate makes the next UpdateByID call for id block until the returned hold is released.
// Holds for the same id are used in the order they were created.
func (m *MockStore) HoldUpdate(id string) *MockHold {
	return m.hold("update:" + id)
}

// HoldDelete makes the next DeleteByID call for id block until the returned hold is released.
func (m *MockStore) HoldDelete(id string) *MockHold {
	return m.hold("delete:" + id)
}

func (m *MockStore) hold(key string) *MockHold {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holds == nil {
		m.holds = make(map[string][]*MockHold)
	}
	h := &MockHold{result: make(chan error, 1)}
	m.holds[key] = append(m.holds[key], h)
	return h
}

// takeHold pops the next hold for key. Callers hold mu.
func (m *MockStore) takeHold(key string) *MockHold {
	queue := m.holds[key]
	if len(queue) == 0 {
		return nil
	}
	m.holds[key] = queue[1:]
	return queue[0]
}

// MockUpdate records one UpdateByID call.
type MockUpdate struct {
	ID      string
	Watched bool
}

func (m *MockStore) FetchAll(ctx context.Context) ([]models.SavedItem, error) {
	m.mu.Lock()
	m.FetchCalls++
	gate := m.FetchGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	out := make([]models.SavedItem, len(m.Items))
	copy(out, m.Items)
	return out, nil
}

func (m *MockStore) UpdateByID(ctx context.Context, id string, update models.ItemUpdate) error {
	m.mu.Lock()
	watched := update.Watched != nil && *update.Watched
	m.Updates = append(m.Updates, MockUpdate{ID: id, Watched: watched})
	gate := m.UpdateGate
	held := m.takeHold("update:" + id)
	m.mu.Unlock()
	if held != nil {
		return <-held.result
	}
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UpdateErr
}

func (m *MockStore) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	m.Deletes = append(m.Deletes, id)
	gate := m.DeleteGate
	held := m.takeHold("delete:" + id)
	m.mu.Unlock()
	if held != nil {
		return <-held.result
	}
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DeleteErr
}

func (m *MockStore) Save(ctx context.Context, movie models.Movie) (*models.SavedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	m.Saved = append(m.Saved, movie)
	item := models.SavedItem{ID: movie.SavedID(), Title: movie.Title, Year: movie.Year(), Poster: movie.PosterURL("")}
	m.Items = append(m.Items, item)
	return &item, nil
}

// UpdateCalls returns a copy of the recorded updates.
func (m *MockStore) UpdateCalls() []MockUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockUpdate(nil), m.Updates...)
}

// DeleteCalls returns a copy of the recorded deletes.
func (m *MockStore) DeleteCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Deletes...)
}

// Fetches returns the number of FetchAll calls.
func (m *MockStore) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls
}

// SetErrors replaces the update and delete errors.
func (m *MockStore) SetErrors(update, del error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateErr, m.DeleteErr = update, del
}

// MockCatalog answers searches from Results, keyed by query.
type MockCatalog struct {
	mu      sync.Mutex
	Results map[string][]models.Movie
	Err     error
	Queries []string
}

func (m *MockCatalog) SearchMovies(ctx context.Context, query string) ([]models.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.Movie(nil), m.Results[query]...), nil
}

// Searches returns the number of SearchMovies calls.
func (m *MockCatalog) Searches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockAssistant echoes prompts, or fails with Err. A non-nil Gate blocks replies until it yields.
// History returns Past, or HistoryErr.
type MockAssistant struct {
	mu         sync.Mutex
	Err        error
	Gate       chan struct{}
	Prompts    []string
	Past       []models.ChatMessage
	HistoryErr error
}

func (m *MockAssistant) History(ctx context.Context) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	return append([]models.ChatMessage(nil), m.Past...), nil
}

func (m *MockAssistant) Reply(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	gate := m.Gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return "echo: " + prompt, nil
}

// Calls returns the number of Reply calls.
func (m *MockAssistant) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
