package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
	"golang.org/x/oauth2"
)

// User-facing messages for failed sign-in attempts.
const (
	MsgSignInFailed       = "Failed to sign in. Please check your email and password."
	MsgGoogleSignInFailed = "Failed to sign in with Google. Please try again."
	MsgPasswordMismatch   = "Passwords do not match."
)

const (
	// expirySkew refreshes ID tokens slightly before they expire.
	expirySkew = time.Minute
	// defaultRefreshTimeout bounds a token refresh when no backend timeout is configured.
	defaultRefreshTimeout = 30 * time.Second
)

// Provider reports the signed-in identity.
type Provider interface {
	// Subscribe registers fn for identity changes. If the session is already loaded, fn is
	// called with the current identity before Subscribe returns.
	Subscribe(fn func(*models.Identity)) (unsubscribe func())
	// Current returns the signed-in identity or nil.
	Current() *models.Identity
	// Loading reports whether persisted credentials have not been read yet.
	Loading() bool
}

// Manager is the [Provider] backed by the hosted identity service and a [FileStore].
//
// It also implements [oauth2.TokenSource], yielding the ID token as a bearer token.
type Manager struct {
	toolkit *IdentityToolkit
	files   *FileStore
	logger  *log.Logger
	now     func() time.Time

	// notify serializes delivery so subscribers see changes in order. Lock order: notify, then mu.
	notify sync.Mutex

	mu     sync.Mutex
	creds  *Credentials
	loaded bool
	subs   map[int]func(*models.Identity)
	nextID int

	refresh        sync.Mutex
	refreshTimeout time.Duration
}

// NewManager creates a [Manager]. Call [Manager.Load] to read persisted credentials.
func NewManager(toolkit *IdentityToolkit, files *FileStore, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		toolkit: toolkit,
		files:   files,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]func(*models.Identity)),

		refreshTimeout: defaultRefreshTimeout,
	}
}

// SetRefreshTimeout bounds how long [Manager.Token] waits for the identity service. Non-positive values are ignored.
func (m *Manager) SetRefreshTimeout(d time.Duration) {
	if d > 0 {
		m.refreshTimeout = d
	}
}

// Load reads persisted credentials and notifies subscribers with the identity or nil.
func (m *Manager) Load() error {
	creds, err := m.files.Load()
	if err != nil {
		m.logger.Warn("discarding unreadable session", "path", m.files.Path(), "error", err)
		creds = nil
	}
	m.set(creds, true)
	return err
}

// Subscribe implements [Provider].
func (m *Manager) Subscribe(fn func(*models.Identity)) func() {
	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	loaded := m.loaded
	identity := m.identityLocked()
	m.mu.Unlock()

	if loaded {
		fn(identity)
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Current implements [Provider].
func (m *Manager) Current() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identityLocked()
}

// Loading implements [Provider].
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.loaded
}

// SignIn authenticates with email and password.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	resp, err := m.toolkit.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.logger.Error("sign in failed", "email", email, "error", err)
		return nil, err
	}
	return m.establish(resp, ProviderPassword)
}

// SignUp creates an account and signs in. A non-empty name becomes the display name.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (*models.Identity, error) {
	resp, err := m.toolkit.SignUp(ctx, email, password)
	if err != nil {
		m.logger.Error("sign up failed", "email", email, "error", err)
		return nil, err
	}

	if name != "" {
		updated, err := m.toolkit.UpdateProfile(ctx, resp.IDToken, name)
		if err != nil {
			m.logger.Warn("failed to set display name", "error", err)
		} else {
			resp.DisplayName = updated.DisplayName
			if updated.IDToken != "" {
				resp.IDToken, resp.RefreshToken, resp.ExpiresIn = updated.IDToken, updated.RefreshToken, updated.ExpiresIn
			}
		}
	}
	return m.establish(resp, ProviderPassword)
}

// SignInWithIDP signs in with a federated provider's ID token (e.g. Google).
func (m *Manager) SignInWithIDP(ctx context.Context, providerID, idToken, requestURI string) (*models.Identity, error) {
	resp, err := m.toolkit.SignInWithIdp(ctx, providerID, idToken, requestURI)
	if err != nil {
		m.logger.Error("federated sign in failed", "provider", providerID, "error", err)
		return nil, err
	}
	return m.establish(resp, providerID)
}

// SignOut removes persisted credentials and notifies subscribers with nil.
func (m *Manager) SignOut() error {
	if err := m.files.Clear(); err != nil {
		return err
	}
	m.set(nil, true)
	return nil
}

// Token implements [oauth2.TokenSource], refreshing the ID token when it is about to expire.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.refresh.Lock()
	defer m.refresh.Unlock()

	m.mu.Lock()
	creds := m.creds
	m.mu.Unlock()

	if creds == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if creds.Valid(m.now(), expirySkew) {
		return bearer(creds), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()

	resp, err := m.toolkit.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		m.logger.Error("token refresh failed", "uid", creds.Identity.UID, "error", err)
		return nil, err
	}

	next := *creds
	next.IDToken = resp.IDToken
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}
	next.Expiry = expiresAt(m.now(), resp.ExpiresIn)
	if claims, err := ParseIDToken(resp.IDToken); err == nil && !claims.Expiry().IsZero() {
		next.Expiry = claims.Expiry()
	}

	if err := m.files.Save(&next); err != nil {
		m.logger.Warn("failed to persist refreshed token", "error", err)
	}

	m.mu.Lock()
	if m.creds == creds {
		m.creds = &next
	}
	m.mu.Unlock()

	m.logger.Debug("refreshed id token", "uid", next.Identity.UID, "expiry", next.Expiry)
	return bearer(&next), nil
}

func (m *Manager) establish(resp *AuthResponse, provider string) (*models.Identity, error) {
	creds := &Credentials{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       expiresAt(m.now(), resp.ExpiresIn),
		Identity: models.Identity{
			UID:         resp.LocalID,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
			Provider:    provider,
		},
	}

	if claims, err := ParseIDToken(resp.IDToken); err == nil {
		if !claims.Expiry().IsZero() {
			creds.Expiry = claims.Expiry()
		}
		if creds.Identity.UID == "" {
			creds.Identity.UID = claims.UID()
		}
		if creds.Identity.DisplayName == "" {
			creds.Identity.DisplayName = claims.Name
		}
	}
	if creds.Identity.UID == "" {
		return nil, fmt.Errorf("%w: response has no user id", shared.ErrAuthFailed)
	}

	if err := m.files.Save(creds); err != nil {
		return nil, err
	}
	m.set(creds, true)

	m.logger.Info("signed in", "uid", creds.Identity.UID, "provider", provider)
	identity := creds.Identity
	return &identity, nil
}

// set replaces the credentials and notifies subscribers outside mu.
func (m *Manager) set(creds *Credentials, loaded bool) {
	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	m.creds = creds
	m.loaded = loaded
	identity := m.identityLocked()
	subs := make([]func(*models.Identity), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(identity)
	}
}

func (m *Manager) identityLocked() *models.Identity {
	if m.creds == nil {
		return nil
	}
	identity := m.creds.Identity
	return &identity
}

func bearer(creds *Credentials) *oauth2.Token {
	return &oauth2.Token{AccessToken: creds.IDToken, TokenType: "Bearer", Expiry: creds.Expiry}
}
