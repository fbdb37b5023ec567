package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/movli/internal/services"
	"github.com/desertthunder/movli/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL = "https://securetoken.googleapis.com/v1"

	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// ProviderPassword and ProviderGoogle name the sign-in methods recorded on an identity.
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

// AuthResponse is the common body of the accounts:* endpoints.
type AuthResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	ProviderID   string `json:"providerId,omitempty"`
}

// RefreshResponse is the body of the secure token endpoint.
type RefreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IdentityToolkit is a REST client for the hosted identity provider.
type IdentityToolkit struct {
	apiKey string
	auth   *services.APIService
	token  *services.APIService
}

// NewIdentityToolkit creates a client from cfg.
func NewIdentityToolkit(cfg shared.FirebaseConfig, client *http.Client) *IdentityToolkit {
	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	return &IdentityToolkit{
		apiKey: cfg.APIKey,
		auth:   services.NewAPIService(authURL, client),
		token:  services.NewAPIService(tokenURL, client),
	}
}

// SignInWithPassword exchanges an email and password for tokens.
func (k *IdentityToolkit) SignInWithPassword(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	return k.accounts(ctx, "signInWithPassword", body)
}

// SignUp creates an account.
func (k *IdentityToolkit) SignUp(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	return k.accounts(ctx, "signUp", body)
}

// UpdateProfile sets the display name of the account owning idToken.
func (k *IdentityToolkit) UpdateProfile(ctx context.Context, idToken, displayName string) (*AuthResponse, error) {
	body := map[string]any{"idToken": idToken, "displayName": displayName, "returnSecureToken": true}
	return k.accounts(ctx, "update", body)
}

// SignInWithIdp exchanges a federated provider's ID token for tokens.
func (k *IdentityToolkit) SignInWithIdp(ctx context.Context, providerID, idToken, requestURI string) (*AuthResponse, error) {
	post := url.Values{}
	post.Set("id_token", idToken)
	post.Set("providerId", providerID)
	if requestURI == "" {
		requestURI = "http://localhost"
	}

	body := map[string]any{
		"postBody":            post.Encode(),
		"requestUri":          requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	return k.accounts(ctx, "signInWithIdp", body)
}

// Refresh exchanges a refresh token for a new ID token.
func (k *IdentityToolkit) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	body := map[string]string{"grant_type": "refresh_token", "refresh_token": refreshToken}
	resp, err := k.token.Post(ctx, "/token?key="+url.QueryEscape(k.apiKey), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s", shared.ErrRefreshFailed, providerMessage(resp))
	}

	var out RefreshResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return &out, nil
}

func (k *IdentityToolkit) accounts(ctx context.Context, method string, body any) (*AuthResponse, error) {
	if k.apiKey == "" {
		return nil, fmt.Errorf("%w: credentials.firebase.api_key", shared.ErrMissingCredentials)
	}

	resp, err := k.auth.Post(ctx, "/accounts:"+method+"?key="+url.QueryEscape(k.apiKey), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, method, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s: %s", shared.ErrAuthFailed, method, providerMessage(resp))
	}

	var out AuthResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, method, err)
	}
	return &out, nil
}

// providerMessage extracts the provider's error code, e.g. EMAIL_NOT_FOUND.
func providerMessage(resp *services.APIResponse) string {
	var e toolkitError
	if err := resp.Decode(&e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return "status " + strconv.Itoa(resp.StatusCode)
}

// expiresAt converts an expiresIn string (seconds) to an absolute time.
func expiresAt(now time.Time, expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return now.Add(time.Duration(secs) * time.Second)
}

// GoogleOAuthConfig builds the authorization-code configuration for "Sign in with Google".
func GoogleOAuthConfig(cfg shared.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}
}
