package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/server"
	"github.com/desertthunder/movli/internal/session"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin signs in with email and password and stores the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.sessionManager()
	if err != nil {
		return err
	}

	email, err := r.flagOrPrompt(cmd, "email", "Email: ")
	if err != nil {
		return err
	}
	password, err := r.flagOrPrompt(cmd, "password", "Password: ")
	if err != nil {
		return err
	}

	identity, err := manager.SignIn(ctx, email, password)
	if err != nil {
		r.writePlain("✗ %s\n", session.MsgSignInFailed)
		return err
	}
	return r.writePlain("✓ Signed in as %s\n", identity.Label())
}

// AuthSignup creates an account, sets its display name and signs in.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.sessionManager()
	if err != nil {
		return err
	}

	email, err := r.flagOrPrompt(cmd, "email", "Email: ")
	if err != nil {
		return err
	}
	password, err := r.flagOrPrompt(cmd, "password", "Password: ")
	if err != nil {
		return err
	}
	confirm, err := r.flagOrPrompt(cmd, "confirm", "Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("%w: %s", shared.ErrInvalidInput, session.MsgPasswordMismatch)
	}

	identity, err := manager.SignUp(ctx, strings.TrimSpace(cmd.String("name")), email, password)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Account created, signed in as %s\n", identity.Label())
}

// AuthGoogle runs the browser authorization flow and exchanges Google's ID token for a session.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	google := r.config.Credentials.Google
	if google.ClientID == "" || google.ClientSecret == "" {
		return fmt.Errorf("%w: credentials.google.client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configLabel())
	}

	manager, err := r.sessionManager()
	if err != nil {
		return err
	}

	result, err := r.doOAuth(ctx, session.GoogleOAuthConfig(google), "sign in")
	if err != nil {
		r.writePlain("✗ %s\n", session.MsgGoogleSignInFailed)
		return err
	}

	idToken := result.IDToken()
	if idToken == "" {
		return fmt.Errorf("%w: Google returned no id_token", shared.ErrAuthFailed)
	}

	identity, err := manager.SignInWithIDP(ctx, session.ProviderGoogle, idToken, google.RedirectURI)
	if err != nil {
		r.writePlain("✗ %s\n", session.MsgGoogleSignInFailed)
		return err
	}
	return r.writePlain("✓ Signed in as %s\n", identity.Label())
}

// AuthLogout removes the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.sessionManager()
	if err != nil {
		return err
	}

	if manager.Current() == nil {
		return r.writePlain("Not signed in\n")
	}
	if err := manager.SignOut(); err != nil {
		return err
	}

	r.logger.Info("signed out")
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the signed-in user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	provider, err := r.identityProvider()
	if err != nil {
		return err
	}

	identity := provider.Current()
	if cmd.Bool("json") {
		return r.writeJSON(statusOutput(identity), cmd.Bool("pretty"))
	}

	if identity == nil {
		r.writePlain("✗ Not signed in\n")
		return r.writePlain("Run 'movli auth login' or 'movli auth google' to sign in\n")
	}

	r.writePlainHeader("Signed in")
	r.writePlain("User:     %s\n", identity.Label())
	r.writePlain("Email:    %s\n", identity.Email)
	r.writePlain("UID:      %s\n", identity.UID)
	return r.writePlain("Provider: %s\n", identity.Provider)
}

// AuthToken prints a valid ID token, refreshing it when it is about to expire.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.sessionManager()
	if err != nil {
		return err
	}

	token, err := manager.Token()
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", token.AccessToken)
}

type authStatus struct {
	SignedIn bool             `json:"signedIn"`
	User     *models.Identity `json:"user,omitempty"`
}

func statusOutput(identity *models.Identity) authStatus {
	return authStatus{SignedIn: identity != nil, User: identity}
}

// flagOrPrompt returns the flag value, reading it from input when the flag is empty.
func (r *Runner) flagOrPrompt(cmd *cli.Command, name, prompt string) (string, error) {
	if value := strings.TrimSpace(cmd.String(name)); value != "" {
		return value, nil
	}

	value, err := r.readLine(prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return value, nil
}

// doOAuth serves the redirect URI locally, opens the consent page and waits for the callback.
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, purpose string) (*server.OAuthResult, error) {
	google := r.config.Credentials.Google
	addr, err := google.CallbackAddr()
	if err != nil {
		return nil, err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	oauthHandler := server.NewOAuthHandler(config, state, google.CallbackPath())
	router := server.NewChiRouter()
	router.Use(server.Recoverer(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server for Google %s at %v", purpose, addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Google %s...\n", purpose)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return &result, nil
}
