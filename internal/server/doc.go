// Package server holds the HTTP plumbing shared by the CLI and the reference watchlist service.
//
// [ChiRouter] wraps a chi mux behind the small [Router] interface. [Middleware] uses the
// func(http.Handler) http.Handler signature, so chi's own middleware and go-chi packages such as cors and
// httprate plug in unchanged. Middleware given to [ChiRouter.Use] must come before the first route;
// [ChiRouter.With] scopes middleware to the routes registered through the returned router.
//
// [RequestLogger] and [Recoverer] log through charmbracelet/log.
//
// [OAuthHandler] serves the redirect URI during "movli auth google". It checks the state parameter,
// exchanges the authorization code and delivers exactly one [OAuthResult]; later callbacks are rejected.
// Google's ID token arrives as the id_token extra of the exchanged token, see [OAuthResult.IDToken].
package server
