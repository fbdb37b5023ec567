// Package web implements the self-hosted watchlist service behind "movli serve".
//
// The service implements the same contract the CLI and TUI consume through services.HTTPStore,
// persisted in SQLite through the repositories package.
//
// Routes
//
//	GET    /health             → liveness and database check
//	GET    /metrics            → Prometheus metrics
//	GET    /api/movies         → the caller's saved movies, in insertion order
//	POST   /api/movies         → save a catalog movie (409 when already saved)
//	PUT    /api/movies/{id}    → update the watched flag (404 when unknown)
//	DELETE /api/movies/{id}    → remove a saved movie (404 when unknown)
//	POST   /api/chat           → assistant reply to {prompt}
//
// # Authentication
//
// Requests carry the identity provider's ID token as a bearer token. With server.jwt_secret set, tokens must be
// HS256-signed with that secret. Without it the service runs in development mode: claims are read without
// verifying the signature, and only the expiry is checked. Users are upserted on their first request.
//
// The chat endpoint also accepts anonymous requests; signed-in callers get replies drawn from their watchlist
// and their conversation is stored.
package web
