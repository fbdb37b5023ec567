// Package services implements the HTTP clients Movli talks to: the watchlist backend, the movie catalog,
// and the chat assistant.
//
// # API Service
//
// [APIService] is the shared JSON-over-HTTP layer. It never interprets status codes; callers inspect
// [APIResponse] and map statuses to errors.
//
// # Watchlist Store
//
// [HTTPStore] implements the watchlist store contract (fetch-all, update-by-id, delete-by-id) plus save.
// Requests carry the session's ID token as a bearer token through an [oauth2] transport built by
// [NewAuthenticatedClient]. Status codes map to shared errors:
//   - 404 : [shared.ErrNotFound]
//   - 409 : [shared.ErrDuplicate]
//   - anything else, and network failures : [shared.ErrTransport]
//
// Calls go through a gobreaker circuit breaker; an open breaker fails fast with [shared.ErrTransport].
//
// # Catalog
//
// [TMDBService] searches /search/movie with a client-side [rate.Limiter].
//
// # Assistant
//
// [AssistantService] posts prompts to /api/chat and returns the reply text.
package services
