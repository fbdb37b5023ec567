// Package repositories implements SQLite persistence for the self-hosted watchlist service.
//
// Key Implementations:
//   - [UserRepository] : accounts keyed by the identity provider's UID, upserted on first request
//   - [MovieRepository] : saved movies per user, ordered by insertion
//   - [ChatRepository] : assistant conversation history per user
//
// Sequence numbers provide stable insertion ordering independent of ids and timestamps.
// [NextSequence] atomically increments per-table counters kept in dedicated sequence tables.
package repositories
