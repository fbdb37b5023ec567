// Package models defines domain entities for the Movli watchlist client and its reference service.
//
// The package contains two categories of types:
//
// 1. Wire and view types shared by the client packages
//   - [SavedItem] : a movie on the user's watchlist, in the remote store's JSON shape
//   - [ItemUpdate] : partial update body for a saved item
//   - [Movie] : a catalog search hit
//   - [Identity] : the signed-in user as reported by the session provider
//   - [ChatMessage] : one line of the assistant conversation
//
// 2. Persistent entities used by the reference service
//   - [User] : an account, upserted on first authenticated request
//   - [SavedMovie] : a [SavedItem] owned by a user, with insertion sequence
//
// Persistent entities implement [Model]; [Repository] is the generic data access contract.
package models
