// Package session signs users in against the hosted identity service and keeps them signed in.
//
// [Manager] is the session provider the watchlist subscribes to. It persists [Credentials] through
// a [FileStore] (JSON, mode 0600, guarded by a file lock), refreshes the ID token when it expires,
// and implements [oauth2.TokenSource] so HTTP clients can attach the token as a bearer credential.
//
// [IdentityToolkit] wraps the provider's REST endpoints: password sign-in, sign-up, profile update,
// federated sign-in and token refresh. Provider failures wrap [shared.ErrAuthFailed] with the
// provider's error code (for example EMAIL_NOT_FOUND).
//
// Google sign-in uses the authorization-code flow built by [GoogleOAuthConfig]; the resulting
// id_token is exchanged through [Manager.SignInWithIDP].
package session
