package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTransport          = fmt.Errorf("transport error")
	ErrNotFound           = fmt.Errorf("not found")
	ErrDuplicate          = fmt.Errorf("already exists")

	// Watchlist errors
	ErrFetchFailed  = fmt.Errorf("fetch failed")
	ErrUpdateFailed = fmt.Errorf("update failed")
	ErrDeleteFailed = fmt.Errorf("delete failed")
	ErrSaveFailed   = fmt.Errorf("save failed")
	ErrUnknownItem  = fmt.Errorf("item not in watchlist")
	ErrClosed       = fmt.Errorf("controller closed")

	// Catalog errors
	ErrEmptyQuery = fmt.Errorf("empty search query")
	ErrNoResults  = fmt.Errorf("no results")
	ErrNoPoster   = fmt.Errorf("movie has no poster")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
