package services

import "errors"

// Upstream API outcomes. Callers treat every client result as optional and
// render a fallback when one of these comes back.
var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrNoData              = errors.New("no data available")
	ErrLocationNotFound    = errors.New("location not found")
	ErrNoStation           = errors.New("no radar station for location")
	ErrMissingCredential   = errors.New("missing API credential")
)

// Account and favorites outcomes.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrDuplicateFavorite  = errors.New("favorite already exists")
	ErrQuotaExceeded      = errors.New("favorite limit reached")
	ErrFavoriteNotFound   = errors.New("favorite not found")
	ErrNotOwner           = errors.New("favorite belongs to another user")
	ErrInvalidFavorite    = errors.New("invalid favorite location")
)

var ErrInvalidAccount = errors.New("email and password are required")
