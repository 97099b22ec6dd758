// Package apperr defines the error kinds the quiz pipeline distinguishes.
//
// Errors are wrapped with both a kind and their cause, e.g.
//
//	fmt.Errorf("fetch %s: %w: %w", url, apperr.ErrConnectivity, err)
//
// so callers can branch with errors.Is and still see the underlying failure.
package apperr

import "errors"

var (
	// ErrConnectivity covers network and browser navigation failures.
	ErrConnectivity = errors.New("connectivity error")
	// ErrContentUnavailable means no qualifying article was found.
	ErrContentUnavailable = errors.New("content unavailable")
	// ErrPermission is returned by the push transport on authentication failures.
	ErrPermission = errors.New("permission denied")
	// ErrInvalidValue marks malformed caller input such as a bad question count.
	ErrInvalidValue = errors.New("invalid value")
	// ErrElementNotFound is returned by browser sessions when a DOM lookup misses.
	ErrElementNotFound = errors.New("element not found")
)

// Kind returns a short name for the kind of err, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConnectivity):
		return "connectivity"
	case errors.Is(err, ErrContentUnavailable):
		return "content-unavailable"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrInvalidValue):
		return "invalid-value"
	case errors.Is(err, ErrElementNotFound):
		return "element-not-found"
	default:
		return "unknown"
	}
}
