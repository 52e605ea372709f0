package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownCommand indicates a command name outside the catalogue.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidTabID indicates an empty or malformed tab id.
	ErrInvalidTabID = errors.New("invalid tab id")
	// ErrInvalidBookmark indicates a bookmark or history entry without a url.
	ErrInvalidBookmark = errors.New("entry url is required")
	// ErrNavigation indicates a page failed to load.
	ErrNavigation = errors.New("navigation failed")
	// ErrSurfaceClosed indicates the surface was destroyed while in use.
	ErrSurfaceClosed = errors.New("surface closed")
	// ErrServiceClosed indicates the shell was torn down.
	ErrServiceClosed = errors.New("shell closed")
)

// NavigationError reports a failed load for a specific url.
type NavigationError struct {
	URL    string
	Reason string
}

func (e *NavigationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("navigation to %s failed", e.URL)
	}
	return fmt.Sprintf("navigation to %s failed: %s", e.URL, e.Reason)
}

// Is reports whether target is ErrNavigation.
func (e *NavigationError) Is(target error) bool {
	return target == ErrNavigation
}
