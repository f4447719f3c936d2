package registry

import (
	"errors"
	"fmt"
)

// UnknownLibraryError is returned when a link set references a name that
// was never registered as either a header or a library body.
type UnknownLibraryError struct {
	// Name is the missing library.
	Name string

	// Referrer is the registered library whose dependency list named it.
	// Empty when the name came directly from the snippet being linked.
	Referrer string
}

func (e *UnknownLibraryError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("unknown library %q (required by %q)", e.Name, e.Referrer)
	}
	return fmt.Sprintf("unknown library %q", e.Name)
}

// IsUnknownLibrary reports whether err is or wraps an UnknownLibraryError.
func IsUnknownLibrary(err error) bool {
	var ue *UnknownLibraryError
	return errors.As(err, &ue)
}
