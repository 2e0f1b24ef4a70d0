package contexts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingName is returned when an operation is given an empty context name.
var ErrMissingName = errors.New("context name is required")

// ProtectedError is returned when an operation targets one of the default
// contexts that ship with the platform. Those may never be created, edited or
// deleted through this client; the check runs before any network call.
// Defaults, when set, enumerates the full reserved list for operator guidance.
type ProtectedError struct {
	Name     string
	Message  string
	Defaults []string
}

func (e *ProtectedError) Error() string {
	if len(e.Defaults) == 0 {
		return e.Message
	}
	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteString("\nDefault contexts:")
	for i, name := range e.Defaults {
		fmt.Fprintf(&b, "\n%d. %s", i+1, name)
	}
	return b.String()
}

// DuplicateError is returned when a context with the requested name already
// exists among contexts of its kind.
type DuplicateError struct {
	Kind string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s context %q already exists", e.Kind, e.Name)
}

// NotFoundError is returned when a context cannot be resolved on the server.
type NotFoundError struct {
	Name      string
	ServerURL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the context %q was not found at %q", e.Name, e.ServerURL)
}
