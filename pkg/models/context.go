package models

// LaunchContextRef names the launcher context backing a compute context.
// The relationship is by name, not by id; the referenced launcher context
// may not exist yet when a compute context is created.
type LaunchContextRef struct {
	ContextName string `json:"contextName"`
}

// Environment carries the startup configuration attached to a compute context.
type Environment struct {
	AutoExecLines []string `json:"autoExecLines,omitempty"`
}

// Context is a compute or launcher context definition as returned by the
// Helix REST API. Version is an opaque concurrency token maintained by the
// server; it is distinct from the HTTP ETag used for If-Match updates.
// Attributes is an open-ended bag of platform-specific properties
// (reuseServerProcesses, runServerAs, sysUserId, ...).
type Context struct {
	ID                             string            `json:"id,omitempty"`
	Name                           string            `json:"name"`
	CreatedBy                      string            `json:"createdBy,omitempty"`
	Version                        int               `json:"version,omitempty"`
	Description                    string            `json:"description,omitempty"`
	LaunchContext                  *LaunchContextRef `json:"launchContext,omitempty"`
	LaunchType                     string            `json:"launchType,omitempty"`
	Attributes                     map[string]any    `json:"attributes,omitempty"`
	Environment                    *Environment      `json:"environment,omitempty"`
	AuthorizedUsers                []string          `json:"authorizedUsers,omitempty"`
	AuthorizeAllAuthenticatedUsers bool              `json:"authorizeAllAuthenticatedUsers,omitempty"`
}

// ContextSummary is the list view of a context. Detailed attributes are
// intentionally omitted: callers fetch by id or name for the full view.
type ContextSummary struct {
	CreatedBy  string         `json:"createdBy"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Version    int            `json:"version"`
	Attributes map[string]any `json:"attributes"`
}

// ExecutableContext is a compute context that answered the executability
// probe. Attributes carries the sysUserId parsed from the probe log.
type ExecutableContext struct {
	CreatedBy  string         `json:"createdBy"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Version    int            `json:"version"`
	Attributes map[string]any `json:"attributes"`
}

// CreateComputeContextInput is the payload for creating a compute context.
type CreateComputeContextInput struct {
	Name              string
	LaunchContextName string
	SharedAccountID   string
	AutoExecLines     []string
	AuthorizedUsers   []string
}

// ContextEdit describes a partial update to a compute context. Zero-valued
// fields are left untouched; Attributes is merged key by key rather than
// replaced wholesale. ID is only consulted when the context can no longer be
// resolved by its current name (a rename carries the new name in Name).
type ContextEdit struct {
	ID            string            `json:"id,omitempty"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	LaunchContext *LaunchContextRef `json:"launchContext,omitempty"`
	Attributes    map[string]any    `json:"attributes,omitempty"`
}
