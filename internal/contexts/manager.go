// Package contexts manages the lifecycle of Helix compute and launcher
// contexts: list, create, edit, delete, plus executability probing. Local
// validation and default-context protection run before any network call;
// edits are guarded by an If-Match precondition so a conflicting concurrent
// update on the server fails instead of being silently overwritten.
package contexts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/helixdata/helix-go/internal/transport"
	"github.com/helixdata/helix-go/pkg/models"
)

const (
	computeContextsPath  = "/compute/contexts"
	launcherContextsPath = "/launcher/contexts"

	// listLimit is deliberately oversized: context counts are small and a
	// single page keeps duplicate-name checks to one round trip.
	listLimit = 10000
)

// Manager performs CRUD over compute and launcher contexts on one Helix
// server. Credentials are never derived internally; callers pass a bearer
// token per operation, or "" for cookie-session access.
type Manager struct {
	serverURL               string
	client                  *transport.Client
	logger                  *zap.Logger
	defaultComputeContexts  []string
	defaultLauncherContexts []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a context lifecycle manager backed by the given client.
func NewManager(client *transport.Client, opts ...Option) *Manager {
	m := &Manager{
		serverURL:               client.ServerURL(),
		client:                  client,
		logger:                  zap.NewNop(),
		defaultComputeContexts:  defaultComputeContexts,
		defaultLauncherContexts: defaultLauncherContexts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ListComputeContexts returns the summary view of all compute contexts.
// An empty or malformed items payload yields an empty slice, never an error.
func (m *Manager) ListComputeContexts(ctx context.Context, token string) ([]models.ContextSummary, error) {
	return m.listContexts(ctx, computeContextsPath, "compute", token)
}

// ListLauncherContexts returns the summary view of all launcher contexts.
func (m *Manager) ListLauncherContexts(ctx context.Context, token string) ([]models.ContextSummary, error) {
	return m.listContexts(ctx, launcherContextsPath, "launcher", token)
}

func (m *Manager) listContexts(ctx context.Context, path, kind, token string) ([]models.ContextSummary, error) {
	resp, err := m.client.Get(ctx, fmt.Sprintf("%s?limit=%d", path, listLimit), token)
	if err != nil {
		return nil, fmt.Errorf("listing %s contexts: %w", kind, err)
	}

	// A malformed payload is treated the same as an empty one.
	var collection struct {
		Items []models.Context `json:"items"`
	}
	if err := json.Unmarshal(resp.Body, &collection); err != nil {
		collection.Items = nil
	}

	summaries := make([]models.ContextSummary, 0, len(collection.Items))
	for _, item := range collection.Items {
		summaries = append(summaries, models.ContextSummary{
			CreatedBy:  item.CreatedBy,
			ID:         item.ID,
			Name:       item.Name,
			Version:    item.Version,
			Attributes: map[string]any{},
		})
	}
	return summaries, nil
}

// CreateComputeContext creates a compute context. When the referenced
// launcher context is neither a platform default nor an existing resource,
// it is created on the fly with launch type "direct" before the compute
// context is posted.
func (m *Manager) CreateComputeContext(ctx context.Context, input models.CreateComputeContextInput, token string) (*models.Context, error) {
	if input.Name == "" {
		return nil, ErrMissingName
	}
	if m.isDefaultComputeContext(input.Name) {
		return nil, &ProtectedError{
			Name:    input.Name,
			Message: fmt.Sprintf("compute context %q already exists", input.Name),
		}
	}

	existing, err := m.ListComputeContexts(ctx, token)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if c.Name == input.Name {
			return nil, &DuplicateError{Kind: "compute", Name: input.Name}
		}
	}

	launchContextName := input.LaunchContextName
	if launchContextName != "" && !m.isDefaultLauncherContext(launchContextName) {
		launchers, err := m.ListLauncherContexts(ctx, token)
		if err != nil {
			return nil, err
		}
		found := false
		for _, c := range launchers {
			if c.Name == launchContextName {
				found = true
				break
			}
		}
		if !found {
			description := fmt.Sprintf("The launcher context for %s", launchContextName)
			created, err := m.CreateLauncherContext(ctx, launchContextName, description, "direct", token)
			if err != nil {
				return nil, fmt.Errorf("creating launcher context: %w", err)
			}
			if created == nil || created.Name == "" {
				return nil, fmt.Errorf("creating launcher context: server returned no name")
			}
			launchContextName = created.Name
		}
	}

	attributes := map[string]any{"reuseServerProcesses": true}
	if input.SharedAccountID != "" {
		attributes["runServerAs"] = input.SharedAccountID
	}

	body := models.Context{
		Name:          input.Name,
		LaunchContext: &models.LaunchContextRef{ContextName: launchContextName},
		Attributes:    attributes,
	}
	if len(input.AuthorizedUsers) > 0 {
		body.AuthorizedUsers = input.AuthorizedUsers
	} else {
		body.AuthorizeAllAuthenticatedUsers = true
	}
	if len(input.AutoExecLines) > 0 {
		body.Environment = &models.Environment{AutoExecLines: input.AutoExecLines}
	}

	res, err := transport.PostJSON[models.Context](ctx, m.client, computeContextsPath, body, token)
	if err != nil {
		// The duplicate preflight is best-effort; the server stays the
		// uniqueness authority and its conflict answer surfaces the same way.
		if transport.StatusOf(err) == http.StatusConflict {
			return nil, &DuplicateError{Kind: "compute", Name: input.Name}
		}
		return nil, fmt.Errorf("creating compute context: %w", err)
	}

	m.logger.Info("created compute context",
		zap.String("name", res.Result.Name),
		zap.String("id", res.Result.ID))
	return &res.Result, nil
}

// CreateLauncherContext creates a launcher context. An empty launchType
// defaults to "direct".
func (m *Manager) CreateLauncherContext(ctx context.Context, name, description, launchType, token string) (*models.Context, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	if m.isDefaultLauncherContext(name) {
		return nil, &ProtectedError{
			Name:    name,
			Message: fmt.Sprintf("launcher context %q already exists", name),
		}
	}
	if launchType == "" {
		launchType = "direct"
	}

	existing, err := m.ListLauncherContexts(ctx, token)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if c.Name == name {
			return nil, &DuplicateError{Kind: "launcher", Name: name}
		}
	}

	body := models.Context{
		Name:        name,
		Description: description,
		LaunchType:  launchType,
	}
	res, err := transport.PostJSON[models.Context](ctx, m.client, launcherContextsPath, body, token)
	if err != nil {
		if transport.StatusOf(err) == http.StatusConflict {
			return nil, &DuplicateError{Kind: "launcher", Name: name}
		}
		return nil, fmt.Errorf("creating launcher context: %w", err)
	}

	m.logger.Info("created launcher context",
		zap.String("name", res.Result.Name),
		zap.String("id", res.Result.ID))
	return &res.Result, nil
}

// EditComputeContext applies a partial update to the named compute context.
// Editing a default context is rejected unconditionally. The target is
// resolved by its current name, falling back to the edit's id when the name
// itself is being changed. The resource is then re-fetched for a current
// ETag and the merged definition is PUT with an If-Match precondition, so a
// conflicting concurrent edit fails instead of being clobbered.
func (m *Manager) EditComputeContext(ctx context.Context, name string, edit models.ContextEdit, token string) (*models.Context, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	if m.isDefaultComputeContext(name) {
		return nil, &ProtectedError{
			Name:     name,
			Message:  "editing default compute contexts is not allowed",
			Defaults: m.DefaultComputeContexts(),
		}
	}

	target, err := m.GetComputeContextByName(ctx, name, token)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) && edit.ID != "" {
			target, err = m.GetComputeContextByID(ctx, edit.ID, token)
		}
		if err != nil {
			return nil, err
		}
	}

	// Fresh fetch for the current ETag. Errors here propagate unprefixed,
	// except a 404 which names the context and server.
	resp, err := m.client.Get(ctx, computeContextsPath+"/"+target.ID, token)
	if err != nil {
		if transport.StatusOf(err) == http.StatusNotFound {
			return nil, &NotFoundError{Name: name, ServerURL: m.serverURL}
		}
		return nil, err
	}

	var current models.Context
	if err := json.Unmarshal(resp.Body, &current); err != nil {
		return nil, fmt.Errorf("failed to decode compute context %q: %w", name, err)
	}

	merged := mergeEdit(current, edit)

	res, err := transport.PutJSON[models.Context](ctx, m.client, computeContextsPath+"/"+current.ID, merged, token,
		map[string]string{"If-Match": resp.ETag})
	if err != nil {
		return nil, err
	}

	m.logger.Info("edited compute context",
		zap.String("name", res.Result.Name),
		zap.String("id", res.Result.ID))
	return &res.Result, nil
}

// mergeEdit shallow-merges an edit onto the current definition. Attributes
// are merged key by key rather than replaced.
func mergeEdit(current models.Context, edit models.ContextEdit) models.Context {
	merged := current
	if edit.Name != "" {
		merged.Name = edit.Name
	}
	if edit.Description != "" {
		merged.Description = edit.Description
	}
	if edit.LaunchContext != nil {
		merged.LaunchContext = edit.LaunchContext
	}
	if len(edit.Attributes) > 0 {
		attributes := make(map[string]any, len(current.Attributes)+len(edit.Attributes))
		for k, v := range current.Attributes {
			attributes[k] = v
		}
		for k, v := range edit.Attributes {
			attributes[k] = v
		}
		merged.Attributes = attributes
	}
	return merged
}

// GetComputeContextByName resolves a compute context via a filtered list
// query.
func (m *Manager) GetComputeContextByName(ctx context.Context, name, token string) (*models.Context, error) {
	filter := url.QueryEscape(fmt.Sprintf(`eq(name,"%s")`, name))
	res, err := transport.GetJSON[struct {
		Items []models.Context `json:"items"`
	}](ctx, m.client, computeContextsPath+"?filter="+filter, token)
	if err != nil {
		return nil, fmt.Errorf("getting compute context by name: %w", err)
	}
	if len(res.Result.Items) == 0 {
		return nil, &NotFoundError{Name: name, ServerURL: m.serverURL}
	}
	return &res.Result.Items[0], nil
}

// GetComputeContextByID returns the full-attribute view of a compute context.
func (m *Manager) GetComputeContextByID(ctx context.Context, id, token string) (*models.Context, error) {
	res, err := transport.GetJSON[models.Context](ctx, m.client, computeContextsPath+"/"+id, token)
	if err != nil {
		return nil, fmt.Errorf("getting compute context by id: %w", err)
	}
	return &res.Result, nil
}

// DeleteComputeContext deletes the named compute context. Deleting a default
// context is rejected unconditionally.
func (m *Manager) DeleteComputeContext(ctx context.Context, name, token string) (*models.Context, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	if m.isDefaultComputeContext(name) {
		return nil, &ProtectedError{
			Name:     name,
			Message:  "deleting default compute contexts is not allowed",
			Defaults: m.DefaultComputeContexts(),
		}
	}

	target, err := m.GetComputeContextByName(ctx, name, token)
	if err != nil {
		return nil, err
	}

	res, err := transport.DeleteJSON[models.Context](ctx, m.client, computeContextsPath+"/"+target.ID, token)
	if err != nil {
		return nil, fmt.Errorf("deleting compute context: %w", err)
	}

	m.logger.Info("deleted compute context",
		zap.String("name", name),
		zap.String("id", target.ID))
	return &res.Result, nil
}
