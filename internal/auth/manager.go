// Package auth maintains a browser-like authenticated session against the
// Helix logon subsystem. The login handshake is a multi-step HTML-form
// negotiation: probe the logon page, submit the credential form with any
// hidden fields the page carried, optionally chain a secondary authorization
// (consent) form, and infer the final session state from response bodies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/helixdata/helix-go/internal/scanner"
	"github.com/helixdata/helix-go/internal/transport"
	"github.com/helixdata/helix-go/pkg/models"
)

const (
	loginPath  = "/logon/login"
	logoutPath = "/logon/logout"

	// serviceID identifies this client to the logon subsystem in the
	// credential form body.
	serviceID = "default"
)

// Manager handles login, logout and session probing for one Helix server.
// It holds the session's transient state: the user name of the last login
// attempt and the login/logout endpoints, which can shift when the server
// redirects to a different form action. None of this state is persisted, and
// a Manager is not safe for concurrent LogIn calls.
type Manager struct {
	serverURL string
	loginURL  string
	logoutURL string
	userName  string
	client    *transport.Client
	onLogin   func()
	logger    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithOnLogin registers a callback invoked after a confirmed login round
// trip, at most once per successful login. It does not fire when LogIn
// short-circuits on an already active session, and never on failure.
func WithOnLogin(fn func()) Option {
	return func(m *Manager) { m.onLogin = fn }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a session authenticator for the given server.
func NewManager(client *transport.Client, opts ...Option) *Manager {
	serverURL := client.ServerURL()
	m := &Manager{
		serverURL: serverURL,
		loginURL:  serverURL + loginPath,
		logoutURL: serverURL + logoutPath,
		client:    client,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UserName returns the user name of the most recent login attempt, or ""
// before any attempt was made.
func (m *Manager) UserName() string {
	return m.userName
}

// CheckSession probes the login endpoint and reports whether a session is
// active. When it is not, the returned state additionally carries the hidden
// fields of the presented login form, ready for submission. The only local
// side effect is updating the cached login URL when the page revealed a new
// form action.
func (m *Manager) CheckSession(ctx context.Context) (models.SessionState, error) {
	resp, err := m.client.Get(ctx, m.loginURL, "")
	if err != nil {
		return models.SessionState{}, fmt.Errorf("checking session: %w", err)
	}

	body := string(resp.Body)
	state := models.SessionState{
		IsLoggedIn: scanner.IsAuthenticated(body),
		UserName:   m.userName,
	}

	if !state.IsLoggedIn {
		if action := scanner.FormAction(body, m.serverURL); action != "" {
			m.loginURL = action
		}
		state.LoginForm = scanner.HiddenFields(body)
	}

	return state, nil
}

// LogIn authenticates against the server with the supplied credentials.
// A login against an already active session succeeds without resubmitting
// credentials. Otherwise the credential form is submitted; if the server
// answers with a secondary authorization form, that form is auto-submitted.
// When neither path confirms success, the session is probed once more before
// reporting failure: the authorize submission may have established a session
// out of band, and "login failed" is reported as IsLoggedIn false rather
// than an error.
func (m *Manager) LogIn(ctx context.Context, username, password string) (models.LoginResult, error) {
	// Set first so logs and errors reference the user even on failure.
	m.userName = username

	state, err := m.CheckSession(ctx)
	if err != nil {
		return models.LoginResult{UserName: m.userName}, err
	}
	if state.IsLoggedIn {
		m.logger.Debug("session already active, skipping login form", zap.String("user", username))
		return models.LoginResult{IsLoggedIn: true, UserName: m.userName}, nil
	}

	form := url.Values{}
	form.Set("serviceId", serviceID)
	form.Set("username", username)
	form.Set("password", password)
	for name, value := range state.LoginForm {
		// Explicit credential fields win over scraped ones.
		if form.Has(name) {
			continue
		}
		form.Set(name, value)
	}

	resp, err := m.client.PostForm(ctx, m.loginURL, form)
	if err != nil {
		return models.LoginResult{UserName: m.userName}, fmt.Errorf("submitting login form: %w", err)
	}
	body := string(resp.Body)

	var loggedIn bool
	if scanner.RequiresAuthorization(body) {
		if err := m.submitAuthorizationForm(ctx, body); err != nil {
			return models.LoginResult{UserName: m.userName}, err
		}
	} else {
		loggedIn = scanner.IsLoginSuccess(body)
	}

	if !loggedIn {
		state, err := m.CheckSession(ctx)
		if err != nil {
			return models.LoginResult{UserName: m.userName}, err
		}
		loggedIn = state.IsLoggedIn
	}

	if loggedIn {
		m.logger.Info("logged in", zap.String("user", username))
		if m.onLogin != nil {
			m.onLogin()
		}
	} else {
		m.logger.Warn("login failed", zap.String("user", username))
	}

	return models.LoginResult{IsLoggedIn: loggedIn, UserName: m.userName}, nil
}

// submitAuthorizationForm parses the secondary consent form and posts the
// approval back to the server.
func (m *Manager) submitAuthorizationForm(ctx context.Context, body string) error {
	action, fields := scanner.AuthorizationForm(body, m.serverURL)
	if action == "" {
		return fmt.Errorf("authorization form has no resolvable action")
	}

	form := url.Values{}
	for name, value := range fields {
		form.Set(name, value)
	}
	form.Set("user_oauth_approval", "true")

	if _, err := m.client.PostForm(ctx, action, form); err != nil {
		return fmt.Errorf("submitting authorization form: %w", err)
	}
	return nil
}

// LogOut ends the server-side session. Any completed response counts as a
// successful logout, including error statuses; only a network failure is
// reported as an error. Local state (user name, login URL) is deliberately
// left untouched.
func (m *Manager) LogOut(ctx context.Context) (bool, error) {
	if _, err := m.client.Get(ctx, m.logoutURL, ""); err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.Status != 0 {
			return true, nil
		}
		return false, err
	}
	return true, nil
}
