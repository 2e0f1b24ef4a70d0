package models

// SessionState is the result of probing the logon endpoint. IsLoggedIn is
// always recomputed from the server response, never cached. LoginForm holds
// the hidden fields scraped from the login page when a login is required;
// it is nil for an authenticated session.
type SessionState struct {
	IsLoggedIn bool              `json:"isLoggedIn"`
	UserName   string            `json:"userName"`
	LoginForm  map[string]string `json:"loginForm,omitempty"`
}

// LoginResult reports the outcome of a login attempt. UserName is set even
// when the attempt failed, so downstream logs can reference it.
type LoginResult struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	UserName   string `json:"userName"`
}
