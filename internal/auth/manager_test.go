package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdata/helix-go/internal/platformtest"
	"github.com/helixdata/helix-go/internal/transport"
)

func newManager(t *testing.T, srv *platformtest.Server, opts ...Option) *Manager {
	t.Helper()
	client, err := transport.New(srv.URL)
	require.NoError(t, err)
	return NewManager(client, opts...)
}

func TestCheckSession(t *testing.T) {
	srv := platformtest.New()
	defer srv.Close()

	mgr := newManager(t, srv)

	state, err := mgr.CheckSession(context.Background())
	require.NoError(t, err)

	assert.False(t, state.IsLoggedIn)
	assert.Empty(t, state.UserName)
	assert.Equal(t, map[string]string{"execution": "e1s1"}, state.LoginForm)
}

func TestLogIn(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		mgr := newManager(t, srv)

		result, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		assert.True(t, result.IsLoggedIn)
		assert.Equal(t, "user1", result.UserName)

		form := srv.LastLoginForm()
		assert.Equal(t, "default", form.Get("serviceId"))
		assert.Equal(t, "e1s1", form.Get("execution"), "hidden form fields must be echoed")

		state, err := mgr.CheckSession(context.Background())
		require.NoError(t, err)
		assert.True(t, state.IsLoggedIn)
	})

	t.Run("explicit credentials win over scraped fields", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()
		srv.HiddenFields["username"] = "someone-else"

		mgr := newManager(t, srv)

		result, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		assert.True(t, result.IsLoggedIn)
		assert.Equal(t, "user1", srv.LastLoginForm().Get("username"))
	})

	t.Run("second login short-circuits without resubmitting the form", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		mgr := newManager(t, srv)

		first, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		require.True(t, first.IsLoggedIn)

		second, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		assert.True(t, second.IsLoggedIn)
		assert.Equal(t, first.UserName, second.UserName)

		assert.Equal(t, 1, srv.RequestCount("POST", "/logon/login"))
	})

	t.Run("invalid then valid credentials", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		mgr := newManager(t, srv)

		failed, err := mgr.LogIn(context.Background(), "user1", "wrong")
		require.NoError(t, err)
		assert.False(t, failed.IsLoggedIn)
		assert.Equal(t, "user1", failed.UserName)

		ok, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		assert.True(t, ok.IsLoggedIn)
		assert.Equal(t, "user1", ok.UserName)
	})

	t.Run("secondary authorization form is auto-submitted", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()
		srv.RequireAuthorization = true

		mgr := newManager(t, srv)

		result, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		assert.True(t, result.IsLoggedIn)
		assert.Equal(t, 1, srv.RequestCount("POST", "/oauth/authorize"))
	})
}

func TestLogInCallback(t *testing.T) {
	t.Run("fires once on a confirmed login round trip", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		calls := 0
		mgr := newManager(t, srv, WithOnLogin(func() { calls++ }))

		_, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("does not fire on the already-logged-in short circuit", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		calls := 0
		mgr := newManager(t, srv, WithOnLogin(func() { calls++ }))

		_, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)
		_, err = mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
	})

	t.Run("never fires on failure", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		calls := 0
		mgr := newManager(t, srv, WithOnLogin(func() { calls++ }))

		result, err := mgr.LogIn(context.Background(), "user1", "wrong")
		require.NoError(t, err)
		require.False(t, result.IsLoggedIn)
		assert.Zero(t, calls)
	})
}

func TestLogOut(t *testing.T) {
	t.Run("ends the server session", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		mgr := newManager(t, srv)

		_, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)

		ok, err := mgr.LogOut(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)

		state, err := mgr.CheckSession(context.Background())
		require.NoError(t, err)
		assert.False(t, state.IsLoggedIn)
	})

	t.Run("keeps local user name", func(t *testing.T) {
		srv := platformtest.New()
		defer srv.Close()

		mgr := newManager(t, srv)
		_, err := mgr.LogIn(context.Background(), "user1", "secret")
		require.NoError(t, err)

		_, err = mgr.LogOut(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "user1", mgr.UserName())
	})

	t.Run("error status still counts as completed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client, err := transport.New(srv.URL)
		require.NoError(t, err)
		mgr := NewManager(client)

		ok, err := mgr.LogOut(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("network failure is surfaced", func(t *testing.T) {
		client, err := transport.New("http://127.0.0.1:1")
		require.NoError(t, err)
		mgr := NewManager(client)

		ok, err := mgr.LogOut(context.Background())
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
