package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("valid origin", func(t *testing.T) {
		c, err := New("https://helix.example.com/")
		require.NoError(t, err)
		assert.Equal(t, "https://helix.example.com", c.ServerURL())
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		_, err := New("ftp://helix.example.com")
		assert.Error(t, err)
	})

	t.Run("rejects missing host", func(t *testing.T) {
		_, err := New("not a url")
		assert.Error(t, err)
	})
}

func TestClientRequests(t *testing.T) {
	var lastRequest *http.Request

	r := mux.NewRouter()
	r.HandleFunc("/resource", func(w http.ResponseWriter, req *http.Request) {
		lastRequest = req.Clone(req.Context())
		w.Header().Set("ETag", `"v42"`)
		w.Write([]byte(`{"name":"thing"}`))
	}).Methods("GET", "PUT")
	r.HandleFunc("/missing", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	t.Run("bearer token and request id attached", func(t *testing.T) {
		resp, err := client.Get(context.Background(), "/resource", "tok-123")
		require.NoError(t, err)

		assert.Equal(t, 200, resp.Status)
		assert.Equal(t, `"v42"`, resp.ETag)
		assert.Equal(t, "Bearer tok-123", lastRequest.Header.Get("Authorization"))
		assert.NotEmpty(t, lastRequest.Header.Get("X-Request-Id"))
	})

	t.Run("no token means no authorization header", func(t *testing.T) {
		_, err := client.Get(context.Background(), "/resource", "")
		require.NoError(t, err)
		assert.Empty(t, lastRequest.Header.Get("Authorization"))
	})

	t.Run("put forwards extra headers", func(t *testing.T) {
		_, err := client.Put(context.Background(), "/resource", map[string]string{"name": "thing"}, "tok", map[string]string{"If-Match": `"v41"`})
		require.NoError(t, err)
		assert.Equal(t, `"v41"`, lastRequest.Header.Get("If-Match"))
		assert.Equal(t, "application/json", lastRequest.Header.Get("Content-Type"))
	})

	t.Run("error status yields typed error", func(t *testing.T) {
		_, err := client.Get(context.Background(), "/missing", "")
		require.Error(t, err)

		var terr *Error
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, 404, terr.Status)
		assert.Equal(t, 404, StatusOf(err))
	})

	t.Run("network failure has no status", func(t *testing.T) {
		dead, err := New("http://127.0.0.1:1")
		require.NoError(t, err)

		_, err = dead.Get(context.Background(), "/resource", "")
		require.Error(t, err)
		assert.Equal(t, 0, StatusOf(err))
	})
}

func TestPostFormKeepsCookies(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/login", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		assert.Equal(t, "user1", req.PostForm.Get("username"))
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
	}).Methods("POST")
	r.HandleFunc("/private", func(w http.ResponseWriter, req *http.Request) {
		cookie, err := req.Cookie("session")
		if err != nil || cookie.Value != "abc" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	_, err = client.PostForm(context.Background(), "/login", url.Values{"username": {"user1"}})
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/private", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestJSONHelpers(t *testing.T) {
	type widget struct {
		Name string `json:"name"`
	}

	r := mux.NewRouter()
	r.HandleFunc("/widgets", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("ETag", `"w1"`)
		w.Write([]byte(`{"name":"created"}`))
	}).Methods("POST")
	r.HandleFunc("/widgets/1", func(w http.ResponseWriter, req *http.Request) {
		// Delete answers with an empty body.
	}).Methods("DELETE")

	srv := httptest.NewServer(r)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	t.Run("post decodes result and etag", func(t *testing.T) {
		res, err := PostJSON[widget](context.Background(), client, "/widgets", widget{Name: "w"}, "")
		require.NoError(t, err)
		assert.Equal(t, "created", res.Result.Name)
		assert.Equal(t, `"w1"`, res.ETag)
	})

	t.Run("delete tolerates empty body", func(t *testing.T) {
		res, err := DeleteJSON[widget](context.Background(), client, "/widgets/1", "")
		require.NoError(t, err)
		assert.Empty(t, res.Result.Name)
	})
}
