// Package platformtest runs an in-memory Helix server for tests: the logon
// form flow (including the optional authorization consent step) and the
// compute/launcher context REST surface with ETag/If-Match semantics. Tests
// point a transport.Client at Server.URL and drive the real wire protocol.
package platformtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helixdata/helix-go/pkg/models"
)

const sessionCookie = "helix-session"

// Server is a fake Helix platform.
type Server struct {
	URL string

	mu       sync.Mutex
	compute  []*models.Context
	launcher []*models.Context
	etags    map[string]string // context id -> current etag
	requests []string          // "METHOD /path" per received request

	// Username/Password are the accepted credentials.
	Username string
	Password string

	// HiddenFields are rendered into the login form and must be echoed back
	// on submission.
	HiddenFields map[string]string

	// RequireAuthorization makes the credential submission answer with a
	// consent form instead of a direct success.
	RequireAuthorization bool

	// FormActionQuery is appended to the login form action to exercise
	// query-string stripping in the client.
	FormActionQuery string

	loggedIn      map[string]bool // session token -> authenticated
	authorized    map[string]bool // session token -> consent given
	lastLoginForm url.Values

	srv *httptest.Server
}

// LastLoginForm returns the form body of the most recent credential
// submission.
func (s *Server) LastLoginForm() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoginForm
}

// New starts a fake platform with default credentials user1/secret and one
// hidden login-form field.
func New() *Server {
	s := &Server{
		etags:           map[string]string{},
		Username:        "user1",
		Password:        "secret",
		HiddenFields:    map[string]string{"execution": "e1s1"},
		FormActionQuery: "?execution=e1s1",
		loggedIn:        map[string]bool{},
		authorized:      map[string]bool{},
	}

	r := mux.NewRouter()
	r.Use(s.recordRequests)

	r.HandleFunc("/logon/login", s.loginPage).Methods("GET")
	r.HandleFunc("/logon/login", s.submitLogin).Methods("POST")
	r.HandleFunc("/logon/logout", s.logout).Methods("GET")
	r.HandleFunc("/oauth/authorize", s.authorize).Methods("POST")

	r.HandleFunc("/compute/contexts", s.listContexts(&s.compute)).Methods("GET")
	r.HandleFunc("/compute/contexts", s.createContext(&s.compute)).Methods("POST")
	r.HandleFunc("/compute/contexts/{id}", s.getContext(&s.compute)).Methods("GET")
	r.HandleFunc("/compute/contexts/{id}", s.updateContext).Methods("PUT")
	r.HandleFunc("/compute/contexts/{id}", s.deleteContext).Methods("DELETE")
	r.HandleFunc("/launcher/contexts", s.listContexts(&s.launcher)).Methods("GET")
	r.HandleFunc("/launcher/contexts", s.createContext(&s.launcher)).Methods("POST")

	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL
	return s
}

// Close shuts the fake platform down.
func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// RequestCount returns how many received requests match the given method and
// path prefix. Empty method matches all verbs.
func (s *Server) RequestCount(method, pathPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, req := range s.requests {
		m, path, _ := strings.Cut(req, " ")
		if method != "" && m != method {
			continue
		}
		if strings.HasPrefix(path, pathPrefix) {
			count++
		}
	}
	return count
}

// TotalRequests returns the number of requests received so far.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// SeedComputeContext adds a compute context directly to the store and
// returns it.
func (s *Server) SeedComputeContext(c models.Context) *models.Context {
	return s.seed(&s.compute, c)
}

// SeedLauncherContext adds a launcher context directly to the store.
func (s *Server) SeedLauncherContext(c models.Context) *models.Context {
	return s.seed(&s.launcher, c)
}

func (s *Server) seed(store *[]*models.Context, c models.Context) *models.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	stored := c
	*store = append(*store, &stored)
	s.etags[stored.ID] = uuid.NewString()
	return &stored
}

// ETagFor returns the current etag of a stored context.
func (s *Server) ETagFor(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.etags[id]
}

// BumpETag simulates a concurrent server-side edit by rotating the etag.
func (s *Server) BumpETag(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etags[id] = uuid.NewString()
}

// ComputeContext returns the stored compute context with the given name, or
// nil.
func (s *Server) ComputeContext(name string) *models.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.compute {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// LauncherContext returns the stored launcher context with the given name,
// or nil.
func (s *Server) LauncherContext(name string) *models.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.launcher {
		if c.Name == name {
			return c
		}
	}
	return nil
}
