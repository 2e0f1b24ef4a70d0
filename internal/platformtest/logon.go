package platformtest

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// session extracts the session token from the request cookie, if any.
func (s *Server) session(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) isLoggedIn(r *http.Request) bool {
	token := s.session(r)
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RequireAuthorization && !s.authorized[token] {
		return false
	}
	return s.loggedIn[token]
}

// loginPage serves either the authenticated landing page or the credential
// form, mirroring how the real logon subsystem behaves.
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if s.isLoggedIn(r) {
		fmt.Fprint(w, `<html><body>
<h1>Helix</h1>
<button onclick="logout()">Log Out</button>
</body></html>`)
		return
	}

	fmt.Fprintf(w, `<html><body>
<form action="/logon/login%s" method="POST">
<input type="text" name="username"/>
<input type="password" name="password"/>`, s.FormActionQuery)
	s.mu.Lock()
	for name, value := range s.HiddenFields {
		fmt.Fprintf(w, "\n<input type=\"hidden\" name=%q value=%q/>", name, value)
	}
	s.mu.Unlock()
	fmt.Fprint(w, `
<button type="submit">Sign In</button>
</form>
</body></html>`)
}

// submitLogin validates the credential form: the credentials must match and
// every hidden field served on the login page must be echoed back.
func (s *Server) submitLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("username") != s.Username || r.PostForm.Get("password") != s.Password {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<p>Invalid credentials.</p>
<form action="/logon/login" method="POST"></form>
</body></html>`)
		return
	}

	s.mu.Lock()
	s.lastLoginForm = r.PostForm
	for name, value := range s.HiddenFields {
		// Credential fields are supplied explicitly by the client, never
		// echoed from the form.
		if name == "username" || name == "password" || name == "serviceId" {
			continue
		}
		if r.PostForm.Get(name) != value {
			s.mu.Unlock()
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><p>Stale login form.</p></body></html>`)
			return
		}
	}
	token := uuid.NewString()
	s.loggedIn[token] = true
	requireAuthorization := s.RequireAuthorization
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/"})
	w.Header().Set("Content-Type", "text/html")

	if requireAuthorization {
		fmt.Fprint(w, `<html><body>
<form action="/oauth/authorize" method="POST">
<input type="hidden" name="scope" value="openid"/>
<button type="submit">Authorize</button>
</form>
</body></html>`)
		return
	}

	fmt.Fprint(w, `<html><body><p>You have signed in.</p></body></html>`)
}

// authorize records the consent submission for the current session.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	token := s.session(r)
	if token == "" || r.PostForm.Get("user_oauth_approval") != "true" {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}
	s.mu.Lock()
	s.authorized[token] = true
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<html><body><p>Application authorized.</p></body></html>`)
}

// logout drops the session.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := s.session(r); token != "" {
		s.mu.Lock()
		delete(s.loggedIn, token)
		delete(s.authorized, token)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	fmt.Fprint(w, "signed out")
}
