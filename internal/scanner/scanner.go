// Package scanner inspects raw logon pages served by a Helix server: whether
// a session is already authenticated, which hidden fields the login form
// carries, where the form posts to, and whether a secondary authorization
// (consent) step is required. Everything here is a pure text analysis with no
// side effects; malformed or unexpected markup yields the no-match value,
// never an error. Brittleness against markup changes is contained to this
// package on purpose.
package scanner

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// logoutControl matches the "log out" control rendered on an authenticated
// logon page. A false negative here is treated as "not logged in".
var logoutControl = regexp.MustCompile(`(?is)<(?:button|a)\b[^>]*(?:onclick|href)[^>]*logout`)

// loginSuccessMarkers are the phrases the server embeds in the response to a
// successful credential submission. Success is inferred from the body, not
// from HTTP status codes.
var loginSuccessMarkers = []string{
	"You have signed in",
}

// IsAuthenticated reports whether the page body belongs to an already
// authenticated session.
func IsAuthenticated(body string) bool {
	return logoutControl.MatchString(body)
}

// IsLoginSuccess reports whether a submitted-login response body indicates a
// successful sign-in.
func IsLoginSuccess(body string) bool {
	for _, marker := range loginSuccessMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// HiddenFields returns the name/value pairs of hidden inputs inside the login
// form, or an empty map when no login form is present.
func HiddenFields(body string) map[string]string {
	form := findLoginForm(body)
	if form == nil {
		return map[string]string{}
	}
	return hiddenInputs(form)
}

// FormAction resolves the login form's action URL. A site-relative action is
// resolved against the server origin, and any query string is stripped: the
// login endpoint must be a clean path. Returns "" when no login form or
// action can be found, in which case callers keep their previously known URL.
func FormAction(body, serverURL string) string {
	form := findLoginForm(body)
	if form == nil {
		return ""
	}
	action := attr(form, "action")
	if action == "" {
		return ""
	}
	return resolveAction(action, serverURL)
}

// RequiresAuthorization reports whether the body contains the secondary
// "authorize this application" consent form, distinct from the primary
// credential form.
func RequiresAuthorization(body string) bool {
	return findAuthorizationForm(body) != nil
}

// AuthorizationForm extracts the consent form's action URL and hidden fields.
// The action is resolved against the server origin like FormAction. Returns
// ("", nil) when no consent form is present.
func AuthorizationForm(body, serverURL string) (string, map[string]string) {
	form := findAuthorizationForm(body)
	if form == nil {
		return "", nil
	}
	action := attr(form, "action")
	if action == "" {
		return "", nil
	}
	return resolveAction(action, serverURL), hiddenInputs(form)
}

// resolveAction strips the query string and prefixes the server origin onto
// site-relative paths.
func resolveAction(action, serverURL string) string {
	if i := strings.IndexByte(action, '?'); i >= 0 {
		action = action[:i]
	}
	if strings.HasPrefix(action, "/") {
		return strings.TrimRight(serverURL, "/") + action
	}
	return action
}

// findLoginForm locates the credential form: a <form> whose action mentions
// the logon subsystem. The consent form is explicitly excluded so a page
// containing both is never misread.
func findLoginForm(body string) *html.Node {
	return findForm(body, func(action string) bool {
		lower := strings.ToLower(action)
		return strings.Contains(lower, "logon") && !strings.Contains(lower, "authorize")
	})
}

// findAuthorizationForm locates the OAuth-consent-like authorization form.
func findAuthorizationForm(body string) *html.Node {
	return findForm(body, func(action string) bool {
		return strings.Contains(strings.ToLower(action), "authorize")
	})
}

// findForm parses the body and returns the first <form> whose action
// satisfies match. Parse failures and absent forms both return nil.
func findForm(body string, match func(action string) bool) *html.Node {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var found *html.Node
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "form" && match(attr(n, "action")) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	return found
}

// hiddenInputs collects name/value pairs from input[type=hidden] elements
// under the given form node.
func hiddenInputs(form *html.Node) map[string]string {
	fields := map[string]string{}

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			if strings.EqualFold(attr(n, "type"), "hidden") {
				if name := attr(n, "name"); name != "" {
					fields[name] = attr(n, "value")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(form)

	return fields
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
