// Package guard decides whether a navigation may proceed given the current
// session status. Decisions are pure: the same inputs always give the same
// answer, and nothing here touches the session.
package guard

import (
	"strings"

	"github.com/robby/taskdeck/internal/session"
)

// Kind is the outcome of a navigation check.
type Kind int

const (
	// Defer means the session is not resolved yet; show nothing and wait.
	Defer Kind = iota
	// Allow means the requested path may be shown.
	Allow
	// Redirect means navigate to Decision.To instead.
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Defer:
		return "defer"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the result of Decide.
type Decision struct {
	Kind Kind
	To   string // Redirect target
	From string // Path that was requested, so it can be resumed after login
}

// DefaultLoginPath is where unauthenticated navigation is sent.
const DefaultLoginPath = "/login"

// DefaultPublic lists the paths reachable without a session.
var DefaultPublic = []string{"/", "/login", "/register"}

// Guard holds the routing policy.
type Guard struct {
	LoginPath string
	Public    map[string]bool
}

// New returns a guard with the default login path and public paths.
func New() Guard {
	public := make(map[string]bool, len(DefaultPublic))
	for _, p := range DefaultPublic {
		public[p] = true
	}
	return Guard{LoginPath: DefaultLoginPath, Public: public}
}

// Decide evaluates a navigation to path.
func (g Guard) Decide(status session.Status, path string) Decision {
	if !status.Resolved() {
		return Decision{Kind: Defer}
	}
	target := normalize(path)
	if status == session.Authenticated || target == g.loginPath() || g.Public[target] {
		return Decision{Kind: Allow}
	}
	return Decision{Kind: Redirect, To: g.loginPath(), From: path}
}

func (g Guard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

// normalize drops a trailing slash and any query so "/login/" and
// "/login?x=1" match "/login".
func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}
