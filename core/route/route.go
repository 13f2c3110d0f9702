// Package route decides what happens to a navigation given the current session state.
package route

import (
	"strings"

	"github.com/trezcool/zenacademy/core/session"
)

// Paths
const (
	HomePath         = "/"
	LoginPath        = "/login"
	LogoutPath       = "/logout"
	LearnPath        = "/learn"
	SettingsPath     = "/settings"
	ManageCoursePath = "/manage-course"
	ManageUsersPath  = "/manage-users"
)

type Access int

const (
	Protected Access = iota // signed-in users only
	Public
	Admin
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Admin:
		return "admin"
	default:
		return "protected"
	}
}

var table = map[string]Access{
	LoginPath:        Public,
	HomePath:         Protected,
	LogoutPath:       Protected,
	LearnPath:        Protected,
	SettingsPath:     Protected,
	ManageCoursePath: Admin,
	ManageUsersPath:  Admin,
}

// AccessFor classifies path by its closest registered ancestor.
// Paths no rule covers are Protected.
func AccessFor(path string) Access {
	if path == "" {
		path = HomePath
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	for p := path; p != ""; p = parent(p) {
		if a, ok := table[p]; ok && (p != HomePath || path == HomePath) {
			return a
		}
	}
	return Protected
}

func parent(p string) string {
	if p == HomePath {
		return ""
	}
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return HomePath
	}
	return p[:i]
}

type Kind int

const (
	Allow Kind = iota
	Redirect
	Loading
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Loading:
		return "loading"
	default:
		return "allow"
	}
}

type Decision struct {
	Kind     Kind
	Location string // set for Redirect
}

func allow() Decision { return Decision{Kind: Allow} }
func redirect(loc string) Decision { return Decision{Kind: Redirect, Location: loc} }
func (d Decision) IsAllowed() bool { return d.Kind == Allow }
func (d Decision) IsRedirect() bool { return d.Kind == Redirect }

// Decide gates a navigation to path:
//   - nothing is decided before the session's initial check completes
//   - signed-in users are sent home from the login page
//   - anonymous users are sent to the login page from anything but public paths
//   - non-admins are sent home from admin paths
func Decide(st session.State, path string) Decision {
	if !st.Initialized {
		return Decision{Kind: Loading}
	}

	access := AccessFor(path)
	switch {
	case access == Public:
		if st.Authenticated() {
			return redirect(HomePath)
		}
		return allow()
	case !st.Authenticated():
		return redirect(LoginPath)
	case access == Admin && !st.IsAdmin():
		return redirect(HomePath)
	default:
		return allow()
	}
}
