package server

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/services/identity"
)

//go:embed console/shell.html.tmpl
var consoleFS embed.FS

var shellTemplate = template.Must(template.ParseFS(consoleFS, "console/shell.html.tmpl"))

var consoleTitles = map[string]string{
	"login":           "Sign in",
	"dashboard":       "Dashboard",
	"user-management": "User management",
	"employees":       "Employees",
	"departments":     "Departments",
	"job-history":     "Job history",
}

type shellData struct {
	View  string
	Title string
	Email string
}

// mountConsole serves the browser shell for every console route behind the
// route guard. The shell only carries the view name; the page itself talks
// to /api.
func mountConsole(r chi.Router) {
	guard := identity.NewGuard(func(r *http.Request) bool {
		_, ok := auth.GetUserFromContext(r.Context())
		return ok
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware)
		r.Get(identity.LoginPath, handleShell)
		for _, route := range identity.ProtectedRoutes {
			r.Get(route, handleShell)
			r.Get(route+"/*", handleShell)
		}
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, identity.LandingPath, http.StatusSeeOther)
		})
	})
}

func handleShell(w http.ResponseWriter, r *http.Request) {
	view := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)[0]
	data := shellData{View: view, Title: consoleTitles[view]}
	if p, ok := auth.GetUserFromContext(r.Context()); ok {
		data.Email = p.Email
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := shellTemplate.Execute(w, data); err != nil {
		logf(r, "ERROR", "render console shell: %v", err)
	}
}
