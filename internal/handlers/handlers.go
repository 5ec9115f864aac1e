package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"procurement-tracker/internal/tracker"
)

// SessionCookieName is the name of the session cookie. Its value must match
// the token stored in the session singleton.
const SessionCookieName = "session"

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	tracker      *tracker.Tracker
	templateDir  string
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(trk *tracker.Tracker, templateDir string, secureCookie bool) *Handlers {
	return &Handlers{tracker: trk, templateDir: templateDir, secureCookie: secureCookie}
}

// signedIn reports whether the request carries a cookie matching the
// current session singleton.
func (h *Handlers) signedIn(r *http.Request) bool {
	session := h.tracker.Session()
	if session == nil {
		return false
	}
	cookie, err := r.Cookie(SessionCookieName)
	return err == nil && cookie.Value != "" && cookie.Value == session.Token
}

// AuthMiddleware guards the tab routes: when no session singleton exists or
// the cookie does not match it, nothing renders and the browser is sent to
// the login page.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.signedIn(r) {
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Page
	Error string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the dashboard
	if h.signedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, "login.html", LoginViewModel{})
}

// Login handles the login form submission. Success replaces the session
// singleton and mirrors its token into the cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", LoginViewModel{Error: "Envio de formulário inválido"})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.render(w, r, "login.html", LoginViewModel{Error: "Preencha email e senha"})
		return
	}

	session, err := h.tracker.SignIn(email, password)
	if errors.Is(err, tracker.ErrAuth) {
		h.render(w, r, "login.html", LoginViewModel{Error: "Email ou senha inválidos"})
		return
	}
	if err != nil {
		log.Printf("SignIn error: %v", err)
		h.render(w, r, "login.html", LoginViewModel{Error: "Ocorreu um erro. Tente novamente."})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout clears the session singleton and sends the browser back to login.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.SignOut(); err != nil {
		log.Printf("SignOut error: %v", err)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// userMessage extracts the user-facing message from validation and auth
// failures. Other errors are internal and yield an empty string.
func userMessage(err error) string {
	var verr *tracker.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, tracker.ErrAuth):
		if _, detail, ok := strings.Cut(err.Error(), ": "); ok {
			return detail
		}
		return err.Error()
	}
	return ""
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	if err := tmpl.ExecuteTemplate(w, target, data); err != nil {
		log.Printf("Template execution error: %v", err)
	}
}
