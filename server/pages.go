package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

// Page template names
const (
	pageLogin        = "login.html"
	pageDashboard    = "dashboard.html"
	pageAdmin        = "admin.html"
	pageAccessDenied = "access_denied.html"
)

// ParseTemplates parses every page together with the shared layout.
func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFiles, "templates/*.html")
}

// pageData is handed to every page template. Session is never nil.
type pageData struct {
	AppName  string
	Title    string
	Session  *session.Session
	Messages []string
	Errors   []string

	// Login page
	From       string
	Email      string
	CodeSent   bool
	Expired    bool
	SSOEnabled bool

	// Admin page
	Roles []users.RoleType
}

func (s *Server) newPage(title string, sess *session.Session) *pageData {
	if sess == nil {
		sess = &session.Session{}
	}
	return &pageData{AppName: s.config.GetAppName(), Title: title, Session: sess}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data *pageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		log.Err(err).Str("page", name).Msg("Failed to render page")
	}
}
