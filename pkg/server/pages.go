package server

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	indexPage = template.Must(template.ParseFS(templateFS, "templates/index.html"))
	errorPage = template.Must(template.ParseFS(templateFS, "templates/error.html"))
)

type errorPageData struct {
	Code    int
	Message string
}

// renderErrorPage writes the HTML error page. Falls back to plain text if
// the template fails to execute after the status line is already written.
func (s *Server) renderErrorPage(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := errorPage.Execute(w, errorPageData{Code: code, Message: message}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render error page")
	}
}
