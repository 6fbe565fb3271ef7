package catalog

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the catalog pages. Calendar days render in loc.
func Templates(loc *time.Location) (*template.Template, error) {
	if loc == nil {
		loc = time.UTC
	}
	funcs := template.FuncMap{
		"day":         func(t time.Time) string { return scheduling.DayKey(t, loc) },
		"displayDate": model.DisplayDate,
		"join":        strings.Join,
	}
	return template.New("catalog").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}
