package handlers

import (
	"bytes"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/santoshho/laundry/internal/models"
)

// TemplateCache holds parsed templates
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: template.FuncMap{
			"prevPage":    func(currentPage int) int { return currentPage - 1 },
			"nextPage":    func(currentPage int) int { return currentPage + 1 },
			"statusLabel": models.StatusLabel,
			"money":       func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
			"qty":         func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
			"date":        func(t time.Time) string { return t.Local().Format("Jan 2, 2006 15:04") },
			"statuses":    func() []string { return models.OrderStatuses },
			"units":       func() []string { return models.ServiceUnits },
		},
	}
}

// Load parses every top-level page in fsys together with partials/*.html.
func (tc *TemplateCache) Load(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	partials, err := fs.Glob(fsys, "partials/*.html")
	if err != nil {
		return err
	}
	pages, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	for _, page := range pages {
		name := path.Base(page)
		files := append([]string{page}, partials...)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, files...)
		if err != nil {
			slog.Error("Failed to parse template", "file", page, "error", err)
			return err
		}
		tc.cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (tc *TemplateCache) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl := tc.Get(name)
	if tmpl == nil {
		slog.Error("Template not found", "name", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
