package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"fsanano/credit-tracker/internal/model"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Flashes     []string
	Username    string
	Customers   []model.Customer
	TotalCredit float64
}

// render executes the named page into a buffer first so a template error
// never leaves a half-written response.
func render(w http.ResponseWriter, logger *zap.Logger, name string, data pageData) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
