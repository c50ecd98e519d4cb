package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"errortrail/src/model"

	logger "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/*.html"))

type listPage struct {
	Base    string
	Records []model.ErrorRecordResponse
}

type detailPage struct {
	Base   string
	Record *model.ErrorRecordResponse
}

// ListErrorsPageHandler renders the recent errors as a minimal HTML table.
// base is the path the error routes are mounted on, used to build links.
func ListErrorsPageHandler(reader errorReader, base string, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r, maxLimit)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		records, err := reader.ListRecent(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list errors for ui")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		render(w, "list.html", listPage{Base: base, Records: records})
	}
}

// GetErrorPageHandler renders one error with its stack trace.
func GetErrorPageHandler(reader errorReader, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		record, found, err := reader.FetchOne(r.Context(), id)
		if err != nil {
			logger.WithError(err).WithField("error_id", id).Error("failed to fetch error for ui")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		render(w, "detail.html", detailPage{Base: base, Record: record})
	}
}

func render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.WithError(err).WithField("template", name).Error("failed to render errors page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WithError(err).Debug("failed to write errors page")
	}
}
