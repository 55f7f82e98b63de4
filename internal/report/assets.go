package report

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"

	"github.com/f-sync/followcheck/internal/export"
	"github.com/f-sync/followcheck/internal/relationships"
)

//go:embed web/templates/*
var embeddedFS embed.FS

const (
	templateBaseName    = "base"
	templateReportFile  = "web/templates/report.tmpl"
	templateReportName  = "report.tmpl"
	accountHandlePrefix = "@"
	unknownLabelText    = "Unknown"
)

func parseTemplates(fileSystem fs.FS, files ...string) (*template.Template, error) {
	templateWithFuncs := template.New(templateBaseName).Funcs(template.FuncMap{
		"label":      resolveHandleLabel,
		"timestamp":  export.FormatTimestamp,
		"profileURL": safeProfileURL,
	})
	return templateWithFuncs.ParseFS(fileSystem, files...)
}

// resolveHandleLabel formats a handle with the @ prefix, falling back to a placeholder.
func resolveHandleLabel(record relationships.UserRecord) string {
	trimmedHandle := strings.TrimSpace(record.Handle)
	if trimmedHandle == "" {
		return unknownLabelText
	}
	return accountHandlePrefix + trimmedHandle
}

// safeProfileURL only lets http(s) links through to the rendered page.
func safeProfileURL(record relationships.UserRecord) template.URL {
	trimmedURL := strings.TrimSpace(record.ProfileURL)
	if strings.HasPrefix(trimmedURL, "https://") || strings.HasPrefix(trimmedURL, "http://") {
		return template.URL(trimmedURL)
	}
	return ""
}
