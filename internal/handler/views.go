package handler

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// templates holds every page; each is executed by its file name.
var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))
