// Package tmpl embeds the HTML templates so the binary ships self-contained.
package tmpl

import (
	"embed"
	"html/template"
)

//go:embed *.html
var Files embed.FS

func Templates() (*template.Template, error) {
	return template.ParseFS(Files, "*.html")
}
