package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type messageEmailData struct {
	baseEmailData
	Greeting   string
	Paragraphs []string
	Signature  string
}

var templateFuncs = template.FuncMap{
	"lines": func(s string) template.HTML {
		parts := strings.Split(s, "\n")
		for i, p := range parts {
			parts[i] = template.HTMLEscapeString(strings.TrimSpace(p))
		}
		return template.HTML(strings.Join(parts, "<br>"))
	},
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// paragraphs splits a chat-style reply on blank lines. Single newlines
// (slot lists) stay inside their paragraph and render as <br>.
func paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}
