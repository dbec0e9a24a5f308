package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ShellQuote wraps s in single quotes so a POSIX shell treats it as one word.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// FuncMap is sprig's text function map plus shellquote.
func FuncMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["shellquote"] = ShellQuote
	return fm
}

// RenderTemplate executes tmplStr against data. Missing keys are errors.
func RenderTemplate(tmplStr string, data interface{}) (string, error) {
	tmpl, err := template.New("utiltemplate").
		Funcs(FuncMap()).
		Option("missingkey=error").
		Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
