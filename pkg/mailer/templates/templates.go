// Package templates holds the transactional email bodies. Each email is a
// triple of files: <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		if reflect.ValueOf(value).IsZero() {
			return fallback
		}
		return value
	}
}

func funcs() map[string]any {
	return map[string]any{
		"year":    func() int { return time.Now().UTC().Year() },
		"default": defaultFn,
	}
}

var (
	parseOnce sync.Once
	textSet   *texttpl.Template
	htmlSet   *htmpl.Template
	parseErr  error
)

func load() error {
	parseOnce.Do(func() {
		textSet, parseErr = texttpl.New("").Funcs(funcs()).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl")
		if parseErr != nil {
			return
		}
		htmlSet, parseErr = htmpl.New("").Funcs(funcs()).ParseFS(FS, "*.html.tmpl")
	})
	return parseErr
}

func exec(name string, run func(buf *bytes.Buffer) error) (string, error) {
	var buf bytes.Buffer
	if err := run(&buf); err != nil {
		return "", fmt.Errorf("render %q: %w", name, err)
	}
	return buf.String(), nil
}

// Render executes the three templates of name. The subject is trimmed.
func Render(name string, data any) (subject, text, html string, err error) {
	if err := load(); err != nil {
		return "", "", "", fmt.Errorf("parse templates: %w", err)
	}
	if textSet.Lookup(name+".subject.tmpl") == nil {
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}

	subject, err = exec(name+".subject.tmpl", func(b *bytes.Buffer) error {
		return textSet.ExecuteTemplate(b, name+".subject.tmpl", data)
	})
	if err != nil {
		return "", "", "", err
	}
	text, err = exec(name+".text.tmpl", func(b *bytes.Buffer) error {
		return textSet.ExecuteTemplate(b, name+".text.tmpl", data)
	})
	if err != nil {
		return "", "", "", err
	}
	html, err = exec(name+".html.tmpl", func(b *bytes.Buffer) error {
		return htmlSet.ExecuteTemplate(b, name+".html.tmpl", data)
	})
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
