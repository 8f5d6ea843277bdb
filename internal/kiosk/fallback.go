package kiosk

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"html/template"
)

//go:embed fallback.html
var fallbackHTML string

//go:embed injected.css
var InjectedCSS string

var fallbackTemplate = template.Must(template.New("fallback").Parse(fallbackHTML))

// FallbackData fills the offline page
type FallbackData struct {
	AppName     string
	AccentColor string
}

// FallbackURL renders the offline page as a data: URL so it loads with no
// network or disk access
func FallbackURL(data FallbackData) (string, error) {
	if data.AccentColor == "" {
		data.AccentColor = "#000000"
	}
	var buf bytes.Buffer
	if err := fallbackTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
