package services

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// launchAgent is a per-user launchd job description
type launchAgent struct {
	Label     string
	Args      []string
	RunAtLoad bool
	KeepAlive bool
}

var launchAgentTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Args}}
		<string>{{xml .}}</string>
{{- end}}
	</array>
{{- if .RunAtLoad}}
	<key>RunAtLoad</key>
	<true/>
{{- end}}
{{- if .KeepAlive}}
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
	</dict>
{{- end}}
</dict>
</plist>
`))

// desktopEntry is an XDG autostart entry
type desktopEntry struct {
	Name string
	Exec string
}

var desktopEntryTemplate = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Version=1.0
Name={{.Name}}
Comment={{.Name}} startup script
Exec={{.Exec}}
StartupNotify=false
Terminal=false
X-GNOME-Autostart-enabled=true
`))

func xmlEscape(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// desktopExec quotes an executable path for an Exec= line
func desktopExec(path string) string {
	if !strings.ContainsAny(path, " \t\"'\\$`") {
		return path
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(path) + `"`
}

// writeTemplate renders tmpl into path, creating the parent directory
func writeTemplate(path string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// removeIfExists deletes path; a missing file is not an error
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
