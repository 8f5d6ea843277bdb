package browser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// shortcutBinding is the page-side function that reports accelerators
const shortcutBinding = "__bigscreenShortcut"

// shortcutScript listens for the given accelerators in every document and
// forwards matches through shortcutBinding. Only CommandOrControl+<key>
// accelerators are understood.
func shortcutScript(accelerators []string) string {
	list, _ := json.Marshal(accelerators)
	return fmt.Sprintf(`(() => {
  const accelerators = %s;
  const mac = navigator.platform.toUpperCase().indexOf('MAC') >= 0;
  window.addEventListener('keydown', (e) => {
    const mod = mac ? e.metaKey : e.ctrlKey;
    if (!mod || e.altKey || e.shiftKey || e.key.length !== 1) return;
    const acc = 'CommandOrControl+' + e.key.toUpperCase();
    if (accelerators.indexOf(acc) < 0) return;
    e.preventDefault();
    e.stopPropagation();
    if (typeof window.%s === 'function') window.%s(acc);
  }, true);
})();`, list, shortcutBinding, shortcutBinding)
}

// insertCSSExpression appends css to the current document as a style element
func insertCSSExpression(css string) string {
	quoted, _ := json.Marshal(css)
	return fmt.Sprintf(`(() => {
  const style = document.createElement('style');
  style.setAttribute('data-bigscreen', '');
  style.textContent = %s;
  (document.head || document.documentElement).appendChild(style);
})();`, quoted)
}

// rgba is a DevTools DOM.RGBA
type rgba struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// parseHexColor reads #rrggbb, defaulting to opaque black
func parseHexColor(s string) rgba {
	black := rgba{A: 1}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return black
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return black
	}
	return rgba{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff), A: 1}
}

// consoleText joins console call arguments the way the page would print them
func consoleText(args []remoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		switch {
		case len(a.Value) > 0:
			var str string
			if err := json.Unmarshal(a.Value, &str); err == nil {
				parts = append(parts, str)
			} else {
				parts = append(parts, string(a.Value))
			}
		case a.Description != "":
			parts = append(parts, a.Description)
		default:
			parts = append(parts, a.Type)
		}
	}
	return strings.Join(parts, " ")
}

// remoteObject is the subset of Runtime.RemoteObject used for console text
type remoteObject struct {
	Type        string          `json:"type"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
}
