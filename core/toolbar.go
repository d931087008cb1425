package core

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"pkt.systems/tabcast/schema"
)

// BindingName is the page-global function the rendering surface exposes for page messages.
const BindingName = "__tabcastIPC"

const (
	tabTitleMax   = 18
	tabTitleShort = 15
)

//go:embed assets/toolbar.js
var toolbarScript string

// InitScript returns the script installed into every document. It defines the toolbar
// injector, the keyboard shortcuts, and posts pageLoaded once evaluated.
func InitScript() string {
	return strings.ReplaceAll(toolbarScript, "__BINDING__", BindingName)
}

// TabsHTML renders the tab strip for a registry snapshot.
func TabsHTML(snapshot schema.RegistrySnapshot) string {
	var b strings.Builder
	for _, tab := range snapshot.Tabs {
		class := "tab"
		if tab.ID == snapshot.Active {
			class = "tab active"
		}
		fmt.Fprintf(&b, `<div class="%s" data-id="%d"><span class="tab-title">%s</span><span class="tab-close" data-id="%d">&times;</span></div>`,
			class, tab.ID, html.EscapeString(shortTitle(tab.Title)), tab.ID)
	}
	return b.String()
}

// ToolbarScript returns the script that (re)injects the toolbar for snapshot.
func ToolbarScript(snapshot schema.RegistrySnapshot) string {
	current := "about:blank"
	if active, ok := snapshot.ActiveTab(); ok {
		current = active.URL
	}
	return fmt.Sprintf("if (window.__injectToolbar) { window.__injectToolbar(%s, %s); }",
		jsString(TabsHTML(snapshot)), jsString(current))
}

func shortTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= tabTitleMax {
		return title
	}
	return string(runes[:tabTitleShort]) + "..."
}

func jsString(value string) string {
	data, err := json.Marshal(value)
	if err != nil {
		return `""`
	}
	return string(data)
}
