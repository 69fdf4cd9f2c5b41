// Package extension defines the global catalog of toggleable wiki extensions.
package extension

import "sort"

// Entry describes one extension the farm can toggle per wiki. VarKey is the
// settings-overlay key that carries the toggle; Requires and Conflicts are
// checked against the wiki's currently enabled set before enabling.
type Entry struct {
	Name      string   `json:"name"`
	LinkPage  string   `json:"link_page,omitempty"`
	VarKey    string   `json:"var"`
	Requires  []string `json:"requires,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
	Section   string   `json:"section"`
}

// Catalog is the keyed set of available extensions.
type Catalog map[string]Entry

// Lookup returns the entry for name, if present.
func (c Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c[name]
	return e, ok
}

// Names returns all extension names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BySection groups entries under their UI section tag.
func (c Catalog) BySection() map[string][]Entry {
	sections := make(map[string][]Entry)
	for _, e := range c {
		sections[e.Section] = append(sections[e.Section], e)
	}
	return sections
}

// DefaultCatalog returns the built-in extension catalog.
func DefaultCatalog() Catalog {
	entries := []Entry{
		{Name: "Cite", LinkPage: "https://www.mediawiki.org/wiki/Extension:Cite", VarKey: "wmgUseCite", Section: "parserhooks"},
		{Name: "CodeEditor", LinkPage: "https://www.mediawiki.org/wiki/Extension:CodeEditor", VarKey: "wmgUseCodeEditor", Section: "editor"},
		{Name: "Gadgets", LinkPage: "https://www.mediawiki.org/wiki/Extension:Gadgets", VarKey: "wmgUseGadgets", Section: "other"},
		{Name: "ImageMap", LinkPage: "https://www.mediawiki.org/wiki/Extension:ImageMap", VarKey: "wmgUseImageMap", Section: "media"},
		{Name: "InputBox", LinkPage: "https://www.mediawiki.org/wiki/Extension:InputBox", VarKey: "wmgUseInputBox", Section: "parserhooks"},
		{Name: "ParserFunctions", LinkPage: "https://www.mediawiki.org/wiki/Extension:ParserFunctions", VarKey: "wmgUseParserFunctions", Section: "parserhooks"},
		{Name: "Scribunto", LinkPage: "https://www.mediawiki.org/wiki/Extension:Scribunto", VarKey: "wmgUseScribunto", Section: "parserhooks"},
		{Name: "TemplateData", LinkPage: "https://www.mediawiki.org/wiki/Extension:TemplateData", VarKey: "wmgUseTemplateData", Section: "parserhooks"},
		{Name: "VisualEditor", LinkPage: "https://www.mediawiki.org/wiki/Extension:VisualEditor", VarKey: "wmgUseVisualEditor", Section: "editor"},
		{Name: "WikiEditor", LinkPage: "https://www.mediawiki.org/wiki/Extension:WikiEditor", VarKey: "wmgUseWikiEditor", Section: "editor"},
	}

	catalog := make(Catalog, len(entries))
	for _, e := range entries {
		catalog[e.Name] = e
	}
	return catalog
}

// DefaultEnabled lists the extensions switched on for newly created wikis.
func DefaultEnabled() []string {
	return []string{"Cite", "ParserFunctions", "WikiEditor"}
}
