package domain

import "strings"

// Artist is a tattoo artist on the studio roster.
type Artist struct {
	ID        string                 `yaml:"id"`
	Name      string                 `yaml:"name"`
	Aliases   []string               `yaml:"aliases"`
	Styles    []string               `yaml:"styles"`
	Resources map[ConsultMode]string `yaml:"resources"`
	Active    bool                   `yaml:"active"`
}

// ResourceFor returns the calendar resource for a consult mode.
func (a Artist) ResourceFor(mode ConsultMode) (string, bool) {
	id, ok := a.Resources[mode]
	return id, ok && strings.TrimSpace(id) != ""
}

// Names returns the lowercased name tokens a lead might use for this artist.
func (a Artist) Names() []string {
	names := make([]string, 0, len(a.Aliases)+2)
	if a.Name != "" {
		full := strings.ToLower(a.Name)
		names = append(names, full)
		if first := strings.Fields(full); len(first) > 1 {
			names = append(names, first[0])
		}
	}
	for _, alias := range a.Aliases {
		if alias = strings.ToLower(strings.TrimSpace(alias)); alias != "" {
			names = append(names, alias)
		}
	}
	return names
}

// DoesStyle reports whether the artist lists a style mentioned in text.
func (a Artist) DoesStyle(text string) bool {
	lower := strings.ToLower(text)
	for _, style := range a.Styles {
		if style = strings.ToLower(strings.TrimSpace(style)); style != "" && strings.Contains(lower, style) {
			return true
		}
	}
	return false
}

// Translator is an interpreter calendar resource.
type Translator struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	ResourceID string   `yaml:"resource"`
	Languages  []string `yaml:"languages"`
}

// Speaks reports whether the translator covers language; an empty language
// matches anyone.
func (t Translator) Speaks(language string) bool {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return true
	}
	for _, l := range t.Languages {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}
