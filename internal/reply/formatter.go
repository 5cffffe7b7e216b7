// Package reply renders presence results as chat sentences.
package reply

import (
	"math/rand/v2"
)

// Chooser picks one template id out of ids, which is never empty.
type Chooser func(ids []string) string

// RandomChooser picks uniformly.
func RandomChooser(ids []string) string {
	return ids[rand.IntN(len(ids))] //nolint:gosec // phrasing choice, not security sensitive
}

// Fixed always picks id.
func Fixed(id string) Chooser {
	return func([]string) string { return id }
}

// Formatter renders replies with a template picked per call.
type Formatter struct {
	location  string
	templates map[string]TemplateFunc
	ids       []string
	choose    Chooser
}

// NewFormatter uses DefaultTemplates when templates is empty and
// RandomChooser when choose is nil.
func NewFormatter(location string, templates map[string]TemplateFunc, choose Chooser) *Formatter {
	if len(templates) == 0 {
		templates = DefaultTemplates()
	}

	if choose == nil {
		choose = RandomChooser
	}

	return &Formatter{
		location:  location,
		templates: templates,
		ids:       TemplateIDs(templates),
		choose:    choose,
	}
}

// Location is the place name used in replies.
func (f *Formatter) Location() string { return f.location }

// Format renders present user names and unknown MACs. Unknown template ids
// fall back to Classic.
func (f *Formatter) Format(present, unknown []string, listAll bool) string {
	s := Summary{Present: present, Unknown: unknown, ListAll: listAll, Location: f.location}

	tmpl, ok := f.templates[f.choose(f.ids)]
	if !ok {
		tmpl = Classic
	}

	return tmpl(s)
}
