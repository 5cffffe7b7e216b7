package reply

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	ClassicTemplate   = "classic"
	HeadcountTemplate = "headcount"
)

// Summary is everything a template may render.
type Summary struct {
	Present  []string
	Unknown  []string
	ListAll  bool
	Location string
}

// TemplateFunc renders a Summary. It must be pure.
type TemplateFunc func(Summary) string

// DefaultTemplates returns a fresh table of the built-in phrasings.
func DefaultTemplates() map[string]TemplateFunc {
	return map[string]TemplateFunc{
		ClassicTemplate:   Classic,
		HeadcountTemplate: Headcount,
	}
}

// TemplateIDs lists the ids of templates in a stable order.
func TemplateIDs(templates map[string]TemplateFunc) []string {
	return slices.Sorted(maps.Keys(templates))
}

// Classic renders "Sean and Jo are at ozone, along with 1 unknown device."
func Classic(s Summary) string {
	base := "Nobody is at " + s.Location
	if len(s.Present) > 0 {
		base = fmt.Sprintf("%s %s at %s", JoinList(s.Present), IsAre(len(s.Present)), s.Location)
	}

	return base + unknownClause(s)
}

// Headcount renders "2 people are at ozone: Sean and Jo."
func Headcount(s Summary) string {
	n := len(s.Present)

	base := "Nobody is at " + s.Location
	if n > 0 {
		noun := "people"
		if n == 1 {
			noun = "person"
		}

		base = fmt.Sprintf("%s %s %s at %s: %s", FormatCount(n), noun, IsAre(n), s.Location, JoinList(s.Present))
	}

	return base + unknownClause(s)
}

func unknownClause(s Summary) string {
	n := len(s.Unknown)

	switch {
	case n == 0:
		return "."
	case s.ListAll && len(s.Present) > 0:
		return fmt.Sprintf(", along with the following unknown device%s: %s.", Plural(n), macList(s.Unknown))
	case s.ListAll:
		return fmt.Sprintf(". But there %s the following unknown device%s: %s.", IsAre(n), Plural(n), macList(s.Unknown))
	case len(s.Present) > 0:
		return fmt.Sprintf(", along with %s unknown device%s.", FormatCount(n), Plural(n))
	default:
		return fmt.Sprintf(". But there %s %s unknown device%s...", IsAre(n), FormatCount(n), Plural(n))
	}
}

// macList is a plain comma list; the Oxford "and" is kept for names.
func macList(macs []string) string {
	return strings.Join(macs, ", ")
}
