package common

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize upper-cases the first letter of every word and lower-cases the
// rest, e.g. "broken clouds" -> "Broken Clouds".
func Capitalize(s string) string {
	return cases.Title(language.Und).String(s)
}
