// Package i18n holds the Indonesian and English user-facing texts.
package i18n

import (
	"fmt"
	"strings"
)

const (
	Indonesian = "id"
	English    = "en"

	DefaultLanguage = Indonesian
)

type Args map[string]any

// Normalize maps anything unsupported to the default language.
func Normalize(lang string) string {
	if lang == English {
		return English
	}
	return Indonesian
}

// T returns the text for key in lang, substituting {name} placeholders from args.
// Unknown keys are returned as-is.
func T(lang, key string, args ...Args) string {
	entry, ok := catalog[key]
	if !ok {
		return key
	}
	text, ok := entry[Normalize(lang)]
	if !ok {
		text = entry[DefaultLanguage]
	}
	if len(args) == 0 {
		return text
	}

	var pairs []string
	for _, a := range args {
		for name, value := range a {
			pairs = append(pairs, "{"+name+"}", fmt.Sprint(value))
		}
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func YesNo(lang string, v bool) string {
	if v {
		return T(lang, "yes")
	}
	return T(lang, "no")
}
