package http

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English, // fallback
	language.German,
	language.French,
	language.Spanish,
	language.Italian,
	language.Portuguese,
	language.Dutch,
})

// printerFor picks a number printer from the request's Accept-Language.
func printerFor(r *http.Request) *message.Printer {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag, _, _ := localeMatcher.Match(tags...)
	return message.NewPrinter(tag)
}

// formatProbability renders p with two decimals in the printer's locale.
func formatProbability(p *message.Printer, v float64) string {
	return p.Sprintf("%.2f", v)
}
