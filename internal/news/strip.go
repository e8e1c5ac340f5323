package news

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML flattens an HTML fragment to its visible text. Google News
// titles and descriptions embed anchor tags and entities; the tokenizer
// handles both.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}

	var b strings.Builder
	tz := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tz.Text())
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
