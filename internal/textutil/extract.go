package textutil

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	quotedRe      = regexp.MustCompile(`"([^"]+)"|'([^']+)'|“([^”]+)”`)
	calledRe      = regexp.MustCompile(`(?i)\b(?:called|named|titled|kaldet|ved navn)\s+([^,.!?\n]+)`)
	notesClauseRe = regexp.MustCompile(`(?i)\bnotes?\s+"([^"]+)"`)
	notesArrayRe  = regexp.MustCompile(`(?i)\bnotes?\s+(\[[^\]]*\])`)
	cityRe        = regexp.MustCompile(`\b(?:in|for|på|til|i|In|For|På|Til|I)\s+([A-ZÆØÅ][a-zA-Zæøå]*(?:[ -][A-ZÆØÅ][a-zA-Zæøå]*)*)`)
)

// ExtractQuoted returns all quoted phrases in s, in order.
func ExtractQuoted(s string) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if g != "" {
				out = append(out, g)
			}
		}
	}
	return out
}

// ExtractTitle finds the most likely title in s: the first quoted phrase,
// else a "called/named/titled X" clause trimmed at the next punctuation.
func ExtractTitle(s string) (string, bool) {
	if q := ExtractQuoted(s); len(q) > 0 {
		return strings.TrimSpace(q[0]), true
	}
	if m := calledRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// ExtractNotes collects note strings from a `notes "..."` clause or an
// inline JSON array (`notes ["a", "b"]`).
func ExtractNotes(s string) []string {
	if m := notesArrayRe.FindStringSubmatch(s); m != nil {
		var arr []string
		if err := json.Unmarshal([]byte(m[1]), &arr); err == nil {
			return arr
		}
	}
	if m := notesClauseRe.FindStringSubmatch(s); m != nil {
		return []string{m[1]}
	}
	return nil
}

// cityStopwords are words that follow a location preposition without being
// a city. The list mixes English and Danish on purpose: the same parser
// handles both languages.
var cityStopwords = map[string]bool{
	"weather": true, "forecast": true, "temperature": true, "rain": true,
	"today": true, "tomorrow": true, "tonight": true, "morning": true,
	"afternoon": true, "evening": true, "the": true, "my": true,
	"vejret": true, "vejr": true, "regn": true, "dag": true, "morgen": true,
	"aften": true, "eftermiddag": true, "formiddag": true, "overmorgen": true,
	"på": true, "til": true, "den": true, "det": true,
}

// planets guard against "weather on Mars" style jokes routing to the
// geocoder.
var planets = map[string]bool{
	"mercury": true, "venus": true, "mars": true, "jupiter": true,
	"saturn": true, "uranus": true, "neptune": true, "pluto": true,
	"merkur": true, "neptun": true,
}

// ExtractCity finds a capitalized place name after one of the location
// prepositions (in/for/på/til/i), filtering stop-words and planet names.
func ExtractCity(s string) (string, bool) {
	for _, m := range cityRe.FindAllStringSubmatch(s, -1) {
		candidate := strings.TrimSpace(m[1])
		first := strings.ToLower(strings.Fields(candidate)[0])
		if cityStopwords[first] || planets[first] {
			continue
		}
		// Trim trailing stop-words picked up by the capitalized run.
		words := strings.Fields(candidate)
		for len(words) > 0 && cityStopwords[strings.ToLower(words[len(words)-1])] {
			words = words[:len(words)-1]
		}
		if len(words) == 0 {
			continue
		}
		return strings.Join(words, " "), true
	}
	return "", false
}

// ExtractLanguage returns a two-letter language hint: an explicit
// "english"/"engelsk" request forces "en", otherwise Danish-looking text
// yields "da" and everything else "en".
func ExtractLanguage(s string) string {
	if ContainsAny(s, "english", "engelsk") {
		return "en"
	}
	if LooksDanish(s) {
		return "da"
	}
	return "en"
}

// ExtractTags collects comma-separated values after "tags" or "keywords".
var tagsRe = regexp.MustCompile(`(?i)\b(?:tags?|keywords?|nøgleord)[:\s]+([^.!?\n]+)`)

func ExtractTags(s string) []string {
	m := tagsRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(strings.Trim(part, `"'`))
		if part != "" && !strings.Contains(part, " ") {
			out = append(out, strings.ToLower(part))
		} else if part != "" {
			// Multi-word trailing clause ends the tag list.
			first := strings.Fields(part)[0]
			out = append(out, strings.ToLower(first))
			break
		}
	}
	return out
}
