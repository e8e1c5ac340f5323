// Package textutil holds the text primitives shared by the deterministic
// parser, the probe layer, and the stores: tokenization, keyword scoring,
// date/time phrase parsing (English and Danish), and entity extractors.
package textutil

import (
	"strings"
	"unicode"
)

// stopwords are dropped from token streams before keyword matching.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "and": true,
	"in": true, "on": true, "at": true, "for": true, "is": true, "it": true,
	"my": true, "me": true, "i": true, "do": true, "can": true, "you": true,
	"please": true, "what": true, "whats": true, "how": true,
	"en": true, "et": true, "og": true, "jeg": true, "du": true, "den": true,
	"det": true, "min": true, "mig": true, "kan": true, "hvad": true,
}

// Tokenize lowercases s and splits it into letter/digit runs. Danish
// letters (æ, ø, å) are preserved as word characters.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Keywords tokenizes s and drops stopwords and single-letter tokens.
func Keywords(s string) []string {
	var out []string
	for _, tok := range Tokenize(s) {
		if stopwords[tok] || len([]rune(tok)) < 2 {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// MatchCount returns how many of the given keywords occur in the token
// set of text. Matching is case-insensitive and whole-token.
func MatchCount(text string, keywords []string) int {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	n := 0
	for _, kw := range keywords {
		if set[strings.ToLower(kw)] {
			n++
		}
	}
	return n
}

// ContainsAny reports whether any of the words occurs as a token in text.
func ContainsAny(text string, words ...string) bool {
	return MatchCount(text, words) > 0
}

// danishMarkers are frequent Danish function words that rarely appear in
// English text. Together with the æ/ø/å check they drive LooksDanish.
var danishMarkers = map[string]bool{
	"og": true, "jeg": true, "ikke": true, "det": true, "der": true,
	"hvad": true, "hvordan": true, "hvornår": true, "nyheder": true,
	"vejret": true, "vejr": true, "dansk": true, "danske": true,
	"tilføj": true, "opret": true, "slet": true, "aftale": true,
	"kalender": true, "huskeliste": true, "køkken": true, "opskrift": true,
	"morgen": true, "aften": true, "eftermiddag": true, "datoen": true,
}

// LooksDanish reports whether s is likely Danish: it contains æ, ø or å,
// or at least one Danish marker word. This heuristic selects the news
// source and the response language.
func LooksDanish(s string) bool {
	if strings.ContainsAny(strings.ToLower(s), "æøå") {
		return true
	}
	for _, tok := range Tokenize(s) {
		if danishMarkers[tok] {
			return true
		}
	}
	return false
}
