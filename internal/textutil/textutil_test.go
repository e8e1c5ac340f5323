package textutil

import (
	"reflect"
	"testing"
	"time"
)

var monday = time.Date(2026, 6, 29, 10, 0, 0, 0, time.UTC) // a Monday

func TestParseDateRelative(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"remind me today", "2026-06-29"},
		{"do it tomorrow", "2026-06-30"},
		{"day after tomorrow please", "2026-07-01"},
		{"gør det i morgen", "2026-06-30"},
		{"gør det i overmorgen", "2026-07-01"},
		{"det skal ske i dag", "2026-06-29"},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in, monday)
		if !ok || got != c.want {
			t.Errorf("ParseDate(%q) = %q, %v; want %q", c.in, got, ok, c.want)
		}
	}
}

func TestParseDateWeekday(t *testing.T) {
	// Next Friday from a Monday.
	got, ok := ParseDate("meeting on friday", monday)
	if !ok || got != "2026-07-03" {
		t.Errorf("friday from monday = %q, %v; want 2026-07-03", got, ok)
	}
	// Same weekday names the following week, Danish.
	got, ok = ParseDate("møde på mandag", monday)
	if !ok || got != "2026-07-06" {
		t.Errorf("mandag from monday = %q, %v; want 2026-07-06", got, ok)
	}
}

func TestParseDateTextual(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"3rd of July 2026", "2026-07-03"},
		{"on the 12. oktober", "2026-10-12"},
		{"1 January 2027", "2027-01-01"},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in, monday)
		if !ok || got != c.want {
			t.Errorf("ParseDate(%q) = %q, %v; want %q", c.in, got, ok, c.want)
		}
	}
}

func TestParseDateNumeric(t *testing.T) {
	got, ok := ParseDate("deadline 1/7/2026", monday)
	if !ok || got != "2026-07-01" {
		t.Errorf("1/7/2026 = %q, %v; want 2026-07-01 (day-first)", got, ok)
	}
	got, ok = ParseDate("deadline 24.12.26", monday)
	if !ok || got != "2026-12-24" {
		t.Errorf("24.12.26 = %q, %v; want 2026-12-24", got, ok)
	}
	if _, ok := ParseDate("31/2/2026", monday); ok {
		t.Error("expected invalid calendar date to be rejected")
	}
}

func TestParseDateNone(t *testing.T) {
	if _, ok := ParseDate("buy milk", monday); ok {
		t.Error("expected no date in plain text")
	}
}

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		in   string
		want TimeRange
	}{
		{"from 15:00-16:30", TimeRange{15, 0, 16, 30}},
		{"at 18:00", TimeRange{18, 0, 19, 0}},
		{"kl. 9", TimeRange{9, 0, 10, 0}},
		{"in the afternoon", TimeRange{15, 0, 16, 0}},
		{"i aften", TimeRange{19, 0, 20, 0}},
	}
	for _, c := range cases {
		got, ok := ParseTimeRange(c.in)
		if !ok || got != c.want {
			t.Errorf("ParseTimeRange(%q) = %+v, %v; want %+v", c.in, got, ok, c.want)
		}
	}
	if _, ok := ParseTimeRange("no time here"); ok {
		t.Error("expected no time range")
	}
}

func TestClock(t *testing.T) {
	tr := TimeRange{StartHour: 9, StartMin: 5}
	if got := tr.Clock(); got != "09:05" {
		t.Errorf("Clock() = %q, want 09:05", got)
	}
}

func TestTokenizePreservesDanishLetters(t *testing.T) {
	got := Tokenize("Færdiggør opgaven på lørdag!")
	want := []string{"færdiggør", "opgaven", "på", "lørdag"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestKeywordsDropsStopwords(t *testing.T) {
	got := Keywords("how do I clean the oven")
	for _, kw := range got {
		if kw == "the" || kw == "do" || kw == "how" {
			t.Errorf("stopword %q survived: %v", kw, got)
		}
	}
	if len(got) == 0 {
		t.Fatal("expected content words to survive")
	}
}

func TestLooksDanish(t *testing.T) {
	if !LooksDanish("hvad er vejret i København") {
		t.Error("expected Danish detection for æøå text")
	}
	if !LooksDanish("tilføj en opgave") {
		t.Error("expected Danish detection for marker words")
	}
	if LooksDanish("add a todo called Buy milk") {
		t.Error("unexpected Danish detection for English text")
	}
}

func TestExtractQuoted(t *testing.T) {
	cases := []struct{ in, want string }{
		{`add todo "Buy milk" now`, "Buy milk"},
		{`add todo 'Buy milk'`, "Buy milk"},
		{"add todo “Buy milk”", "Buy milk"},
	}
	for _, c := range cases {
		got := ExtractQuoted(c.in)
		if len(got) != 1 || got[0] != c.want {
			t.Errorf("ExtractQuoted(%q) = %v; want [%q]", c.in, got, c.want)
		}
	}
}

func TestExtractTitle(t *testing.T) {
	title, ok := ExtractTitle(`a task called Clean the fridge, due friday`)
	if !ok || title != "Clean the fridge" {
		t.Errorf("ExtractTitle = %q, %v; want Clean the fridge", title, ok)
	}
}

func TestExtractCity(t *testing.T) {
	cases := []struct{ in, want string }{
		{"weather in Paris tomorrow at 18:00", "Paris"},
		{"what is the weather in New York", "New York"},
		{"vejret i København i eftermiddag", "København"},
	}
	for _, c := range cases {
		got, ok := ExtractCity(c.in)
		if !ok || got != c.want {
			t.Errorf("ExtractCity(%q) = %q, %v; want %q", c.in, got, ok, c.want)
		}
	}
	if got, ok := ExtractCity("weather in Mars"); ok {
		t.Errorf("expected planet to be blocked, got %q", got)
	}
}

func TestExtractNotes(t *testing.T) {
	notes := ExtractNotes(`add todo "Buy milk" notes "From the corner shop"`)
	if !reflect.DeepEqual(notes, []string{"From the corner shop"}) {
		t.Errorf("ExtractNotes = %v", notes)
	}
	notes = ExtractNotes(`add todo "x" notes ["a", "b"]`)
	if !reflect.DeepEqual(notes, []string{"a", "b"}) {
		t.Errorf("ExtractNotes array = %v", notes)
	}
}

func TestExtractLanguage(t *testing.T) {
	if got := ExtractLanguage("news in english please"); got != "en" {
		t.Errorf("expected en, got %q", got)
	}
	if got := ExtractLanguage("nyheder om vejret"); got != "da" {
		t.Errorf("expected da, got %q", got)
	}
}

func TestMatchCount(t *testing.T) {
	if got := MatchCount("Buy milk and bread", []string{"buy", "bread", "cheese"}); got != 2 {
		t.Errorf("MatchCount = %d, want 2", got)
	}
}
