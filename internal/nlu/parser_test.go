package nlu

import (
	"reflect"
	"testing"
	"time"

	"github.com/mkrab/famulus/internal/tools"
)

// Fixed reference time: Monday 2026-06-29.
var testNow = time.Date(2026, 6, 29, 10, 0, 0, 0, time.UTC)

func TestParseTodoCreate(t *testing.T) {
	msg := `add todo "Buy milk" deadline 1/7/2026 notes "From the corner shop"`
	res, ok := ParseCommand(msg, testNow)
	if !ok {
		t.Fatalf("ParseCommand(%q) did not match", msg)
	}
	if res.Tool != tools.NameTodo {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameTodo)
	}
	if res.Source != SourceParser {
		t.Errorf("source = %q, want %q", res.Source, SourceParser)
	}
	if res.Confidence < 0.9 {
		t.Errorf("confidence = %v, want >= 0.9 for a titled create", res.Confidence)
	}
	want := tools.Payload{
		"action":   "create",
		"title":    "Buy milk",
		"deadline": "2026-07-01",
		"notes":    []string{"From the corner shop"},
	}
	if !reflect.DeepEqual(res.Payload, want) {
		t.Errorf("payload = %#v, want %#v", res.Payload, want)
	}
}

func TestParseTodoComplete(t *testing.T) {
	res, ok := ParseCommand("complete the task to Buy milk", testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameTodo {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameTodo)
	}
	if got := res.Payload["action"]; got != "update" {
		t.Errorf("action = %v, want update", got)
	}
	if got := res.Payload["status"]; got != "completed" {
		t.Errorf("status = %v, want completed", got)
	}
	if got := res.Payload["target_title"]; got != "Buy milk" {
		t.Errorf("target_title = %v, want Buy milk", got)
	}
}

func TestParseWeatherForecast(t *testing.T) {
	res, ok := ParseCommand("what is the weather in Paris tomorrow at 18:00?", testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameWeather {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameWeather)
	}
	p := res.Payload
	if p["action"] != "forecast" {
		t.Errorf("action = %v, want forecast", p["action"])
	}
	if p["city"] != "Paris" {
		t.Errorf("city = %v, want Paris", p["city"])
	}
	if p["date"] != "2026-06-30" {
		t.Errorf("date = %v, want 2026-06-30", p["date"])
	}
	if p["hour"] != 18 {
		t.Errorf("hour = %v, want 18", p["hour"])
	}
	if p["day_phrase"] != "tomorrow" {
		t.Errorf("day_phrase = %v, want tomorrow", p["day_phrase"])
	}
}

func TestParseWeatherWithoutDate(t *testing.T) {
	res, ok := ParseCommand("hvordan er vejret i København?", testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameWeather {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameWeather)
	}
	if res.Payload["action"] != "current" {
		t.Errorf("action = %v, want current", res.Payload["action"])
	}
	if res.Payload["city"] != "København" {
		t.Errorf("city = %v, want København", res.Payload["city"])
	}
}

func TestParseNewsTopic(t *testing.T) {
	res, ok := ParseCommand("any news about electric cars?", testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameNews {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameNews)
	}
	if res.Payload["topic"] != "electric cars" {
		t.Errorf("topic = %v, want electric cars", res.Payload["topic"])
	}
	if res.Payload["language"] != "en" {
		t.Errorf("language = %v, want en", res.Payload["language"])
	}
}

func TestParseCalendarCreate(t *testing.T) {
	res, ok := ParseCommand(`book a meeting "Standup" tomorrow 9:00-9:30`, testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameCalendar {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameCalendar)
	}
	p := res.Payload
	if p["action"] != "create" || p["title"] != "Standup" {
		t.Errorf("payload = %#v, want create of Standup", p)
	}
	if p["date"] != "2026-06-30" {
		t.Errorf("date = %v, want 2026-06-30", p["date"])
	}
	if p["start_time"] != "09:00" || p["end_time"] != "09:30" {
		t.Errorf("times = %v-%v, want 09:00-09:30", p["start_time"], p["end_time"])
	}
}

func TestParseNotesCreate(t *testing.T) {
	res, ok := ParseCommand(`add a guide section "FAQ" notes ["Q one", "Q two"]`, testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameNotes {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameNotes)
	}
	p := res.Payload
	if p["action"] != "create" || p["title"] != "FAQ" {
		t.Errorf("payload = %#v, want create of FAQ", p)
	}
	if p["content"] != "Q one\nQ two" {
		t.Errorf("content = %q, want %q", p["content"], "Q one\nQ two")
	}
}

func TestParseKitchenFind(t *testing.T) {
	res, ok := ParseCommand("any kitchen tips on descaling a kettle?", testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameKitchen {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameKitchen)
	}
	if res.Payload["action"] != "find" {
		t.Errorf("action = %v, want find", res.Payload["action"])
	}
	if kws, _ := res.Payload["keywords"].([]string); len(kws) == 0 {
		t.Errorf("keywords = %v, want a non-empty list", res.Payload["keywords"])
	}
}

// The first matching keyword gate wins; weather outranks todo.
func TestParseGateOrder(t *testing.T) {
	res, ok := ParseCommand("add a todo about the weather report", testNow)
	if !ok {
		t.Fatal("ParseCommand did not match")
	}
	if res.Tool != tools.NameWeather {
		t.Errorf("tool = %q, want %q (gate order)", res.Tool, tools.NameWeather)
	}
}

func TestParseNoGateMatch(t *testing.T) {
	if res, ok := ParseCommand("hello there", testNow); ok {
		t.Fatalf("ParseCommand matched unexpectedly: %#v", res)
	}
}

func TestBuildPayloadForUnknownTool(t *testing.T) {
	p := BuildPayloadFor("bogus", "whatever", testNow)
	if p["action"] != "list" {
		t.Errorf("action = %v, want list", p["action"])
	}
}
