package nlu

import (
	"testing"
	"time"

	"github.com/mkrab/famulus/internal/tools"
)

func fixedClock() time.Time { return testNow }

func TestServiceParserStage(t *testing.T) {
	svc := NewService(nil, testIntents(t)).WithClock(fixedClock)

	res := svc.Parse(`add todo "Buy milk" deadline 1/7/2026`)
	if res.Source != SourceParser {
		t.Fatalf("source = %q, want %q", res.Source, SourceParser)
	}
	if res.Tool != tools.NameTodo {
		t.Errorf("tool = %q, want %q", res.Tool, tools.NameTodo)
	}
	if !svc.IsConfident(res) {
		t.Errorf("IsConfident = false for confidence %v", res.Confidence)
	}
}

func TestServiceResolvesWithoutAuthorizing(t *testing.T) {
	// Authorization belongs to the caller: a recognized tool is returned
	// even when a policy would refuse it, so the refusal gets recorded
	// downstream instead of degrading to the fallback intent.
	svc := NewService(nil, testIntents(t)).WithClock(fixedClock)

	res := svc.Parse(`add todo "Buy milk"`)
	if res.Tool != tools.NameTodo {
		t.Fatalf("tool = %q, want %q", res.Tool, tools.NameTodo)
	}
	if !svc.IsConfident(res) {
		t.Errorf("IsConfident = false for confidence %v", res.Confidence)
	}
}

func TestServiceClassifierStage(t *testing.T) {
	cfg := testIntents(t)
	cls := NewClassifier(writeArtifact(t, binaryArtifact()), cfg)
	svc := NewService(cls, cfg).WithClock(fixedClock)

	// No keyword gate matches, so resolution falls to the classifier.
	res := svc.Parse("remember the milk")
	if res.Source != SourceClassifier {
		t.Fatalf("source = %q, want %q", res.Source, SourceClassifier)
	}
	if res.Tool != tools.NameTodo {
		t.Errorf("tool = %q, want %q", res.Tool, tools.NameTodo)
	}
	if res.ClassifierIntent != "todo_manage" {
		t.Errorf("classifier intent = %q, want todo_manage", res.ClassifierIntent)
	}
	if res.Payload["action"] != "create" {
		t.Errorf("payload action = %v, want create (heuristic builder)", res.Payload["action"])
	}
}

func TestServiceClassifierBelowThreshold(t *testing.T) {
	cfg := testIntents(t)
	cls := NewClassifier(writeArtifact(t, binaryArtifact()), cfg)
	svc := NewService(cls, cfg).
		WithClock(fixedClock).
		WithThresholds(0, 0.99, 0)

	if res := svc.Parse("remember the milk"); res.Intent != FallbackIntent {
		t.Errorf("intent = %q, want %q below the classifier threshold", res.Intent, FallbackIntent)
	}
}

func TestServiceFallback(t *testing.T) {
	svc := NewService(nil, testIntents(t)).WithClock(fixedClock)

	res := svc.Parse("zzz qqq")
	if res.Intent != FallbackIntent {
		t.Fatalf("intent = %q, want %q", res.Intent, FallbackIntent)
	}
	if res.Confidence >= DefaultServiceThreshold {
		t.Errorf("fallback confidence %v clears the service threshold", res.Confidence)
	}
}

func TestBuildMetadata(t *testing.T) {
	svc := NewService(nil, testIntents(t))

	meta := svc.BuildMetadata(Result{Source: SourceParser})
	if meta["invocation_source"] != SourceParser {
		t.Errorf("invocation_source = %v, want %q", meta["invocation_source"], SourceParser)
	}
	if _, present := meta["classifier_intent"]; present {
		t.Error("classifier_intent present on a parser result")
	}

	meta = svc.BuildMetadata(Result{
		Source:               SourceClassifier,
		ClassifierIntent:     "todo_manage",
		ClassifierConfidence: 0.7,
	})
	if meta["classifier_intent"] != "todo_manage" {
		t.Errorf("classifier_intent = %v, want todo_manage", meta["classifier_intent"])
	}
	if meta["classifier_confidence"] != 0.7 {
		t.Errorf("classifier_confidence = %v, want 0.7", meta["classifier_confidence"])
	}
}
