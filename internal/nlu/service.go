package nlu

import (
	"time"
)

// Default stage thresholds.
const (
	DefaultParserFloor         = 0.5
	DefaultClassifierThreshold = 0.55
	DefaultServiceThreshold    = 0.5
	fallbackConfidence         = 0.4
)

// Service composes the NLU stages: deterministic parser, then statistical
// classifier, then fallback. The LLM router is the orchestrator's
// escalation, not an NLU stage. Service only recognizes; whether the
// resolved tool may run is the orchestrator's authorization step, so a
// disallowed tool still surfaces here and gets refused (and logged)
// there instead of silently degrading.
type Service struct {
	classifier          *Classifier
	intents             *IntentConfig
	parserFloor         float64
	classifierThreshold float64
	threshold           float64
	now                 func() time.Time
}

// NewService wires the stage composer. classifier may be nil when no
// artifact is configured.
func NewService(classifier *Classifier, intents *IntentConfig) *Service {
	return &Service{
		classifier:          classifier,
		intents:             intents,
		parserFloor:         DefaultParserFloor,
		classifierThreshold: DefaultClassifierThreshold,
		threshold:           DefaultServiceThreshold,
		now:                 time.Now,
	}
}

// WithThresholds overrides the stage thresholds (zero keeps the default).
func (s *Service) WithThresholds(parserFloor, classifierThreshold, serviceThreshold float64) *Service {
	if parserFloor > 0 {
		s.parserFloor = parserFloor
	}
	if classifierThreshold > 0 {
		s.classifierThreshold = classifierThreshold
	}
	if serviceThreshold > 0 {
		s.threshold = serviceThreshold
	}
	return s
}

// WithClock fixes the reference time (used by tests for date phrases).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Parse runs the stage machine for one message:
//  1. deterministic parser — accepted when confidence clears the parser
//     floor;
//  2. statistical classifier — accepted when confidence clears its
//     threshold and the intent maps to a known tool, with the payload
//     synthesized by the heuristic builder;
//  3. the fallback result.
func (s *Service) Parse(message string) Result {
	now := s.now()

	if res, ok := ParseCommand(message, now); ok {
		if res.Confidence >= s.parserFloor {
			return res
		}
	}

	if s.classifier != nil {
		if intent, conf, ok := s.classifier.Predict(message); ok && conf >= s.classifierThreshold {
			if tool, found := s.intents.ToolFor(intent); found {
				return Result{
					Intent:               intent,
					Tool:                 tool,
					Payload:              BuildPayloadFor(tool, message, now),
					Confidence:           conf,
					Source:               SourceClassifier,
					ClassifierIntent:     intent,
					ClassifierConfidence: conf,
				}
			}
		}
	}

	return Result{
		Intent:     FallbackIntent,
		Confidence: fallbackConfidence,
		Source:     SourceParser,
	}
}

// IsConfident reports whether the result clears the service threshold.
func (s *Service) IsConfident(res Result) bool {
	return res.Tool != "" && res.Confidence >= s.threshold
}

// BuildMetadata returns the invocation metadata logged with the turn.
func (s *Service) BuildMetadata(res Result) map[string]any {
	meta := map[string]any{"invocation_source": res.Source}
	if res.ClassifierIntent != "" {
		meta["classifier_intent"] = res.ClassifierIntent
		meta["classifier_confidence"] = res.ClassifierConfidence
	}
	return meta
}
