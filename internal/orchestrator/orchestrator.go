// Package orchestrator composes the turn pipeline: decide (NLU, then
// router), authorize (policy), execute (registry), log (learning), and
// summarize. All work for one message happens sequentially in one call.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mkrab/famulus/internal/learning"
	"github.com/mkrab/famulus/internal/nlu"
	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/probe"
	"github.com/mkrab/famulus/internal/router"
	"github.com/mkrab/famulus/internal/tools"
)

// Resolution statuses recorded on a turn.
const (
	ResolutionToolParser      = "tool:parser"
	ResolutionToolClassifier  = "tool:classifier"
	ResolutionToolLLM         = "tool:llm"
	ResolutionFallback        = "fallback"
	ResolutionPolicyViolation = "policy_violation"
	ResolutionToolError       = "tool_error"
)

// Review reasons, in stamping priority.
const (
	ReasonPolicyViolation = "policy_violation"
	ReasonToolError       = "tool_error"
	ReasonFallback        = "fallback"
	ReasonLowConfidence   = "low_confidence"
)

// Turn is the transient record of one message: created on entry,
// serialized into the logs, then discarded.
type Turn struct {
	TurnID            string
	UserText          string
	Intent            string
	Confidence        float64
	InvocationSource  string
	ToolName          string
	ToolPayload       tools.Payload
	ToolResult        tools.Result
	ToolSuccess       bool
	ResolutionStatus  string
	ResponseText      string
	LatencyMS         int64
	FallbackTriggered bool
	ReviewReason      string
	PolicyVersion     string
	Extras            map[string]any
	Metadata          map[string]any
}

// Response is what a caller gets back for one message.
type Response struct {
	Text string
	Turn Turn
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	nlu       *nlu.Service
	router    *router.Router
	registry  *tools.Registry
	policy    *policy.Policy
	logger    *learning.Logger
	prober    *probe.Prober
	threshold float64
	now       func() time.Time
}

// New builds an orchestrator. prober may be nil to disable probing.
func New(svc *nlu.Service, rt *router.Router, reg *tools.Registry, pol *policy.Policy, lg *learning.Logger, pr *probe.Prober) *Orchestrator {
	return &Orchestrator{
		nlu:       svc,
		router:    rt,
		registry:  reg,
		policy:    pol,
		logger:    lg,
		prober:    pr,
		threshold: nlu.DefaultServiceThreshold,
		now:       time.Now,
	}
}

// WithClock fixes the clock (tests).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// HandleMessage runs one full turn: exactly one turn-log record is
// emitted, plus a review record when the turn qualifies.
func (o *Orchestrator) HandleMessage(ctx context.Context, message string) Response {
	start := o.now()
	turn := Turn{
		TurnID:        ulid.Make().String(),
		UserText:      message,
		PolicyVersion: o.policy.Version(),
		Extras:        map[string]any{},
	}

	res := o.nlu.Parse(message)
	turn.Intent = res.Intent
	turn.Confidence = res.Confidence
	turn.InvocationSource = res.Source
	turn.Metadata = o.nlu.BuildMetadata(res)

	if o.nlu.IsConfident(res) && res.Tool != "" {
		o.executeTool(ctx, &turn, res.Tool, res.Payload, sourceResolution(res.Source))
	} else {
		o.escalate(ctx, &turn, message)
	}

	turn.LatencyMS = o.now().Sub(start).Milliseconds()
	o.log(turn, res.Payload)

	return Response{Text: turn.ResponseText, Turn: turn}
}

// sourceResolution maps an invocation source to its success resolution.
func sourceResolution(source string) string {
	switch source {
	case nlu.SourceClassifier:
		return ResolutionToolClassifier
	case nlu.SourceLLM:
		return ResolutionToolLLM
	default:
		return ResolutionToolParser
	}
}

// escalate handles the non-confident path: ask the router for a tool,
// degrade to router text, and finally to the general answer.
func (o *Orchestrator) escalate(ctx context.Context, turn *Turn, message string) {
	dec := o.router.Route(ctx, message)
	switch dec.Type {
	case router.DecisionTool:
		if o.policy.IsToolAllowed(dec.Name) {
			turn.InvocationSource = nlu.SourceLLM
			turn.Metadata["invocation_source"] = nlu.SourceLLM
			payload := tools.Payload(dec.Payload)
			if payload == nil {
				payload = tools.Payload{}
			}
			o.executeTool(ctx, turn, dec.Name, payload, ResolutionToolLLM)
			return
		}
		o.policyViolation(turn, dec.Name)
		return

	case router.DecisionText:
		turn.ResponseText = dec.Content
		turn.FallbackTriggered = true
		turn.ResolutionStatus = ResolutionFallback
		return

	default:
		// The routing prompt said none; ask once more for a bare tool
		// name before settling for a general answer.
		if name, ok := o.router.SuggestTool(ctx, message); ok {
			turn.InvocationSource = nlu.SourceLLM
			turn.Metadata["invocation_source"] = nlu.SourceLLM
			o.executeTool(ctx, turn, name, nlu.BuildPayloadFor(name, message, o.now()), ResolutionToolLLM)
			return
		}
		turn.ResponseText = o.router.GeneralAnswer(ctx, message)
		turn.FallbackTriggered = true
		turn.ResolutionStatus = ResolutionFallback
	}
}

// executeTool authorizes, optionally probes, runs the tool and formats
// the response.
func (o *Orchestrator) executeTool(ctx context.Context, turn *Turn, toolName string, payload tools.Payload, resolution string) {
	if err := o.policy.EnsureToolAllowed(toolName); err != nil {
		o.policyViolation(turn, toolName)
		return
	}

	// A create without a title, or an LLM-routed call, gets a read-only
	// probe first: an existing match means the user more likely wants to
	// look something up than to mutate blindly.
	if o.prober != nil && needsProbe(payload, resolution) {
		if dec, ok := o.prober.Probe(toolName, turn.UserText, payload); ok {
			switch dec.Action {
			case probe.DecideFind:
				payload = tools.Payload{"action": "find", "keywords": probeTerms(turn.UserText, payload)}
				turn.Extras["probe"] = map[string]any{"decision": dec.Action, "matches": dec.Matches}
			case probe.DecideList:
				payload = tools.Payload{"action": "list"}
				turn.Extras["probe"] = map[string]any{"decision": dec.Action}
			case probe.DecideAnswer:
				turn.ResponseText = o.router.GeneralAnswer(ctx, turn.UserText)
				turn.FallbackTriggered = true
				turn.ResolutionStatus = ResolutionFallback
				turn.Extras["probe"] = map[string]any{"decision": dec.Action}
				return
			}
		}
	}

	turn.ToolName = toolName
	turn.ToolPayload = payload

	result, err := o.registry.Run(ctx, toolName, payload, false)
	if err != nil {
		turn.ResolutionStatus = ResolutionToolError
		turn.ReviewReason = ReasonToolError
		turn.ResponseText = "Something went wrong running that tool."
		turn.Extras["tool_dispatch_error"] = err.Error()
		return
	}

	turn.ToolResult = result
	turn.ResponseText = tools.FormatResult(result)
	if result.IsError() {
		turn.ToolSuccess = false
		turn.ResolutionStatus = ResolutionToolError
		turn.ReviewReason = ReasonToolError
		return
	}
	turn.ToolSuccess = true
	turn.ResolutionStatus = resolution
}

// needsProbe limits probing to vague creates and LLM-routed calls.
func needsProbe(payload tools.Payload, resolution string) bool {
	action, _ := payload["action"].(string)
	if resolution == ResolutionToolLLM {
		return action == "create" || action == "find"
	}
	if action != "create" {
		return false
	}
	title, _ := payload["title"].(string)
	return strings.TrimSpace(title) == ""
}

func probeTerms(message string, payload tools.Payload) []string {
	if kws, ok := payload["keywords"].([]string); ok && len(kws) > 0 {
		return kws
	}
	return strings.Fields(strings.ToLower(message))
}

func (o *Orchestrator) policyViolation(turn *Turn, toolName string) {
	turn.ToolName = toolName
	turn.ResolutionStatus = ResolutionPolicyViolation
	turn.ReviewReason = ReasonPolicyViolation
	turn.Extras["policy_violation"] = map[string]any{
		"tool":           toolName,
		"policy_version": o.policy.Version(),
		"allowed_tools":  o.policy.AllowedTools(),
	}
	turn.ResponseText = fmt.Sprintf("I am not allowed to use the %s tool under the current policy (%s).", toolName, o.policy.Version())
}

// log emits the turn record and, when the review conditions hold, the
// review record. Logger failures are observed, never propagated: the
// user still gets the response.
func (o *Orchestrator) log(turn Turn, parserPayload tools.Payload) {
	turnRec := learning.TurnRecord{
		TurnID:            turn.TurnID,
		Timestamp:         o.now().UTC().Format(time.RFC3339),
		UserText:          turn.UserText,
		Intent:            turn.Intent,
		Confidence:        turn.Confidence,
		InvocationSource:  turn.InvocationSource,
		ToolName:          turn.ToolName,
		ToolPayload:       turn.ToolPayload,
		ToolResult:        genericMap(turn.ToolResult),
		ToolSuccess:       turn.ToolSuccess,
		ResolutionStatus:  turn.ResolutionStatus,
		ResponseText:      turn.ResponseText,
		LatencyMS:         turn.LatencyMS,
		FallbackTriggered: turn.FallbackTriggered,
		ReviewReason:      reviewReason(turn, o.threshold),
		PolicyVersion:     turn.PolicyVersion,
		Extras:            turn.Extras,
		Metadata:          turn.Metadata,
	}
	if err := o.logger.LogTurn(turnRec); err != nil {
		slog.Warn("turn log write failed", "turn_id", turn.TurnID, "error", err)
	}

	reason := reviewReason(turn, o.threshold)
	if reason == "" {
		return
	}
	reviewRec := learning.ReviewRecord{
		PromptID:      turn.TurnID,
		Timestamp:     o.now().UTC().Format(time.RFC3339),
		UserText:      turn.UserText,
		Intent:        turn.Intent,
		Confidence:    turn.Confidence,
		Reason:        reason,
		ToolName:      turn.ToolName,
		ParserPayload: parserPayload,
		PolicyVersion: turn.PolicyVersion,
		Extras:        turn.Extras,
		Metadata:      turn.Metadata,
	}
	if err := o.logger.LogReview(reviewRec); err != nil {
		slog.Warn("review log write failed", "turn_id", turn.TurnID, "error", err)
	}
}

// reviewReason decides whether the turn enters the review queue and why:
// policy violations first, then tool errors, then fallbacks, then low
// confidence.
func reviewReason(turn Turn, threshold float64) string {
	switch {
	case turn.ResolutionStatus == ResolutionPolicyViolation:
		return ReasonPolicyViolation
	case turn.ResolutionStatus == ResolutionToolError:
		return ReasonToolError
	case turn.FallbackTriggered || turn.ResolutionStatus == ResolutionFallback:
		return ReasonFallback
	case turn.Confidence < threshold:
		return ReasonLowConfidence
	default:
		return ""
	}
}

func genericMap(r tools.Result) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any(r)
}

// RunTool is the admin bypass used to preview or apply a reviewer
// correction. It still goes through policy and produces a turn record.
func (o *Orchestrator) RunTool(ctx context.Context, toolName string, payload tools.Payload, dryRun bool) (tools.Result, error) {
	start := o.now()
	turn := Turn{
		TurnID:           ulid.Make().String(),
		UserText:         "",
		Intent:           toolName,
		InvocationSource: nlu.SourceFallback,
		PolicyVersion:    o.policy.Version(),
		Extras:           map[string]any{"admin_bypass": true, "dry_run": dryRun},
		Metadata:         map[string]any{"invocation_source": "admin"},
	}

	if err := o.policy.EnsureToolAllowed(toolName); err != nil {
		o.policyViolation(&turn, toolName)
		turn.LatencyMS = o.now().Sub(start).Milliseconds()
		o.log(turn, payload)
		return nil, err
	}

	turn.ToolName = toolName
	turn.ToolPayload = payload
	result, err := o.registry.Run(ctx, toolName, payload, dryRun)
	if err != nil {
		turn.ResolutionStatus = ResolutionToolError
		turn.LatencyMS = o.now().Sub(start).Milliseconds()
		o.log(turn, payload)
		return nil, err
	}

	turn.ToolResult = result
	turn.ToolSuccess = !result.IsError()
	if result.IsError() {
		turn.ResolutionStatus = ResolutionToolError
	} else {
		turn.ResolutionStatus = ResolutionToolLLM
	}
	turn.ResponseText = tools.FormatResult(result)
	turn.LatencyMS = o.now().Sub(start).Milliseconds()
	o.log(turn, payload)
	return result, nil
}
