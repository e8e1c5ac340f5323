// Package api exposes the admin surfaces: a bearer-guarded chi router
// for operators and an MCP server for agent clients. Both funnel tool
// execution through the orchestrator so policy and logging always apply.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkrab/famulus/internal/learning"
	"github.com/mkrab/famulus/internal/orchestrator"
	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/session"
	"github.com/mkrab/famulus/internal/tools"
)

const maxBodySize = 1 << 20

// AppDeps holds everything the admin handler needs.
type AppDeps struct {
	Orch        *orchestrator.Orchestrator
	Policy      *policy.Policy
	Sessions    *session.Manager
	Quota       *session.Quota // optional; nil means unlimited
	TurnLogPath string
	ReviewPath  string
	Token       string
}

// NewAppHandler builds the admin router. /health stays open; everything
// else requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"policy_version": deps.Policy.Version(),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/turn", handleTurn(deps))
		r.Post("/tools/{name}", handleTool(deps))
		r.Get("/logs/turns", handleLogTail(deps.TurnLogPath))
		r.Get("/logs/review", handleLogTail(deps.ReviewPath))
		r.Get("/policy", handlePolicy(deps))
	})

	return r
}

type turnRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func handleTurn(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req turnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		if deps.Quota != nil {
			if err := deps.Quota.Consume(); err != nil {
				if errors.Is(err, session.ErrQuotaExceeded) {
					httpError(w, http.StatusTooManyRequests, "quota_error", "daily turn quota exhausted")
					return
				}
				httpError(w, http.StatusInternalServerError, "api_error", "quota check failed: %v", err)
				return
			}
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = deps.Sessions.Start()
		}
		sess := deps.Sessions.Touch(sessionID)

		resp := deps.Orch.HandleMessage(r.Context(), req.Message)
		writeJSON(w, http.StatusOK, map[string]any{
			"response":          resp.Text,
			"turn_id":           resp.Turn.TurnID,
			"intent":            resp.Turn.Intent,
			"confidence":        resp.Turn.Confidence,
			"invocation_source": resp.Turn.InvocationSource,
			"resolution_status": resp.Turn.ResolutionStatus,
			"tool_name":         resp.Turn.ToolName,
			"session_id":        sess.ID,
			"session_turns":     sess.Turns,
		})
	}
}

type toolRequest struct {
	Payload map[string]any `json:"payload"`
	DryRun  bool           `json:"dry_run"`
}

func handleTool(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		name := chi.URLParam(r, "name")
		var req toolRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		result, err := deps.Orch.RunTool(r.Context(), name, tools.Payload(req.Payload), req.DryRun)
		if err != nil {
			if errors.Is(err, policy.ErrToolNotAllowed) {
				httpError(w, http.StatusForbidden, "policy_error", "tool %s is not allowed by policy %s", name, deps.Policy.Version())
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"dry_run": req.DryRun,
			"result":  map[string]any(result),
		})
	}
}

func handleLogTail(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			if n > 1000 {
				n = 1000
			}
			limit = n
		}
		records, err := learning.ReadTail(path, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reading log: %v", err)
			return
		}
		if records == nil {
			records = []json.RawMessage{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handlePolicy(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		retention := map[string]any{}
		for _, bucket := range []string{
			policy.BucketTurnLogs,
			policy.BucketPendingQueue,
			policy.BucketCorrectedPrompts,
			policy.BucketToolStores,
		} {
			if limit, ok := deps.Policy.RetentionLimit(bucket); ok {
				retention[bucket] = limit
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"policy_version": deps.Policy.Version(),
			"allowed_tools":  deps.Policy.AllowedTools(),
			"reviewer_roles": deps.Policy.ReviewerRoles(),
			"retention":      retention,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
