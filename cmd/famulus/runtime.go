package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mkrab/famulus/internal/config"
	"github.com/mkrab/famulus/internal/learning"
	"github.com/mkrab/famulus/internal/news"
	"github.com/mkrab/famulus/internal/nlu"
	"github.com/mkrab/famulus/internal/orchestrator"
	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/probe"
	"github.com/mkrab/famulus/internal/router"
	"github.com/mkrab/famulus/internal/session"
	"github.com/mkrab/famulus/internal/store"
	"github.com/mkrab/famulus/internal/tools"
	"github.com/mkrab/famulus/internal/weather"
)

// runtime is the fully wired assistant: one value owns every stage.
type runtime struct {
	cfg      *config.Config
	pol      *policy.Policy
	orch     *orchestrator.Orchestrator
	registry *tools.Registry
	logger   *learning.Logger
	sessions *session.Manager
	quota    *session.Quota
}

func setupLogging() {
	level := slog.LevelInfo
	if debug || strings.EqualFold(os.Getenv("FAMULUS_LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildRuntime loads config and policy and wires the full pipeline.
// A missing or invalid policy file is fatal: the assistant never runs
// ungoverned.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	pol, err := policy.Load(cfg.Policy.Path)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}

	intents, err := nlu.LoadIntentConfig(cfg.NLU.IntentsPath)
	if err != nil {
		return nil, fmt.Errorf("loading intent config: %w", err)
	}

	todos := store.NewTodoStore(cfg.TodosPath())
	events := store.NewEventStore(cfg.EventsPath())
	tips := store.NewTipStore(cfg.TipsPath())
	sections := store.NewSectionStore(cfg.SectionsPath())

	registry := tools.NewRegistry()
	registry.Register(tools.NewTodoTool(todos))
	registry.Register(tools.NewCalendarTool(events))
	registry.Register(tools.NewKitchenTool(tips))
	registry.Register(tools.NewNotesTool(sections))
	registry.Register(tools.NewWeatherTool(weather.New()))
	registry.Register(tools.NewNewsTool(news.New(news.Options{
		APIKey:      cfg.News.APIKey,
		SearchLimit: cfg.News.SearchLimit,
		SearchDays:  cfg.News.SearchDays,
		LocalDays:   cfg.News.LocalDays,
		UserAgent:   cfg.News.UserAgent,
	})))

	classifier := nlu.NewClassifier(cfg.NLU.ClassifierPath, intents)
	svc := nlu.NewService(classifier, intents).
		WithThresholds(cfg.NLU.ParserFloor, cfg.NLU.ClassifierThreshold, cfg.NLU.ServiceThreshold)

	model := cfg.Router.Model
	if model != "" && !pol.IsModelAllowed(model) {
		slog.Warn("configured model is not in the policy allow-list; router disabled",
			"model", model, "policy_version", pol.Version())
		model = ""
	}
	var rt *router.Router
	if model == "" {
		rt = router.New(nil, cfg.Router.Model, pol.AllowedTools())
	} else {
		rt = router.NewFromAPIKey(cfg.Router.APIKey, model, pol.AllowedTools())
	}

	logger := learning.NewLogger(cfg.TurnLogPath(), cfg.ReviewQueuePath(), pol, learning.Options{
		MaxBytes:    cfg.Logs.MaxBytes,
		BackupCount: cfg.Logs.BackupCount,
	})

	prober := probe.New(todos, events, tips, sections)
	orch := orchestrator.New(svc, rt, registry, pol, logger, prober)

	var quota *session.Quota
	if cfg.QuotaLimit > 0 {
		quota = session.NewQuota(cfg.QuotaPath(), cfg.QuotaLimit)
	}

	return &runtime{
		cfg:      cfg,
		pol:      pol,
		orch:     orch,
		registry: registry,
		logger:   logger,
		sessions: session.NewManager(),
		quota:    quota,
	}, nil
}
