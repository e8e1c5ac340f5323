package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mkrab/famulus/internal/config"
	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/purge"
)

var (
	purgeDryRun    bool
	purgeLogPath   string
	purgeStatePath string
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Apply the policy retention limits to logs and stores",
	Long: `Apply the retention limits from the governance policy.

Trims each JSONL log stream and each tool store down to the entry count
its policy bucket allows, oldest entries first. Run this offline: the
purge does not coordinate with a running server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		pol, err := policy.Load(cfg.Policy.Path)
		if err != nil {
			return fmt.Errorf("loading policy: %w", err)
		}

		paths := purge.Paths{
			TurnLog:          cfg.TurnLogPath(),
			ReviewQueue:      cfg.ReviewQueuePath(),
			CorrectedPrompts: cfg.CorrectedPath(),
			Todos:            cfg.TodosPath(),
			Events:           cfg.EventsPath(),
			Tips:             cfg.TipsPath(),
			Sections:         cfg.SectionsPath(),
			State:            cfg.PurgeStatePath(),
		}
		if purgeLogPath != "" {
			paths.TurnLog = purgeLogPath
		}
		if purgeStatePath != "" {
			paths.State = purgeStatePath
		}

		reports, err := purge.New(pol, paths).Run(purgeDryRun)
		for _, rep := range reports {
			verb := "removed"
			if purgeDryRun {
				verb = "would remove"
			}
			fmt.Printf("%s: %s %d, keeping %d\n", rep.Target, verb, rep.Removed, rep.Kept)
			slog.Info("purge target done",
				"target", rep.Target, "removed", rep.Removed, "kept", rep.Kept, "dry_run", purgeDryRun)
		}
		if err != nil {
			return err
		}
		if purgeDryRun {
			printSuccess("Dry run complete (policy %s)", pol.Version())
		} else {
			printSuccess("Purge complete (policy %s)", pol.Version())
		}
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeDryRun, "dry-run", false, "report what would be removed without rewriting anything")
	purgeCmd.Flags().StringVar(&purgeLogPath, "log-path", "", "override the turn log path")
	purgeCmd.Flags().StringVar(&purgeStatePath, "state-path", "", "override the purge state file path")
}
