package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrab/famulus/internal/config"
	"github.com/mkrab/famulus/internal/policy"
	"github.com/mkrab/famulus/internal/purge"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show assistant status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get("http://" + cfg.Server.Addr + "/health")
		if err != nil {
			printStatus("Server", "stopped")
		} else {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				printStatus("Server", "running on %s", cfg.Server.Addr)
			} else {
				printStatus("Server", "error (HTTP %d)", resp.StatusCode)
			}
		}

		if pol, err := policy.Load(cfg.Policy.Path); err != nil {
			printStatus("Policy", "error: %v", err)
		} else {
			printStatus("Policy", "%s (%d tools allowed)", pol.Version(), len(pol.AllowedTools()))
		}

		if st, ok, err := purge.LoadState(cfg.PurgeStatePath()); err == nil && ok {
			printStatus("Last purge", "%s", st.LastPurge)
		} else {
			printStatus("Last purge", "never")
		}

		printStatus("Data dir", "%s", cfg.DataDir)
		return nil
	},
}
