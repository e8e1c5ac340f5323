package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatJSON bool

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message through the assistant and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()

		rt, err := buildRuntime()
		if err != nil {
			return err
		}

		message := strings.Join(args, " ")
		resp := rt.orch.HandleMessage(context.Background(), message)

		if chatJSON {
			out := map[string]any{
				"response":          resp.Text,
				"turn_id":           resp.Turn.TurnID,
				"intent":            resp.Turn.Intent,
				"confidence":        resp.Turn.Confidence,
				"invocation_source": resp.Turn.InvocationSource,
				"resolution_status": resp.Turn.ResolutionStatus,
				"tool_name":         resp.Turn.ToolName,
				"latency_ms":        resp.Turn.LatencyMS,
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Println(resp.Text)
		return nil
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "print the full turn as JSON")
}
