package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsflare-systems/opsflare"
	"github.com/opsflare-systems/opsflare/event"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a test event",
	Long:  "Dispatch a test event through every configured destination",
	Example: `  opsflare send --summary "pipeline check" --level error
  opsflare send --summary "deploy failed" --workflow deploy --simulate-error`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetString("summary")
		levelStr, _ := cmd.Flags().GetString("level")
		workflow, _ := cmd.Flags().GetString("workflow")
		simulate, _ := cmd.Flags().GetBool("simulate-error")

		level, err := event.ParseLevel(levelStr)
		if err != nil {
			return err
		}

		p, err := opsflare.NewPipeline(cfg)
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}

		opts := []opsflare.NotifyOption{opsflare.WithWorkflow(workflow)}
		if simulate {
			opts = append(opts, opsflare.WithError(errors.New("simulated failure for pipeline verification")))
		}

		results := p.Notify(cmd.Context(), level, summary, opts...)
		if len(results) == 0 {
			fmt.Println("No destinations configured (or event below min level / suppressed)")
			return nil
		}

		failed := 0
		for _, r := range results {
			if r.Success {
				fmt.Printf("%-10s ok (%d attempt(s))\n", r.Destination, r.Attempts)
			} else {
				failed++
				fmt.Printf("%-10s FAILED after %d attempt(s): %v\n", r.Destination, r.Attempts, r.Err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d destination(s) failed", failed)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().String("summary", "opsflare test event", "event summary")
	sendCmd.Flags().String("level", "error", "event level: debug, info, warning, error, critical")
	sendCmd.Flags().String("workflow", "opsflare-cli", "workflow tag")
	sendCmd.Flags().Bool("simulate-error", false, "attach a synthetic error to the event")
	rootCmd.AddCommand(sendCmd)
}
