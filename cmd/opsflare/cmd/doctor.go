package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/opsflare-systems/opsflare/runtimectx"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check pipeline configuration",
	Long:  "Report which destinations are configured, what the dedup store is, and what runtime context detection sees",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("app:                %s\n", orUnset(cfg.App))
		fmt.Printf("env:                %s\n", cfg.Env)
		fmt.Printf("min level:          %s\n", cfg.MinLevel)
		fmt.Printf("emit local copy:    %t\n", cfg.EmitLocal())
		fmt.Printf("dedup window:       %s\n", cfg.DedupWindow())

		if cfg.Slack.WebhookURL != "" {
			fmt.Printf("slack:              configured (%s format)\n", cfg.Slack.Format)
		} else {
			fmt.Println("slack:              not configured")
		}
		if cfg.SES.From != "" && len(cfg.Recipients()) > 0 {
			fmt.Printf("email:              configured (%d recipients)\n", len(cfg.Recipients()))
		} else {
			fmt.Println("email:              not configured")
		}

		if cfg.Redis.Enabled && cfg.Redis.URL != "" {
			fmt.Printf("dedup store:        redis (%s)\n", pingRedis(cmd.Context(), cfg.Redis.URL))
		} else {
			fmt.Println("dedup store:        in-memory")
		}

		rc := runtimectx.Detect(cmd.Context())
		fmt.Printf("detected runtime:   %s\n", rc.Source)
		if rc.Region != "" {
			fmt.Printf("detected region:    %s\n", rc.Region)
		}
		return nil
	},
}

func pingRedis(ctx context.Context, url string) string {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return "invalid url: " + err.Error()
	}
	client := redis.NewClient(opt)
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return "unreachable: " + err.Error()
	}
	return "reachable"
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
