package destination

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opsflare-systems/opsflare/awslink"
	"github.com/opsflare-systems/opsflare/event"
	"github.com/opsflare-systems/opsflare/redact"
)

const (
	maxHeaderLen  = 150
	maxMessageLen = 1800
	maxExcTailLen = 2500
	maxDetailsLen = 1500
	maxFields     = 10
)

// blocksPayload renders the Block Kit layout: header, severity line, message,
// compact key fields, links, exception tail, and structured details.
func blocksPayload(ev *event.Event) map[string]any {
	var header, topLine string
	if ev.Exception != nil {
		header = "🚨 " + ev.Summary
		topLine = fmt.Sprintf("*%s* — `%s`", ev.Level, actionOr(ev, "unknown"))
	} else {
		header = fmt.Sprintf("%s: %s", ev.Level, firstNonEmpty(ev.Message, ev.Summary, "Log"))
		topLine = fmt.Sprintf("`%s`", actionOr(ev, ev.Logger))
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": truncate(header, maxHeaderLen), "emoji": true},
		},
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": topLine},
		},
	}

	if ev.Exception == nil && ev.Message != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn",
				"text": fmt.Sprintf("*Message*\n```%s```", truncate(redact.String(ev.Message), maxMessageLen))},
		})
	}

	src := ev.Context.Fields()
	var fields []map[string]any
	addField := func(label, value string) {
		if value != "" {
			fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*%s*\n%s", label, value)})
		}
	}
	addField("Env", ev.Env)
	addField("Workflow", ev.Workflow)
	addField("Run ID", ev.RunID)
	addField("Function", src["function_name"])
	addField("Request ID", src["request_id"])
	addField("Account", firstNonEmpty(src["account_name"], src["account_id"]))
	addField("Region", src["region"])
	addField("Logger", ev.Logger)
	if len(fields) > 0 {
		if len(fields) > maxFields {
			fields = fields[:maxFields]
		}
		blocks = append(blocks, map[string]any{"type": "section", "fields": fields})
	}

	var links []string
	if ev.LogURL != "" {
		links = append(links, fmt.Sprintf("<%s|CloudWatch Logs>", ev.LogURL))
	}
	if src["platform"] == "lambda" {
		if u := awslink.LambdaConsole(src["region"], src["function_name"]); u != "" {
			links = append(links, fmt.Sprintf("<%s|Lambda Console>", u))
		}
	}
	if repo := src["source_code"]; repo != "" {
		links = append(links, fmt.Sprintf("<%s|Source>", repo))
	}
	if len(links) > 0 {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": strings.Join(links, " · ")},
		})
	}

	if ev.Exception != nil {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn",
				"text": fmt.Sprintf("*Exception*\n```%s```", tail(redact.String(exceptionText(ev.Exception)), maxExcTailLen))},
		})
	}

	if len(ev.Extra) > 0 {
		detailsJSON, err := json.MarshalIndent(redact.Map(ev.Extra), "", "  ")
		if err == nil {
			blocks = append(blocks, map[string]any{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn",
					"text": fmt.Sprintf("*Details*\n```%s```", truncate(string(detailsJSON), maxDetailsLen))},
			})
		}
	}

	blocks = append(blocks, map[string]any{"type": "divider"})

	fallback := firstNonEmpty(ev.Message, ev.Summary, "Notification")
	return map[string]any{
		// text is the fallback for notifications and search.
		"text":   fmt.Sprintf("%s: %s (%s)", ev.Level, redact.String(fallback), ev.Env),
		"blocks": blocks,
	}
}

// plainPayload renders a single mrkdwn message for hosts that prefer it.
func plainPayload(ev *event.Event) map[string]any {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *%s*\n", ev.Summary)
	fmt.Fprintf(&b, "*env*: %s | *workflow*: %s | *action*: %s\n", ev.Env, ev.Workflow, actionOr(ev, "-"))
	fmt.Fprintf(&b, "*run_id*: %s\n", ev.RunID)
	if ev.SubjectID != "" {
		fmt.Fprintf(&b, "*subject*: %s\n", ev.SubjectID)
	}
	if ev.LogURL != "" {
		fmt.Fprintf(&b, "*logs*: %s\n", ev.LogURL)
	}
	if ev.Exception != nil {
		fmt.Fprintf(&b, "```%s```\n", tail(redact.String(exceptionText(ev.Exception)), maxExcTailLen))
	}
	if ev.Message != "" {
		fmt.Fprintf(&b, "*msg*: ```%s```", truncate(redact.String(ev.Message), maxMessageLen))
	}
	return map[string]any{"text": b.String()}
}

func exceptionText(exc *event.ExceptionInfo) string {
	var b strings.Builder
	if exc.Type != "" {
		b.WriteString(exc.Type)
		b.WriteString(": ")
	}
	b.WriteString(exc.Message)
	if exc.Stack != "" {
		b.WriteString("\n")
		b.WriteString(exc.Stack)
	}
	return b.String()
}

func actionOr(ev *event.Event, fallback string) string {
	if ev.Action != "" {
		return ev.Action
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
