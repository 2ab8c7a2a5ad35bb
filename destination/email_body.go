package destination

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/opsflare-systems/opsflare/event"
	"github.com/opsflare-systems/opsflare/redact"
)

const maxExcEmailLen = 12000

func levelColor(level event.Level) string {
	switch level {
	case event.LevelDebug:
		return "#1E90FF"
	case event.LevelInfo:
		return "#2E8B57"
	case event.LevelWarning:
		return "#FF8C00"
	case event.LevelError:
		return "#FF0000"
	default:
		return "#8B0000"
	}
}

func subjectFor(ev *event.Event) string {
	return fmt.Sprintf("%s %s %s: %s",
		strings.ToUpper(ev.Level.String()), ev.Env, ev.Workflow, actionOr(ev, ev.Summary))
}

// textBody is the plaintext fallback, always included alongside the HTML part.
func textBody(ev *event.Event) string {
	lines := []string{
		ev.Summary,
		fmt.Sprintf("level=%s env=%s workflow=%s action=%s", ev.Level, ev.Env, ev.Workflow, actionOr(ev, "-")),
		fmt.Sprintf("run_id=%s", ev.RunID),
	}
	if ev.Message != "" {
		lines = append(lines, "", redact.String(ev.Message))
	}
	if ev.LogURL != "" {
		lines = append(lines, "logs: "+ev.LogURL)
	}

	if src := ev.Context.Fields(); len(src) > 0 {
		lines = append(lines, "source:")
		for _, k := range sortedKeys(src) {
			lines = append(lines, fmt.Sprintf("  %s: %s", k, src[k]))
		}
	}

	if len(ev.Extra) > 0 {
		extra := redact.Map(ev.Extra)
		lines = append(lines, "context:")
		for _, k := range sortedAnyKeys(extra) {
			lines = append(lines, fmt.Sprintf("  %s: %v", k, extra[k]))
		}
	}

	if ev.Exception != nil {
		lines = append(lines, "", "exception:", tail(redact.String(exceptionText(ev.Exception)), maxExcEmailLen))
	}

	return strings.Join(lines, "\n")
}

// htmlBody renders the notification document. Styling stays inline because
// email clients strip almost everything else.
func htmlBody(ev *event.Event) string {
	row := func(k, v string) string {
		return fmt.Sprintf(`
        <tr>
          <td style='padding:6px 10px;color:#555;font-size:12px;vertical-align:top;white-space:nowrap;'><b>%s</b></td>
          <td style='padding:6px 10px;color:#111;font-size:12px;vertical-align:top;'>%s</td>
        </tr>`, html.EscapeString(k), html.EscapeString(v))
	}

	metaRows := strings.Join([]string{
		row("Level", ev.Level.String()),
		row("Env", ev.Env),
		row("Workflow", ev.Workflow),
		row("Action", actionOr(ev, "-")),
		row("Run ID", ev.RunID),
		row("Timestamp", ev.Timestamp.Format("2006-01-02 15:04:05 UTC")),
	}, "")

	table := func(kv map[string]string) string {
		if len(kv) == 0 {
			return "<i>none</i>"
		}
		var rows strings.Builder
		for _, k := range sortedKeys(kv) {
			rows.WriteString(row(k, kv[k]))
		}
		return fmt.Sprintf(`<table style="border-collapse:collapse;width:100%%;background:#fff;border:1px solid #eee;">%s</table>`, rows.String())
	}

	var links strings.Builder
	if ev.LogURL != "" {
		fmt.Fprintf(&links, `<div style="margin:6px 0;"><a href="%s">CloudWatch Logs</a></div>`, html.EscapeString(ev.LogURL))
	}
	linksBlock := ""
	if links.Len() > 0 {
		linksBlock = `<h3 style="margin:16px 0 8px 0;">Links</h3>` + links.String()
	}

	msgBlock := ""
	if ev.Message != "" {
		msgBlock = fmt.Sprintf(`
        <h3 style='margin:16px 0 8px 0;'>Message</h3>
        <pre style='white-space:pre-wrap;background:#f4f4f4;padding:12px;border-radius:6px;font-size:12px;overflow:auto;'>%s</pre>`,
			html.EscapeString(redact.String(ev.Message)))
	}

	excBlock := ""
	if ev.Exception != nil {
		exc := tail(redact.String(exceptionText(ev.Exception)), maxExcEmailLen)
		excBlock = fmt.Sprintf(`
        <h3 style='margin:16px 0 8px 0;'>Exception</h3>
        <pre style='white-space:pre-wrap;background:#0b0b0b;color:#f5f5f5;padding:12px;border-radius:6px;font-size:12px;overflow:auto;'>%s</pre>`,
			html.EscapeString(exc))
	}

	extra := make(map[string]string, len(ev.Extra))
	for k, v := range redact.Map(ev.Extra) {
		extra[k] = fmt.Sprintf("%v", v)
	}

	return fmt.Sprintf(`
    <html>
      <body style="font-family:Arial, sans-serif;background:#f6f7f9;padding:16px;">
        <div style="max-width:720px;margin:0 auto;background:#fff;border:1px solid #e6e6e6;border-radius:10px;overflow:hidden;">
          <div style="background:%s;color:#fff;padding:12px 16px;">
            <div style="font-size:16px;font-weight:700;">%s</div>
            <div style="font-size:12px;opacity:0.9;">%s · %s · %s · %s</div>
          </div>

          <div style="padding:16px;">
            <h3 style="margin:0 0 8px 0;">Summary</h3>
            <table style="border-collapse:collapse;width:100%%;background:#fff;border:1px solid #eee;">
              %s
            </table>

            %s

            %s

            <h3 style="margin:16px 0 8px 0;">Source</h3>
            %s

            <h3 style="margin:16px 0 8px 0;">Context</h3>
            %s

            %s
          </div>
        </div>
      </body>
    </html>`,
		levelColor(ev.Level),
		html.EscapeString(ev.Summary),
		html.EscapeString(ev.Level.String()), html.EscapeString(ev.Env),
		html.EscapeString(ev.Workflow), html.EscapeString(actionOr(ev, "-")),
		metaRows,
		msgBlock,
		linksBlock,
		table(ev.Context.Fields()),
		table(extra),
		excBlock,
	)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
