// Package redact scrubs secrets out of values before they leave the process in
// a notification payload or a structured log line.
package redact

import (
	"regexp"
	"strings"
)

const (
	placeholder = "[REDACTED]"
	maxLen      = 4000
)

var sensitiveKeys = map[string]struct{}{
	"token":                 {},
	"access_token":          {},
	"refresh_token":         {},
	"id_token":              {},
	"auth":                  {},
	"authorization":         {},
	"password":              {},
	"pwd":                   {},
	"passphrase":            {},
	"secret":                {},
	"client_secret":         {},
	"secret_key":            {},
	"private_key":           {},
	"api_key":               {},
	"x-api-key":             {},
	"x_api_key":             {},
	"cookie":                {},
	"set-cookie":            {},
	"set_cookie":            {},
	"session":               {},
	"aws_access_key_id":     {},
	"aws_secret_access_key": {},
	"aws_session_token":     {},
}

var bearerRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-_.=]+`)

// String scrubs bearer tokens and truncates oversized text.
func String(s string) string {
	if s == "" {
		return s
	}
	s = bearerRE.ReplaceAllString(s, "Bearer "+placeholder)
	if len(s) > maxLen {
		return s[:maxLen] + "…[TRUNCATED]"
	}
	return s
}

// Value scrubs v recursively. Maps have sensitive keys masked and the rest of
// their values scrubbed; slices are scrubbed element-wise; strings go through
// String. Other scalars pass through untouched.
func Value(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return String(val)
	case map[string]any:
		return Map(val)
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			if isSensitive(k) {
				out[k] = placeholder
			} else {
				out[k] = String(s)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Value(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = String(s)
		}
		return out
	default:
		return v
	}
}

// Map scrubs a string-keyed map, returning a new map.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitive(k) {
			out[k] = placeholder
		} else {
			out[k] = Value(v)
		}
	}
	return out
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}
