// Package runtimectx models the per-invocation runtime context and its
// propagation. The primary mechanism is context.Context: the capture boundary
// injects a RuntimeContext into the ctx it hands the wrapped function, so
// isolation across concurrently executing invocations falls out of Go's
// ordinary context discipline. A small explicit stack backs the manual API for
// emission paths that carry no ctx.
package runtimectx

import (
	"strings"
	"time"
)

// Source classifies the hosting platform of an invocation.
type Source string

const (
	SourceLambda  Source = "lambda"
	SourceECS     Source = "ecs"
	SourceGeneric Source = "generic"
)

// RuntimeContext describes one logical invocation. It is created at the
// capture boundary (or via Set) and torn down when the invocation exits; it is
// never persisted.
type RuntimeContext struct {
	InvocationID string    `json:"invocation_id"`
	App          string    `json:"app,omitempty"`
	Env          string    `json:"env,omitempty"`
	Workflow     string    `json:"workflow,omitempty"`
	Source       Source    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`

	Region       string `json:"region,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	AccountName  string `json:"account_name,omitempty"`
	FunctionName string `json:"function_name,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	LogGroup     string `json:"log_group,omitempty"`
	LogStream    string `json:"log_stream,omitempty"`
	ClusterName  string `json:"cluster_name,omitempty"`
	TaskARN      string `json:"task_arn,omitempty"`

	// Caller holds free-form metadata supplied by the application.
	Caller map[string]string `json:"caller,omitempty"`
}

// Label renders the context origin as "source:identity".
func (rc *RuntimeContext) Label() string {
	if rc == nil {
		return ""
	}
	switch rc.Source {
	case SourceLambda:
		if rc.FunctionName != "" {
			return "lambda:" + rc.FunctionName
		}
		return "lambda"
	case SourceECS:
		id := rc.ClusterName
		if id == "" {
			id = shortARN(rc.TaskARN)
		}
		if id != "" {
			return "ecs:" + id
		}
		return "ecs"
	default:
		if rc.App != "" {
			return "generic:" + rc.App
		}
		return "generic"
	}
}

// Fields flattens the context into key/value pairs for payload rendering,
// omitting empties.
func (rc *RuntimeContext) Fields() map[string]string {
	if rc == nil {
		return nil
	}
	out := make(map[string]string, 12)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("platform", string(rc.Source))
	put("invocation_id", rc.InvocationID)
	put("region", rc.Region)
	put("account_id", rc.AccountID)
	put("account_name", rc.AccountName)
	put("function_name", rc.FunctionName)
	put("request_id", rc.RequestID)
	put("log_group", rc.LogGroup)
	put("log_stream", rc.LogStream)
	put("cluster", rc.ClusterName)
	put("task_arn", rc.TaskARN)
	for k, v := range rc.Caller {
		put(k, v)
	}
	return out
}

// Clone returns a copy safe to attach to an event after the invocation ends.
func (rc *RuntimeContext) Clone() *RuntimeContext {
	if rc == nil {
		return nil
	}
	cp := *rc
	if rc.Caller != nil {
		cp.Caller = make(map[string]string, len(rc.Caller))
		for k, v := range rc.Caller {
			cp.Caller[k] = v
		}
	}
	return &cp
}

func shortARN(arn string) string {
	if arn == "" {
		return ""
	}
	if i := strings.LastIndex(arn, "/"); i >= 0 && i+1 < len(arn) {
		return arn[i+1:]
	}
	return arn
}
