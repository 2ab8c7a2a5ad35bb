package runtimectx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetStack(t *testing.T) {
	t.Helper()
	stackMu.Lock()
	stack = nil
	stackMu.Unlock()
}

func TestSetResetStack(t *testing.T) {
	resetStack(t)

	outer := &RuntimeContext{InvocationID: "outer"}
	inner := &RuntimeContext{InvocationID: "inner"}

	tokOuter := Set(outer)
	assert.Same(t, outer, Current())

	tokInner := Set(inner)
	assert.Same(t, inner, Current())

	Reset(tokInner)
	assert.Same(t, outer, Current())

	Reset(tokOuter)
	assert.Nil(t, Current())
}

func TestResetOutOfOrder(t *testing.T) {
	resetStack(t)

	// Resetting an outer token pops everything above it too; the inner
	// token then goes stale and its Reset is a no-op.
	tokA := Set(&RuntimeContext{InvocationID: "a"})
	tokB := Set(&RuntimeContext{InvocationID: "b"})

	Reset(tokA)
	assert.Nil(t, Current())

	Reset(tokB)
	assert.Nil(t, Current())
}

func TestResetIdempotent(t *testing.T) {
	resetStack(t)

	tok := Set(&RuntimeContext{InvocationID: "once"})
	Reset(tok)
	Reset(tok)
	assert.Nil(t, Current())

	Reset(Token{})
	assert.Nil(t, Current())
}

func TestContextCarrier(t *testing.T) {
	rc := &RuntimeContext{InvocationID: "ctx-1"}
	ctx := NewContext(context.Background(), rc)

	assert.Same(t, rc, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))

	nested := &RuntimeContext{InvocationID: "ctx-2"}
	inner := NewContext(ctx, nested)
	assert.Same(t, nested, FromContext(inner))
	// The parent ctx is untouched.
	assert.Same(t, rc, FromContext(ctx))
}

func TestClone(t *testing.T) {
	rc := &RuntimeContext{
		InvocationID: "inv-1",
		Caller:       map[string]string{"team": "payments"},
	}
	cp := rc.Clone()
	require.NotSame(t, rc, cp)

	cp.Caller["team"] = "mutated"
	assert.Equal(t, "payments", rc.Caller["team"])
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name     string
		rc       *RuntimeContext
		expected string
	}{
		{name: "lambda with function", rc: &RuntimeContext{Source: SourceLambda, FunctionName: "sync"}, expected: "lambda:sync"},
		{name: "lambda bare", rc: &RuntimeContext{Source: SourceLambda}, expected: "lambda"},
		{name: "ecs with cluster", rc: &RuntimeContext{Source: SourceECS, ClusterName: "prod"}, expected: "ecs:prod"},
		{name: "ecs with task arn only", rc: &RuntimeContext{Source: SourceECS, TaskARN: "arn:aws:ecs:eu-west-1:123:task/prod/abc123"}, expected: "ecs:abc123"},
		{name: "generic with app", rc: &RuntimeContext{Source: SourceGeneric, App: "batch"}, expected: "generic:batch"},
		{name: "nil", rc: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rc.Label())
		})
	}
}

func TestFields(t *testing.T) {
	rc := &RuntimeContext{
		Source:       SourceLambda,
		InvocationID: "inv-9",
		Region:       "eu-west-1",
		FunctionName: "orders-sync",
		Caller:       map[string]string{"team": "payments"},
	}
	fields := rc.Fields()

	assert.Equal(t, "lambda", fields["platform"])
	assert.Equal(t, "orders-sync", fields["function_name"])
	assert.Equal(t, "payments", fields["team"])
	assert.NotContains(t, fields, "log_group")
}
