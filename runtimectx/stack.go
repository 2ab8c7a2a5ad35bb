package runtimectx

import (
	"context"
	"sync"
)

type ctxKey struct{}

// NewContext returns a derived context carrying rc. Nested calls shadow the
// outer context; the previous one is restored simply by using the parent ctx
// again, so stack discipline is automatic on this path.
func NewContext(parent context.Context, rc *RuntimeContext) context.Context {
	return context.WithValue(parent, ctxKey{}, rc)
}

// FromContext returns the innermost RuntimeContext carried by ctx, or nil.
func FromContext(ctx context.Context) *RuntimeContext {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(ctxKey{}).(*RuntimeContext)
	return rc
}

// Token identifies one Set so the matching Reset can pop exactly that frame.
// The zero Token is stale by definition.
type Token struct {
	id uint64
}

type frame struct {
	id uint64
	rc *RuntimeContext
}

var (
	stackMu sync.Mutex
	stack   []frame
	nextID  uint64
)

// Set pushes rc as the current process-level context and returns a token for
// the matching Reset. Use this only on paths that cannot thread a
// context.Context; the capture boundary maintains it alongside the ctx so
// loggers without a ctx still resolve the active invocation.
//
// The stack is shared across goroutines. Hosts running concurrent
// invocations must propagate context through ctx (NewContext/FromContext),
// which is isolated per invocation; Current reads whichever frame any
// goroutine pushed last.
func Set(rc *RuntimeContext) Token {
	stackMu.Lock()
	defer stackMu.Unlock()
	nextID++
	stack = append(stack, frame{id: nextID, rc: rc})
	return Token{id: nextID}
}

// Reset pops the frame pushed by the Set that produced t, along with anything
// pushed above it. A stale or already-reset token is a no-op: Reset runs from
// guaranteed-cleanup paths and must be idempotent.
func Reset(t Token) {
	if t.id == 0 {
		return
	}
	stackMu.Lock()
	defer stackMu.Unlock()
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].id == t.id {
			stack = stack[:i]
			return
		}
	}
}

// Current returns the innermost process-level context, or nil.
func Current() *RuntimeContext {
	stackMu.Lock()
	defer stackMu.Unlock()
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1].rc
}
