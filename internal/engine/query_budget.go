package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// QueryBudget enforces the time allowed for one query execution.
//
// Design: pass the budget through the context, check periodically in the
// match loop. The deadline is only compared every checkInterval docs.
type QueryBudget struct {
	deadline time.Time
	started  time.Time

	// Docs visited (filter survivors the query was evaluated on)
	visited atomic.Int64

	exhausted       atomic.Bool
	exhaustedReason atomic.Value // string
}

// checkInterval is the number of visited docs between deadline checks.
const checkInterval = 256

// NewQueryBudget creates a budget. timeAllowed <= 0 means unbounded.
func NewQueryBudget(timeAllowed time.Duration) *QueryBudget {
	qb := &QueryBudget{started: time.Now()}
	if timeAllowed > 0 {
		qb.deadline = qb.started.Add(timeAllowed)
	}
	return qb
}

// budgetKey is the context key for QueryBudget.
type budgetKey struct{}

// WithBudget attaches a budget to a context.
func WithBudget(ctx context.Context, budget *QueryBudget) context.Context {
	return context.WithValue(ctx, budgetKey{}, budget)
}

// BudgetFromContext retrieves the budget from context, or nil if none.
func BudgetFromContext(ctx context.Context) *QueryBudget {
	if b, ok := ctx.Value(budgetKey{}).(*QueryBudget); ok {
		return b
	}
	return nil
}

// Visit records one visited doc and reports whether execution may continue.
func (qb *QueryBudget) Visit() bool {
	if qb == nil {
		return true
	}
	n := qb.visited.Add(1)
	if n%checkInterval != 0 {
		return !qb.exhausted.Load()
	}
	return qb.CheckDeadline()
}

// CheckDeadline checks if the time budget is exhausted.
func (qb *QueryBudget) CheckDeadline() bool {
	if qb == nil || qb.deadline.IsZero() {
		return true
	}

	if qb.exhausted.Load() {
		return false
	}

	if time.Now().After(qb.deadline) {
		qb.markExhausted("deadline")
		return false
	}

	return true
}

// IsExhausted returns true if the budget was exceeded.
func (qb *QueryBudget) IsExhausted() bool {
	if qb == nil {
		return false
	}
	return qb.exhausted.Load()
}

// ExhaustedReason returns why the budget was exhausted.
func (qb *QueryBudget) ExhaustedReason() string {
	if qb == nil {
		return ""
	}
	if r := qb.exhaustedReason.Load(); r != nil {
		return r.(string)
	}
	return ""
}

func (qb *QueryBudget) markExhausted(reason string) {
	if qb.exhausted.CompareAndSwap(false, true) {
		qb.exhaustedReason.Store(reason)
	}
}

// Stats returns budget usage statistics.
func (qb *QueryBudget) Stats() BudgetStats {
	if qb == nil {
		return BudgetStats{}
	}

	stats := BudgetStats{
		Visited:         qb.visited.Load(),
		Elapsed:         time.Since(qb.started),
		Exhausted:       qb.exhausted.Load(),
		ExhaustedReason: qb.ExhaustedReason(),
	}
	if !qb.deadline.IsZero() {
		stats.TimeLimit = qb.deadline.Sub(qb.started)
	}
	return stats
}

// BudgetStats contains budget usage statistics.
type BudgetStats struct {
	Visited         int64
	Elapsed         time.Duration
	TimeLimit       time.Duration
	Exhausted       bool
	ExhaustedReason string
}
