package models

import "time"

// Analytics holds the cumulative execution counters of a trigger. Counters
// are monotonically non-decreasing and mutated only through the store's
// atomic increment, once per execution.
type Analytics struct {
	TotalExecutions      int64      `json:"total_executions"`
	SuccessfulExecutions int64      `json:"successful_executions"`
	FailedExecutions     int64      `json:"failed_executions"`
	LastExecutedAt       *time.Time `json:"last_executed_at,omitempty"`
	AverageExecutionTime float64    `json:"average_execution_time"` // milliseconds
	LastError            string     `json:"last_error,omitempty"`
}

// SuccessRate returns the share of successful action runs, 0 when nothing
// has run yet.
func (a Analytics) SuccessRate() float64 {
	total := a.SuccessfulExecutions + a.FailedExecutions
	if total == 0 {
		return 0
	}

	return float64(a.SuccessfulExecutions) / float64(total)
}

// AnalyticsSnapshot is the immutable delta computed from one execution's
// complete result list. It is merged into the persisted counters by the
// trigger store in a single atomic write.
type AnalyticsSnapshot struct {
	Succeeded      int64     `json:"succeeded"`
	Failed         int64     `json:"failed"`
	LastExecutedAt time.Time `json:"last_executed_at"`
	DurationMs     int64     `json:"duration_ms"`
	LastError      string    `json:"last_error,omitempty"`
}

// NewAnalyticsSnapshot aggregates the results of a single execution.
func NewAnalyticsSnapshot(results []ActionResult, executedAt time.Time, duration time.Duration) AnalyticsSnapshot {
	snap := AnalyticsSnapshot{
		LastExecutedAt: executedAt,
		DurationMs:     duration.Milliseconds(),
	}

	for _, r := range results {
		if r.Success {
			snap.Succeeded++
		} else {
			snap.Failed++

			if r.Error != "" {
				snap.LastError = r.Error
			}
		}
	}

	return snap
}

// Apply merges the snapshot into in-memory analytics. The file-backed
// store uses this under its lock; the SQL store performs the equivalent
// arithmetic inside a single UPDATE.
func (s AnalyticsSnapshot) Apply(a Analytics) Analytics {
	total := a.TotalExecutions + 1
	a.AverageExecutionTime = (a.AverageExecutionTime*float64(a.TotalExecutions) + float64(s.DurationMs)) / float64(total)
	a.TotalExecutions = total
	a.SuccessfulExecutions += s.Succeeded
	a.FailedExecutions += s.Failed

	executedAt := s.LastExecutedAt
	a.LastExecutedAt = &executedAt

	if s.LastError != "" {
		a.LastError = s.LastError
	}

	return a
}
