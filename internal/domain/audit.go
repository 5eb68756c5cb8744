package domain

import "time"

// ExecutionRecord is an append-only audit row for one pipeline invocation.
// The pipeline writes these but never reads them back.
type ExecutionRecord struct {
	ID            int64
	UserName      string
	QueryID       *int64
	UsedCache     bool
	ExecutionSecs float64
	CreatedAt     time.Time
}
