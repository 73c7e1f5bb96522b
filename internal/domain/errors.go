package domain

import "time"

// ErrorType partitions pipeline failures for tracking and retry bookkeeping.
type ErrorType string

const (
	ErrorFetch              ErrorType = "fetch"
	ErrorAnalysis           ErrorType = "analysis"
	ErrorDuplicateDetection ErrorType = "duplicate_detection"
)

// ErrorRecord tracks repeated failures for one (type, source, article) key.
// At most one unresolved record exists per key; retries increment it.
type ErrorRecord struct {
	ID         int64
	Type       ErrorType
	SourceID   *int64
	ArticleID  *int64
	Message    string
	RetryCount int
	MaxRetries int
	Resolved   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ErrorStats aggregates error-record counts for operators.
type ErrorStats struct {
	Total            int
	Unresolved       int
	UnresolvedByType map[ErrorType]int
	Recent           []ErrorRecord
}
