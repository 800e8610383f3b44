// Package kafka carries the two refresh-coordination topics: fact-update
// notifications consumed by the worker, and refresh-completed events it
// publishes back.
package kafka

import "time"

// FactsUpdatedEvent signals that an ingestion run changed the fact tables.
// The worker debounces a burst of these into one refresh.
type FactsUpdatedEvent struct {
	Source     string    `json:"source"`
	Table      string    `json:"table"`
	RowCount   int       `json:"row_count"`
	OccurredAt time.Time `json:"occurred_at"`
}
