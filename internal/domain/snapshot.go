package domain

// NewSnapshot stamps a merged table with its run id and build time and
// prepares the query service over it.
func NewSnapshot(runID string, table MergedTable, feedTimestamp *string) *Snapshot {
	return &Snapshot{
		RunID:         runID,
		BuiltAt:       clock.Now(),
		FeedTimestamp: feedTimestamp,
		Table:         table,
		Query:         NewQueryService(table),
	}
}
