package domain

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	// Processed is how many entities were embedded during this run.
	Processed int

	// Total is the backlog size measured when the run started.
	Total int
}
