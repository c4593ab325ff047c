package database

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Run is one pipeline execution.
type Run struct {
	ID         string
	DataPath   string
	Responses  int
	Months     []string
	Status     string
	Files      int
	StartedAt  *string
	FinishedAt *string
}

// AggregateRow is one stored (month, team) mean of a subject.
type AggregateRow struct {
	TableKey string
	Subject  string
	Month    string
	Team     string
	Mean     float64
	N        int
}

// CountRow is one stored tally entry. Rank preserves the tally order.
type CountRow struct {
	Series string
	Item   string
	Count  int
	Rank   int
}

// Stats contains aggregate database statistics.
type Stats struct {
	Runs          int
	SucceededRuns int
	FailedRuns    int
	Aggregates    int
	Counts        int
	LastRunAt     *string
}
