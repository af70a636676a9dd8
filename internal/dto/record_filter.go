// RecordFilters describe user-provided filters to narrow the results table.
package dto

type RecordFilters struct {
	RunID    int64
	Label    string // "fire", "no fire" or empty for all
	MinProb  float64
	Page     int
	PageSize int
}
