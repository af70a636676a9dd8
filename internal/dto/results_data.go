// ResultsData is a paginated response payload for the results table.
package dto

type ResultsData struct {
	Rows        []ResultRow `json:"rows"`
	RunID       int64       `json:"runId"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}
