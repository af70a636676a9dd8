package handler

import (
	"net/http"
	"strconv"

	"github.com/DanilSvechnikar/wildfire-detection/internal/command"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/results"
)

const defaultPageSize = 24

// ResultsHandler returns one page of the results table. Stored runs are read from the
// repository (latest run unless ?run= is given); without a repository the rows of the current
// run are paginated in memory.
func ResultsHandler(controller *command.Controller, runRepo repository.RunRepository,
	recordRepo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		minProb, _ := strconv.ParseFloat(q.Get("min"), 64)
		filter := &dto.RecordFilters{
			Label:    q.Get("label"),
			MinProb:  minProb,
			Page:     atoiDefault(q.Get("page"), 1),
			PageSize: atoiDefault(q.Get("limit"), defaultPageSize),
		}

		if runRepo == nil || recordRepo == nil {
			writeJSON(w, logger, http.StatusOK, memoryPage(controller.State(), filter))
			return
		}

		filter.RunID = int64(atoiDefault(q.Get("run"), 0))
		if filter.RunID == 0 {
			runs, err := runRepo.List(r.Context(), 1)
			if err != nil {
				logger.Error("Error querying runs: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if len(runs) == 0 {
				writeJSON(w, logger, http.StatusOK, page(nil, 0, filter))
				return
			}
			filter.RunID = runs[0].ID
		}

		records, err := recordRepo.ListByRun(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying records: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		total, err := recordRepo.CountByRun(r.Context(), filter)
		if err != nil {
			logger.Error("Error counting records: %v", err)
			total = len(records)
		}

		rows := make([]dto.ResultRow, 0, len(records))
		for _, record := range records {
			rows = append(rows, results.Row(record))
		}
		writeJSON(w, logger, http.StatusOK, page(rows, total, filter))
	}
}

func memoryPage(state command.State, filter *dto.RecordFilters) dto.ResultsData {
	var matched []dto.ResultRow
	for _, row := range state.Rows {
		if filter.Label != "" && row.Label != filter.Label {
			continue
		}
		if row.Probability < filter.MinProb {
			continue
		}
		matched = append(matched, row)
	}

	start := (filter.Page - 1) * filter.PageSize
	end := start + filter.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	filter.RunID = state.RunID
	return page(matched[start:end], len(matched), filter)
}

func page(rows []dto.ResultRow, total int, filter *dto.RecordFilters) dto.ResultsData {
	if rows == nil {
		rows = []dto.ResultRow{}
	}
	return dto.ResultsData{
		Rows:        rows,
		RunID:       filter.RunID,
		Length:      total,
		TotalPages:  (total + filter.PageSize - 1) / filter.PageSize,
		CurrentPage: filter.Page,
		Limit:       filter.PageSize,
	}
}

// RunsHandler lists the most recent runs.
func RunsHandler(runRepo repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runRepo == nil {
			http.Error(w, "Results are not stored", http.StatusServiceUnavailable)
			return
		}

		runs, err := runRepo.List(r.Context(), atoiDefault(r.URL.Query().Get("limit"), 20))
		if err != nil {
			logger.Error("Error querying runs: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, runs)
	}
}

// RunMarkersHandler returns the stored markers of a run; ?fire=true keeps fire markers only.
func RunMarkersHandler(runRepo repository.RunRepository, recordRepo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runRepo == nil || recordRepo == nil {
			http.Error(w, "Results are not stored", http.StatusServiceUnavailable)
			return
		}

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid run id", http.StatusBadRequest)
			return
		}

		run, err := runRepo.GetByID(r.Context(), id)
		if err != nil {
			logger.Error("Error querying run %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.NotFound(w, r)
			return
		}

		fireOnly, _ := strconv.ParseBool(r.URL.Query().Get("fire"))
		markers, err := recordRepo.Markers(r.Context(), id, fireOnly)
		if err != nil {
			logger.Error("Error querying markers of run %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, markers)
	}
}

// DetectionsHandler returns the stored boxes of one record.
func DetectionsHandler(recordRepo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if recordRepo == nil {
			http.Error(w, "Results are not stored", http.StatusServiceUnavailable)
			return
		}

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid record id", http.StatusBadRequest)
			return
		}

		detections, err := recordRepo.DetectionsByRecord(r.Context(), id)
		if err != nil {
			logger.Error("Error querying detections of record %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, detections)
	}
}
