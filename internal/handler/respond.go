package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/DanilSvechnikar/wildfire-detection/internal/batch"
	"github.com/DanilSvechnikar/wildfire-detection/internal/command"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/evaluation"
)

// maxBodySize limits command request bodies.
const maxBodySize = 1 << 16

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, command.ErrNoDirectory),
		errors.Is(err, command.ErrNoSelection),
		errors.Is(err, command.ErrNotInGallery),
		errors.Is(err, evaluation.ErrUnsupportedFile),
		errors.Is(err, batch.ErrInvalidBatchSize),
		errors.Is(err, os.ErrNotExist):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrVideoUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	writeJSON(w, logger, statusFor(err), dto.ErrorResponse{Error: err.Error()})
}

// decodeCommand reads an optional JSON body; an empty body is a zero request.
func decodeCommand(r *http.Request) (dto.CommandRequest, error) {
	var req dto.CommandRequest
	err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
