package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kofiasare/sankofa/internal/log"
)

// errorPayload is the JSON error envelope. The SSE "error" event carries
// the same shape.
type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON encodes data into a buffer before touching the response, so
// an encoding failure can still become a clean 500 instead of a
// truncated body.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are routine.
		logger.Debug("writing response body", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, errorPayload{Error: message, Code: code}, logger)
}
