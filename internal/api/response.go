package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/logger"
	"github.com/harunnryd/sift/internal/transcript"
)

const maxBodyBytes = 10 << 20

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := siftErrors.HTTPStatus(err)

	detail := err.Error()
	switch {
	case errors.Is(err, transcript.ErrUnavailable):
		detail = "Transcript not available for this video"
	case status == http.StatusInternalServerError:
		detail = "internal server error"
	}

	log := logger.From(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Warn("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Detail: detail})
}

func decodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return siftErrors.InvalidInput("request body is required")
		}
		return siftErrors.InvalidInput("malformed request body: " + err.Error())
	}
	return nil
}
