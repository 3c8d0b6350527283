package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Server Error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondData writes a successful envelope carrying data and an optional message.
func RespondData(w http.ResponseWriter, logger *slog.Logger, status int, message string, data any) {
	RespondJSON(w, logger, status, Envelope{Success: true, Message: message, Data: data})
}

// RespondList writes a successful envelope for a collection, including its size.
func RespondList[T any](w http.ResponseWriter, logger *slog.Logger, status int, items []T) {
	count := len(items)
	RespondJSON(w, logger, status, Envelope{Success: true, Count: &count, Data: items})
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, Envelope{Success: false, Message: message})
}
