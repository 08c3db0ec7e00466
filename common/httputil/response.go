// Package httputil writes JSON responses in the DDPay API envelope shape.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Envelope is the {code,msg,data} body every DDPay endpoint answers with.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code and data.
// Encoding failures are logged; the status has already been sent.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteEnvelope writes an envelope with the given HTTP status and code.
func WriteEnvelope(w http.ResponseWriter, status, code int, msg string, data any) {
	WriteJSON(w, status, Envelope{Code: code, Msg: strings.TrimSpace(msg), Data: data})
}

// WriteError writes an envelope whose code mirrors the HTTP status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteEnvelope(w, status, status, message, nil)
}
