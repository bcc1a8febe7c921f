package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"cashflow/internal/remote"
)

// Messages of the error envelope.
const (
	MsgInvalidBody    = "invalid request body"
	MsgUnknownAction  = "Aksi tidak dikenal"
	MsgMissingEmail   = "Email wajib diisi"
	MsgIncomplete     = "Data tidak lengkap"
	MsgEmailTaken     = "Email sudah terdaftar"
	MsgBadCredentials = "Email atau password salah"
	MsgServerError    = "Terjadi kesalahan pada server"
)

func writeSuccess(w http.ResponseWriter, data any) {
	env := map[string]any{"status": remote.StatusSuccess}
	if data != nil {
		env["data"] = data
	}
	writeJSON(w, env)
}

func writeError(w http.ResponseWriter, message string) {
	writeJSON(w, remote.Envelope{Status: remote.StatusError, Message: message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
