package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	applog "cashflow/internal/log"
	"cashflow/internal/remote"
)

// handleAPI dispatches on the action: from the query string for GET, from
// the JSON body for POST. The body is read whatever its content type, as
// browsers post it as text/plain to skip the CORS preflight.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/exec" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		switch q.Get("action") {
		case remote.ActionGetTransactions:
			s.handleList(w, r, q.Get("email"))
		default:
			writeError(w, MsgUnknownAction)
		}
	case http.MethodPost:
		body, action, err := readAction(r)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable request body", applog.FieldError, err)
			writeError(w, MsgInvalidBody)
			return
		}
		switch action {
		case remote.ActionLogin:
			s.handleLogin(w, r, body)
		case remote.ActionRegister:
			s.handleRegister(w, r, body)
		case remote.ActionAddTransaction:
			s.handleUpsert(w, r, body)
		case remote.ActionDelete:
			s.handleDelete(w, r, body)
		case remote.ActionGetTransactions:
			var req struct {
				Email string `json:"email"`
			}
			_ = json.Unmarshal(body, &req)
			s.handleList(w, r, req.Email)
		default:
			writeError(w, MsgUnknownAction)
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// readAction returns the raw body and its action field.
func readAction(r *http.Request) ([]byte, string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > maxBodyBytes {
		return nil, "", errors.New("request body too large")
	}
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, "", err
	}
	return body, strings.TrimSpace(head.Action), nil
}
