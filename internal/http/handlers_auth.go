package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/remote"
	"cashflow/internal/sheets"
)

const minPasswordLen = 6

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	var req remote.RegisterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, MsgInvalidBody)
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		writeError(w, MsgIncomplete)
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, "Format email tidak valid")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, "Password minimal 6 karakter")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to hash password", applog.FieldError, err)
		writeError(w, MsgServerError)
		return
	}

	err = s.users.CreateUser(ctx, sheets.StoredUser{Name: name, Email: email, PasswordHash: string(hash)})
	switch {
	case errors.Is(err, sheets.ErrUserExists):
		writeError(w, MsgEmailTaken)
	case err != nil:
		s.events.LogError(ctx, "Failed to create user", err, applog.ComponentHTTP, applog.OpRegister, applog.NewFields().WithTransaction(0, email, "", 0, ""))
		writeError(w, MsgServerError)
	default:
		logger.InfoContext(ctx, "User registered", applog.FieldOwner, email)
		writeSuccess(w, nil)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	var req remote.LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, MsgInvalidBody)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, MsgIncomplete)
		return
	}

	u, err := s.users.FindUser(ctx, email)
	if errors.Is(err, sheets.ErrUserNotFound) {
		// same answer as a wrong password
		writeError(w, MsgBadCredentials)
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to look up user", applog.FieldOperation, applog.OpLogin, applog.FieldError, err)
		writeError(w, MsgServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		logger.WarnContext(ctx, "Wrong password", applog.FieldOwner, u.Email)
		writeError(w, MsgBadCredentials)
		return
	}

	logger.InfoContext(ctx, "User logged in", applog.FieldOwner, u.Email)
	writeSuccess(w, core.User{Name: u.Name, Email: u.Email})
}
