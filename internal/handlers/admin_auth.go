package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/arjenou/5000React/internal/auth"
	"github.com/arjenou/5000React/internal/httpx"
	"github.com/arjenou/5000React/internal/metrics"
	"github.com/arjenou/5000React/internal/middleware"
	"github.com/arjenou/5000React/internal/transport"
	"github.com/arjenou/5000React/internal/users"
)

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AdminLoginResponse struct {
	Token string          `json:"token"`
	User  users.AdminUser `json:"user"`
}

type AdminVerifyResponse struct {
	User users.AdminUser `json:"user"`
}

func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req AdminLoginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin login: validation error")
		transport.WriteError(w, http.StatusBadRequest, "username and password are required",
			httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	token, user, err := s.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordLogin("invalid")
			log.Warn("admin login: invalid credentials", slog.String("username", req.Username))
			transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		metrics.RecordLogin("error")
		log.Error("admin login: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	metrics.RecordLogin("success")
	log.Info("admin login: ok", slog.String("username", user.Username))
	transport.WriteMessage(w, http.StatusOK, AdminLoginResponse{Token: token, User: user}, "login successful")
}

func (s *Server) AdminVerify(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.AdminUserFromContext(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	transport.WriteData(w, http.StatusOK, AdminVerifyResponse{User: user})
}
