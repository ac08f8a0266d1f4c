package authhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"groundops/internal/domain/auth"
	"groundops/internal/domain/metrics"
	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
	"groundops/internal/transport/http/api"
	"groundops/internal/transport/http/middleware"
	"groundops/internal/transport/http/shared"
)

type Handler struct {
	Auth *auth.Service
	Repo *records.Repository
}

func NewHandler(svc *auth.Service, repo *records.Repository) *Handler {
	return &Handler{Auth: svc, Repo: repo}
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

// RegisterRoutes mounts the identity endpoints. loginLimit wraps the login
// route only; nil leaves it unthrottled.
func (h *Handler) RegisterRoutes(r chi.Router, loginLimit func(http.Handler) http.Handler) {
	if loginLimit == nil {
		r.Post("/auth/login", h.HandleLogin)
	} else {
		r.With(loginLimit).Post("/auth/login", h.HandleLogin)
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/auth/logout", h.HandleLogout)
		r.Post("/auth/mfa/setup", h.HandleMFASetup)
		r.Post("/auth/mfa/enable", h.HandleMFAEnable)
		r.Get("/me", h.HandleMe)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload auth.LoginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.FailErr(w, r, err)
		return
	}
	result, err := h.Auth.Login(r.Context(), payload)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Auth.Logout(r.Context(), user); err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"loggedOut": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	setup, err := h.Auth.SetupMFA(r.Context(), user)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, setup, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	var payload mfaCodeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.FailErr(w, r, err)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	if err := h.Auth.EnableMFA(r.Context(), user, payload.Code); err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"mfaEnabled": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	snap := h.Repo.Snapshot(r.Context())
	emp, ok := snap.Employee(user.EmployeeID)
	if !ok {
		api.FailErr(w, r, apperror.Auth(apperror.ReasonUnauthenticated))
		return
	}
	emp.CurrentScore = metrics.LatestScore(emp.ID, snap.Evaluations, emp.OverallScore)
	api.Success(w, map[string]any{
		"user":     user,
		"employee": emp,
	}, middleware.GetRequestID(r.Context()))
}
