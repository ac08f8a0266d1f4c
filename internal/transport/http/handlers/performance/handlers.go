package performancehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"groundops/internal/domain/access"
	"groundops/internal/domain/auth"
	"groundops/internal/domain/insight"
	"groundops/internal/domain/metrics"
	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
	"groundops/internal/transport/http/api"
	"groundops/internal/transport/http/middleware"
)

type Handler struct {
	Repo    *records.Repository
	Insight *insight.Service
	Perms   middleware.PermissionStore
}

func NewHandler(repo *records.Repository, insights *insight.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Repo: repo, Insight: insights, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermDashboardRead, h.Perms)).Get("/dashboard", h.handleDashboard)
	r.With(middleware.RequirePermission(auth.PermInsightGenerate, h.Perms)).Post("/employees/{employeeID}/insight", h.handleInsight)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	stats, err := metrics.Dashboard(user.Actor(), h.Repo.Snapshot(r.Context()))
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleInsight(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	snap := h.Repo.Snapshot(r.Context())
	emp, ok := snap.Employee(chi.URLParam(r, "employeeID"))
	if !ok || !access.CanView(user.Actor(), emp) {
		api.FailErr(w, r, apperror.NotFound("employee not found"))
		return
	}
	text, err := h.Insight.Generate(r.Context(), insight.BuildBundle(emp, snap))
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, map[string]string{"text": text}, middleware.GetRequestID(r.Context()))
}
