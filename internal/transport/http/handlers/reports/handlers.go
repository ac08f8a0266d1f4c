package reportshandler

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"groundops/internal/domain/access"
	"groundops/internal/domain/auth"
	"groundops/internal/domain/records"
	"groundops/internal/domain/report"
	"groundops/internal/platform/apperror"
	"groundops/internal/platform/logging"
	"groundops/internal/transport/http/api"
	"groundops/internal/transport/http/middleware"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Handler struct {
	Repo  *records.Repository
	Perms middleware.PermissionStore
	Now   func() time.Time
}

func NewHandler(repo *records.Repository, perms middleware.PermissionStore) *Handler {
	return &Handler{Repo: repo, Perms: perms, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/employees/{employeeID}/report.pdf", h.handleEmployeeReport)
}

func (h *Handler) handleEmployeeReport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	snap := h.Repo.Snapshot(r.Context())
	emp, ok := snap.Employee(chi.URLParam(r, "employeeID"))
	if !ok || !access.CanView(user.Actor(), emp) {
		api.FailErr(w, r, apperror.NotFound("employee not found"))
		return
	}

	var buf bytes.Buffer
	if err := report.EmployeePDF(&buf, report.FromSnapshot(emp, snap, h.Now())); err != nil {
		logging.FromContext(r.Context()).Error("report render failed", zap.String("employee_id", emp.ID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, reportFilename(emp)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func reportFilename(emp records.Employee) string {
	name := unsafeFilename.ReplaceAllString(emp.Name, "_")
	if name == "" || name == "_" {
		name = emp.ID
	}
	return "report_" + name
}
