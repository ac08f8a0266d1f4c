package corehandler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"groundops/internal/domain/access"
	"groundops/internal/domain/auth"
	"groundops/internal/domain/metrics"
	"groundops/internal/domain/mutation"
	"groundops/internal/domain/records"
	"groundops/internal/domain/report"
	"groundops/internal/platform/apperror"
	"groundops/internal/transport/http/api"
	"groundops/internal/transport/http/middleware"
	"groundops/internal/transport/http/shared"
)

const (
	defaultPageSize = 500
	maxPageSize     = 2000
)

type Handler struct {
	Repo      *records.Repository
	Mutations *mutation.Service
	Perms     middleware.PermissionStore
}

func NewHandler(repo *records.Repository, mutations *mutation.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Repo: repo, Mutations: mutations, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	can := func(permission string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(permission, h.Perms)
	}

	r.With(can(auth.PermEmployeesRead)).Get("/employees", h.handleListEmployees)
	r.With(can(auth.PermEmployeesWrite)).Post("/employees", h.handleCreateEmployee)
	r.With(can(auth.PermEmployeesRead)).Get("/employees/{employeeID}", h.handleGetEmployee)
	r.With(can(auth.PermEmployeesWrite)).Put("/employees/{employeeID}", h.handleUpdateEmployee)
	r.With(can(auth.PermEmployeesWrite)).Delete("/employees/{employeeID}", h.handleDeleteEmployee)

	r.With(can(auth.PermRecordsWrite)).Post("/employees/{employeeID}/evaluations", h.handleCreateEvaluation)
	r.With(can(auth.PermRecordsWrite)).Post("/employees/{employeeID}/notes", h.handleCreateNote)
	r.With(can(auth.PermRecordsWrite)).Post("/employees/{employeeID}/leaves", h.handleCreateLeave)
	r.With(can(auth.PermRecordsWrite)).Post("/employees/{employeeID}/observations", h.handleCreateObservation)

	r.With(can(auth.PermDepartmentsRead)).Get("/departments", h.handleListDepartments)
	r.With(can(auth.PermDepartmentsWrite)).Post("/departments", h.handleCreateDepartment)
	r.With(can(auth.PermDepartmentsWrite)).Put("/departments/{name}", h.handleRenameDepartment)
	r.With(can(auth.PermDepartmentsWrite)).Delete("/departments/{name}", h.handleDeleteDepartment)
}

func currentActor(r *http.Request) access.Actor {
	user, _ := middleware.GetUser(r.Context())
	return user.Actor()
}

func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	snap := h.Repo.Snapshot(r.Context())
	employees := metrics.ApplyCurrentScores(snap.Employees, snap.Evaluations)
	visible, err := access.Visible(currentActor(r), employees)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	visible = access.Search(visible, r.URL.Query().Get("q"))
	api.Success(w, shared.Page(w, visible, shared.ParsePagination(r, defaultPageSize, maxPageSize)), requestID(r))
}

type employeeDetail struct {
	records.Employee
	Band         records.Rating                        `json:"band"`
	CanManage    bool                                  `json:"canManage"`
	Evaluations  []records.Evaluation                  `json:"evaluations"`
	Notes        []records.ManagerNote                 `json:"notes"`
	Leaves       []records.LeaveRecord                 `json:"leaves"`
	Observations []records.Observation                 `json:"observations"`
	LeaveTotals  map[records.LeaveType]decimal.Decimal `json:"leaveTotals"`
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	actor := currentActor(r)
	snap := h.Repo.Snapshot(r.Context())
	emp, ok := snap.Employee(chi.URLParam(r, "employeeID"))
	// hidden employees read as missing so ids cannot be enumerated
	if !ok || !access.CanView(actor, emp) {
		api.FailErr(w, r, apperror.NotFound("employee not found"))
		return
	}

	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1000 || parsed > 9999 {
			api.FailErr(w, r, apperror.Invalid("invalid query", apperror.FieldIssue{Field: "year", Reason: "must be a four digit year"}))
			return
		}
		year = parsed
	}

	data := report.FromSnapshot(emp, snap, time.Now())
	api.Success(w, employeeDetail{
		Employee:     data.Employee,
		Band:         metrics.Band(data.Employee.CurrentScore),
		CanManage:    access.CanManage(actor, emp),
		Evaluations:  data.Evaluations,
		Notes:        data.Notes,
		Leaves:       data.Leaves,
		Observations: data.Observations,
		LeaveTotals:  metrics.LeaveTotals(data.Leaves, year),
	}, requestID(r))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var in mutation.EmployeeInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	emp, err := h.Mutations.CreateEmployee(r.Context(), currentActor(r), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Created(w, emp, requestID(r))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var in mutation.EmployeeInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	emp, err := h.Mutations.UpdateEmployee(r.Context(), currentActor(r), chi.URLParam(r, "employeeID"), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, emp, requestID(r))
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	if err := h.Mutations.DeleteEmployee(r.Context(), currentActor(r), id); err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, map[string]string{"id": id}, requestID(r))
}

func (h *Handler) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var in mutation.EvaluationInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	in.EmployeeID = chi.URLParam(r, "employeeID")
	created, err := h.Mutations.CreateEvaluation(r.Context(), currentActor(r), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Created(w, created, requestID(r))
}

func (h *Handler) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var in mutation.NoteInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	in.EmployeeID = chi.URLParam(r, "employeeID")
	created, err := h.Mutations.CreateNote(r.Context(), currentActor(r), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Created(w, created, requestID(r))
}

func (h *Handler) handleCreateLeave(w http.ResponseWriter, r *http.Request) {
	var in mutation.LeaveInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	in.EmployeeID = chi.URLParam(r, "employeeID")
	created, err := h.Mutations.CreateLeave(r.Context(), currentActor(r), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Created(w, created, requestID(r))
}

func (h *Handler) handleCreateObservation(w http.ResponseWriter, r *http.Request) {
	var in mutation.ObservationInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	in.EmployeeID = chi.URLParam(r, "employeeID")
	created, err := h.Mutations.CreateObservation(r.Context(), currentActor(r), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Created(w, created, requestID(r))
}

type departmentView struct {
	Name      string `json:"name"`
	Employees int    `json:"employees"`
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	snap := h.Repo.Snapshot(r.Context())
	counts := map[string]int{}
	for _, e := range snap.Employees {
		counts[e.Department]++
	}
	out := make([]departmentView, 0, len(snap.Departments))
	for _, d := range snap.Departments {
		out = append(out, departmentView{Name: d.Name, Employees: counts[d.Name]})
	}
	api.Success(w, out, requestID(r))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var in mutation.DepartmentInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	dept, err := h.Mutations.CreateDepartment(r.Context(), currentActor(r), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Created(w, dept, requestID(r))
}

func (h *Handler) handleRenameDepartment(w http.ResponseWriter, r *http.Request) {
	var in mutation.DepartmentInput
	if err := shared.DecodeJSON(r, &in); err != nil {
		api.FailErr(w, r, err)
		return
	}
	dept, err := h.Mutations.RenameDepartment(r.Context(), currentActor(r), departmentParam(r), in)
	if err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, dept, requestID(r))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	name := departmentParam(r)
	if err := h.Mutations.DeleteDepartment(r.Context(), currentActor(r), name); err != nil {
		api.FailErr(w, r, err)
		return
	}
	api.Success(w, map[string]string{"name": name}, requestID(r))
}

// departmentParam decodes the {name} segment. chi hands back the escaped form
// when the path needed a RawPath (for example a name containing "/").
func departmentParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
