package mutation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"groundops/internal/domain/access"
	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
)

// AccountWriter maintains the login account that belongs to an employee.
type AccountWriter interface {
	SetPassword(ctx context.Context, email, password string) error
	ChangeEmail(ctx context.Context, oldEmail, newEmail string) error
}

// Service validates and applies writes. Every successful write is followed
// by a repository reload so the next read observes it.
type Service struct {
	store    records.Store
	repo     *records.Repository
	accounts AccountWriter
	logger   *zap.Logger
	validate *validator.Validate

	Now   func() time.Time
	NewID func() string
}

func NewService(repo *records.Repository, accounts AccountWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    repo.Store(),
		repo:     repo,
		accounts: accounts,
		logger:   logger.Named("mutation"),
		validate: newValidate(),
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    func() string { return uuid.NewString() },
	}
}

func (s *Service) today() time.Time {
	now := s.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) CreateEmployee(ctx context.Context, actor access.Actor, in EmployeeInput) (records.Employee, error) {
	if actor.Role != records.RoleAdmin {
		return records.Employee{}, apperror.Forbidden("only admins can create employees")
	}
	snap := s.repo.Snapshot(ctx)
	emp, err := s.buildEmployee(snap, in, nil)
	if err != nil {
		return records.Employee{}, err
	}
	emp.ID = s.NewID()

	if err := s.store.InsertEmployee(ctx, emp); err != nil {
		return records.Employee{}, s.writeError(err, "employee")
	}
	if in.Password != "" && s.accounts != nil {
		if err := s.accounts.SetPassword(ctx, emp.Email, in.Password); err != nil {
			s.repo.Reload(ctx)
			return records.Employee{}, apperror.Persistence(err, "employee saved but login account could not be created")
		}
	}
	s.repo.Reload(ctx)
	s.logger.Info("employee created", zap.String("employee_id", emp.ID), zap.String("actor_id", actor.ID))
	return emp, nil
}

// UpdateEmployee replaces the full record. Concurrent edits are last write wins.
func (s *Service) UpdateEmployee(ctx context.Context, actor access.Actor, id string, in EmployeeInput) (records.Employee, error) {
	if actor.Role != records.RoleAdmin {
		return records.Employee{}, apperror.Forbidden("only admins can update employees")
	}
	snap := s.repo.Snapshot(ctx)
	existing, ok := snap.Employee(id)
	if !ok {
		return records.Employee{}, apperror.NotFound("employee not found")
	}
	emp, err := s.buildEmployee(snap, in, &existing)
	if err != nil {
		return records.Employee{}, err
	}
	emp.ID = existing.ID

	if err := s.store.UpdateEmployee(ctx, emp); err != nil {
		return records.Employee{}, s.writeError(err, "employee")
	}
	if s.accounts != nil {
		if !strings.EqualFold(existing.Email, emp.Email) {
			if err := s.accounts.ChangeEmail(ctx, existing.Email, emp.Email); err != nil {
				s.repo.Reload(ctx)
				return records.Employee{}, apperror.Persistence(err, "employee saved but login account email could not be updated")
			}
		}
		if in.Password != "" {
			if err := s.accounts.SetPassword(ctx, emp.Email, in.Password); err != nil {
				s.repo.Reload(ctx)
				return records.Employee{}, apperror.Persistence(err, "employee saved but password could not be updated")
			}
		}
	}
	s.repo.Reload(ctx)
	s.logger.Info("employee updated", zap.String("employee_id", emp.ID), zap.String("actor_id", actor.ID))
	return emp, nil
}

// DeleteEmployee removes the profile only; child records are left in place.
func (s *Service) DeleteEmployee(ctx context.Context, actor access.Actor, id string) error {
	if actor.Role != records.RoleAdmin {
		return apperror.Forbidden("only admins can delete employees")
	}
	if _, ok := s.repo.Snapshot(ctx).Employee(id); !ok {
		return apperror.NotFound("employee not found")
	}
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return s.writeError(err, "employee")
	}
	s.repo.Reload(ctx)
	s.logger.Info("employee deleted", zap.String("employee_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func (s *Service) buildEmployee(snap *records.Snapshot, in EmployeeInput, existing *records.Employee) (records.Employee, error) {
	trim(&in.Name, &in.Department, &in.JobTitle, &in.Email, &in.Username, &in.HireDate, &in.Role)
	problems := structIssues(s.validate, in)

	role, ok := records.ParseRole(in.Role)
	if in.Role != "" && !ok {
		problems.add("role", "must be one of admin, manager, employee")
	}
	if in.Department != "" && !snap.HasDepartment(in.Department) {
		problems.add("department", "must reference an existing department")
	}
	for _, other := range snap.Employees {
		if existing != nil && other.ID == existing.ID {
			continue
		}
		if in.Email != "" && strings.EqualFold(other.Email, in.Email) && !problems.has("email") {
			problems.add("email", "is already in use")
		}
		if in.Username != "" && strings.EqualFold(other.Username, in.Username) && !problems.has("username") {
			problems.add("username", "is already in use")
		}
	}
	if err := problems.err("invalid employee"); err != nil {
		return records.Employee{}, err
	}

	emp := records.Employee{
		Name:           in.Name,
		Department:     in.Department,
		JobTitle:       in.JobTitle,
		Email:          in.Email,
		Username:       in.Username,
		ProfilePicture: in.ProfilePicture,
		Role:           role,
		Active:         true,
		OverallScore:   records.DefaultScore,
	}
	if existing != nil {
		emp.Active = existing.Active
		emp.HireDate = existing.HireDate
		emp.OverallScore = existing.OverallScore
	}
	if in.Active != nil {
		emp.Active = *in.Active
	}
	if in.OverallScore != nil {
		emp.OverallScore = *in.OverallScore
	}
	if in.HireDate != "" {
		hired, _ := time.Parse(dateLayout, in.HireDate)
		emp.HireDate = &hired
	} else if emp.HireDate == nil {
		today := s.today()
		emp.HireDate = &today
	}
	emp.CurrentScore = emp.OverallScore
	return emp, nil
}

func (s *Service) CreateDepartment(ctx context.Context, actor access.Actor, in DepartmentInput) (records.Department, error) {
	if actor.Role != records.RoleAdmin {
		return records.Department{}, apperror.Forbidden("only admins can manage departments")
	}
	trim(&in.Name)
	problems := structIssues(s.validate, in)
	if in.Name != "" && s.repo.Snapshot(ctx).HasDepartment(in.Name) {
		problems.add("name", "department already exists")
	}
	if err := problems.err("invalid department"); err != nil {
		return records.Department{}, err
	}
	if err := s.store.InsertDepartment(ctx, in.Name); err != nil {
		return records.Department{}, s.writeError(err, "department")
	}
	s.repo.Reload(ctx)
	return records.Department{Name: in.Name}, nil
}

// RenameDepartment renames the department and moves its employees with it.
// The store applies both in one transaction; a failure leaves neither applied.
func (s *Service) RenameDepartment(ctx context.Context, actor access.Actor, oldName string, in DepartmentInput) (records.Department, error) {
	if actor.Role != records.RoleAdmin {
		return records.Department{}, apperror.Forbidden("only admins can manage departments")
	}
	trim(&in.Name)
	snap := s.repo.Snapshot(ctx)
	if !snap.HasDepartment(oldName) {
		return records.Department{}, apperror.NotFound("department not found")
	}
	problems := structIssues(s.validate, in)
	if in.Name != "" && in.Name != oldName && snap.HasDepartment(in.Name) {
		problems.add("name", "department already exists")
	}
	if err := problems.err("invalid department"); err != nil {
		return records.Department{}, err
	}
	if in.Name == oldName {
		return records.Department{Name: oldName}, nil
	}

	moved, err := s.store.RenameDepartment(ctx, oldName, in.Name)
	if err != nil {
		s.repo.Reload(ctx)
		if errors.Is(err, records.ErrDuplicate) || errors.Is(err, records.ErrNotFound) {
			return records.Department{}, s.writeError(err, "department")
		}
		return records.Department{}, apperror.Persistence(err, "department rename failed; no changes were applied")
	}
	s.repo.Reload(ctx)
	s.logger.Info("department renamed",
		zap.String("from", oldName), zap.String("to", in.Name), zap.Int64("employees_moved", moved))
	return records.Department{Name: in.Name}, nil
}

// DeleteDepartment refuses while any employee still references the name.
// The store enforces the same rule when it deletes, so a stale or partially
// loaded snapshot cannot let a referenced department go.
func (s *Service) DeleteDepartment(ctx context.Context, actor access.Actor, name string) error {
	if actor.Role != records.RoleAdmin {
		return apperror.Forbidden("only admins can manage departments")
	}
	snap := s.repo.Reload(ctx)
	if s.repo.Failed(records.CollectionEmployees) {
		return apperror.Persistence(nil, "employee records are unavailable; department delete refused")
	}
	if !snap.HasDepartment(name) {
		return apperror.NotFound("department not found")
	}
	for _, e := range snap.Employees {
		if e.Department == name {
			return errDepartmentInUse()
		}
	}
	if err := s.store.DeleteDepartment(ctx, name); err != nil {
		s.repo.Reload(ctx)
		if errors.Is(err, records.ErrInUse) {
			return errDepartmentInUse()
		}
		return s.writeError(err, "department")
	}
	s.repo.Reload(ctx)
	return nil
}

func errDepartmentInUse() error {
	return apperror.Conflict("department_in_use", "department still has employees; reassign them first")
}

// managedEmployee resolves the owning employee for a child record. A missing
// employee is reported as a field issue.
func (s *Service) managedEmployee(snap *records.Snapshot, employeeID string, problems *issues) (records.Employee, bool) {
	if employeeID == "" {
		return records.Employee{}, false
	}
	emp, ok := snap.Employee(employeeID)
	if !ok {
		if !problems.has("employeeId") {
			problems.add("employeeId", "must reference an existing employee")
		}
		return records.Employee{}, false
	}
	return emp, true
}

func (s *Service) authorizeChild(actor access.Actor, emp records.Employee) error {
	if !access.CanManage(actor, emp) {
		return apperror.Forbidden("not allowed to add records for this employee")
	}
	return nil
}

func (s *Service) CreateEvaluation(ctx context.Context, actor access.Actor, in EvaluationInput) (records.Evaluation, error) {
	trim(&in.EmployeeID, &in.Date, &in.Summary, &in.Rating)
	snap := s.repo.Snapshot(ctx)
	problems := structIssues(s.validate, in)
	emp, found := s.managedEmployee(snap, in.EmployeeID, &problems)
	rating, ok := records.ParseRating(in.Rating)
	if in.Rating != "" && !ok {
		problems.add("rating", "must be one of Exceeds, Meets, Below")
	}
	if err := problems.err("invalid evaluation"); err != nil {
		return records.Evaluation{}, err
	}
	if found {
		if err := s.authorizeChild(actor, emp); err != nil {
			return records.Evaluation{}, err
		}
	}

	ev := records.Evaluation{
		ID:         s.NewID(),
		EmployeeID: in.EmployeeID,
		Year:       *in.Year,
		Date:       s.dateOrToday(in.Date),
		Score:      *in.Score,
		Summary:    in.Summary,
		Rating:     rating,
	}
	if err := s.store.InsertEvaluation(ctx, ev); err != nil {
		return records.Evaluation{}, s.writeError(err, "evaluation")
	}
	s.repo.Reload(ctx)
	return ev, nil
}

func (s *Service) CreateNote(ctx context.Context, actor access.Actor, in NoteInput) (records.ManagerNote, error) {
	trim(&in.EmployeeID, &in.Date, &in.Title, &in.Text)
	snap := s.repo.Snapshot(ctx)
	problems := structIssues(s.validate, in)
	emp, found := s.managedEmployee(snap, in.EmployeeID, &problems)
	if err := problems.err("invalid note"); err != nil {
		return records.ManagerNote{}, err
	}
	if found {
		if err := s.authorizeChild(actor, emp); err != nil {
			return records.ManagerNote{}, err
		}
	}
	note := records.ManagerNote{
		ID:         s.NewID(),
		EmployeeID: in.EmployeeID,
		Date:       s.dateOrToday(in.Date),
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Title:      in.Title,
		Text:       in.Text,
	}
	if err := s.store.InsertNote(ctx, note); err != nil {
		return records.ManagerNote{}, s.writeError(err, "note")
	}
	s.repo.Reload(ctx)
	return note, nil
}

func (s *Service) CreateLeave(ctx context.Context, actor access.Actor, in LeaveInput) (records.LeaveRecord, error) {
	trim(&in.EmployeeID, &in.Date, &in.Type, &in.Comment)
	snap := s.repo.Snapshot(ctx)
	problems := structIssues(s.validate, in)
	emp, found := s.managedEmployee(snap, in.EmployeeID, &problems)
	leaveType, ok := records.ParseLeaveType(in.Type)
	if in.Type != "" && !ok {
		problems.add("type", "must be one of vacation, sick, absence")
	}
	if in.Duration != nil && !validDuration(*in.Duration) {
		problems.add("duration", "must be at least 0.5 and a multiple of 0.5 days")
	}
	if err := problems.err("invalid leave record"); err != nil {
		return records.LeaveRecord{}, err
	}
	if found {
		if err := s.authorizeChild(actor, emp); err != nil {
			return records.LeaveRecord{}, err
		}
	}

	leave := records.LeaveRecord{
		ID:         s.NewID(),
		EmployeeID: in.EmployeeID,
		Date:       s.dateOrToday(in.Date),
		Type:       leaveType,
		Duration:   *in.Duration,
		Comment:    in.Comment,
	}
	if err := s.store.InsertLeave(ctx, leave); err != nil {
		return records.LeaveRecord{}, s.writeError(err, "leave record")
	}
	s.repo.Reload(ctx)
	return leave, nil
}

func (s *Service) CreateObservation(ctx context.Context, actor access.Actor, in ObservationInput) (records.Observation, error) {
	trim(&in.EmployeeID, &in.Date, &in.Description, &in.Status, &in.ActionPlan)
	snap := s.repo.Snapshot(ctx)
	problems := structIssues(s.validate, in)
	emp, found := s.managedEmployee(snap, in.EmployeeID, &problems)
	status, ok := records.ParseObservationStatus(in.Status)
	if in.Status != "" && !ok {
		problems.add("status", "must be one of open, closed")
	}
	if err := problems.err("invalid observation"); err != nil {
		return records.Observation{}, err
	}
	if found {
		if err := s.authorizeChild(actor, emp); err != nil {
			return records.Observation{}, err
		}
	}

	obs := records.Observation{
		ID:          s.NewID(),
		EmployeeID:  in.EmployeeID,
		Date:        s.dateOrToday(in.Date),
		Description: in.Description,
		Status:      status,
		ActionPlan:  in.ActionPlan,
	}
	if err := s.store.InsertObservation(ctx, obs); err != nil {
		return records.Observation{}, s.writeError(err, "observation")
	}
	s.repo.Reload(ctx)
	return obs, nil
}

func (s *Service) dateOrToday(raw string) time.Time {
	if raw == "" {
		return s.today()
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return s.today()
	}
	return parsed
}

func (s *Service) writeError(err error, entity string) error {
	switch {
	case errors.Is(err, records.ErrDuplicate):
		return apperror.Invalid(entity+" already exists", apperror.FieldIssue{Field: "", Reason: "conflicts with an existing record"})
	case errors.Is(err, records.ErrNotFound):
		return apperror.NotFound(entity + " not found")
	default:
		s.logger.Error("record store write failed", zap.String("entity", entity), zap.Error(err))
		return apperror.Persistence(err, "could not save "+entity)
	}
}
