package records

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row types mirror the snake_case storage columns. Nullable columns are
// pointers here and are defaulted in one place on the way into the domain.

type employeeRow struct {
	ID             string
	Name           string
	Department     string
	JobTitle       *string
	Email          string
	Username       string
	Active         bool
	HireDate       *time.Time
	ProfilePicture *string
	Role           string
	OverallScore   *int32
}

func (r employeeRow) toDomain() Employee {
	role, ok := ParseRole(r.Role)
	if !ok {
		// unknown roles stay as-is so the visibility filter can flag them
		role = Role(r.Role)
	}
	score := DefaultScore
	if r.OverallScore != nil {
		score = int(*r.OverallScore)
	}
	return Employee{
		ID:             r.ID,
		Name:           r.Name,
		Department:     r.Department,
		JobTitle:       deref(r.JobTitle),
		Email:          r.Email,
		Username:       r.Username,
		Active:         r.Active,
		HireDate:       r.HireDate,
		ProfilePicture: deref(r.ProfilePicture),
		Role:           role,
		OverallScore:   score,
		CurrentScore:   score,
	}
}

type evaluationRow struct {
	ID         string
	EmployeeID string
	Year       int32
	Date       time.Time
	Score      int32
	Summary    *string
	Rating     string
}

func (r evaluationRow) toDomain() Evaluation {
	rating, ok := ParseRating(r.Rating)
	if !ok {
		rating = Rating(r.Rating)
	}
	return Evaluation{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Year:       int(r.Year),
		Date:       r.Date,
		Score:      int(r.Score),
		Summary:    deref(r.Summary),
		Rating:     rating,
	}
}

type workIssueRow struct {
	ID         string
	EmployeeID string
	Date       time.Time
	AuthorID   string
	AuthorName string
	Title      string
	Text       string
}

func (r workIssueRow) toDomain() ManagerNote {
	return ManagerNote(r)
}

type attendanceRow struct {
	ID         string
	EmployeeID string
	Date       time.Time
	Type       string
	Duration   string
	Comment    *string
}

func (r attendanceRow) toDomain() (LeaveRecord, error) {
	duration, err := decimal.NewFromString(r.Duration)
	if err != nil {
		return LeaveRecord{}, err
	}
	leaveType, ok := ParseLeaveType(r.Type)
	if !ok {
		leaveType = LeaveType(r.Type)
	}
	return LeaveRecord{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Date:       r.Date,
		Type:       leaveType,
		Duration:   duration,
		Comment:    deref(r.Comment),
	}, nil
}

type behaviourRow struct {
	ID          string
	EmployeeID  string
	Date        time.Time
	Description string
	Status      string
	ActionPlan  *string
}

func (r behaviourRow) toDomain() Observation {
	status, ok := ParseObservationStatus(r.Status)
	if !ok {
		status = ObservationStatus(r.Status)
	}
	return Observation{
		ID:          r.ID,
		EmployeeID:  r.EmployeeID,
		Date:        r.Date,
		Description: r.Description,
		Status:      status,
		ActionPlan:  deref(r.ActionPlan),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
