package mutation

import "github.com/shopspring/decimal"

const dateLayout = "2006-01-02"

type EmployeeInput struct {
	Name           string `json:"name" validate:"required,max=200"`
	Department     string `json:"department" validate:"required"`
	JobTitle       string `json:"jobTitle" validate:"max=200"`
	Email          string `json:"email" validate:"required,email,max=254"`
	Username       string `json:"username" validate:"required,max=100"`
	Password       string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Active         *bool  `json:"active"`
	HireDate       string `json:"hireDate" validate:"omitempty,datetime=2006-01-02"`
	ProfilePicture string `json:"profilePicture"`
	Role           string `json:"role" validate:"required"`
	OverallScore   *int   `json:"overallScore" validate:"omitempty,min=0,max=100"`
}

type DepartmentInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

type EvaluationInput struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Year       *int   `json:"year" validate:"required,min=1000,max=9999"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Score      *int   `json:"score" validate:"required,min=0,max=100"`
	Summary    string `json:"summary" validate:"max=4000"`
	Rating     string `json:"rating" validate:"required"`
}

// NoteInput carries no author; notes are always attributed to the acting user.
type NoteInput struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Title      string `json:"title" validate:"required,max=200"`
	Text       string `json:"text" validate:"required,max=8000"`
}

type LeaveInput struct {
	EmployeeID string           `json:"employeeId" validate:"required"`
	Date       string           `json:"date" validate:"required,datetime=2006-01-02"`
	Type       string           `json:"type" validate:"required"`
	Duration   *decimal.Decimal `json:"duration" validate:"required"`
	Comment    string           `json:"comment" validate:"max=2000"`
}

type ObservationInput struct {
	EmployeeID  string `json:"employeeId" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"required,max=4000"`
	Status      string `json:"status" validate:"required"`
	ActionPlan  string `json:"actionPlan" validate:"max=4000"`
}
