package records

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Department     string     `json:"department"`
	JobTitle       string     `json:"jobTitle"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	Active         bool       `json:"active"`
	HireDate       *time.Time `json:"hireDate,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	Role           Role       `json:"role"`
	// OverallScore is the stored fallback used until the employee has an evaluation.
	OverallScore int `json:"overallScore"`
	// CurrentScore is derived on read from the latest evaluation.
	CurrentScore int `json:"currentScore"`
}

type Department struct {
	Name string `json:"name"`
}

type Evaluation struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Year       int       `json:"year"`
	Date       time.Time `json:"date"`
	Score      int       `json:"score"`
	Summary    string    `json:"summary"`
	Rating     Rating    `json:"rating"`
}

// ManagerNote is stored as a "work issue".
type ManagerNote struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Date       time.Time `json:"date"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
}

// LeaveRecord is stored as an attendance log. Duration is in days.
type LeaveRecord struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	Date       time.Time       `json:"date"`
	Type       LeaveType       `json:"type"`
	Duration   decimal.Decimal `json:"duration"`
	Comment    string          `json:"comment,omitempty"`
}

// Observation is stored as a behaviour issue.
type Observation struct {
	ID          string            `json:"id"`
	EmployeeID  string            `json:"employeeId"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Status      ObservationStatus `json:"status"`
	ActionPlan  string            `json:"actionPlan,omitempty"`
}
