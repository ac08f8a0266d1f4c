package auth

import (
	"groundops/internal/domain/access"
	"groundops/internal/domain/records"
)

// UserContext is the authenticated actor attached to a request.
type UserContext struct {
	UserID     string `json:"userId"`
	EmployeeID string `json:"employeeId"`
	RoleName   string `json:"role"`
	Department string `json:"department"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	SessionID  string `json:"-"`
}

func (u UserContext) Actor() access.Actor {
	return access.Actor{
		ID:         u.EmployeeID,
		Name:       u.Name,
		Role:       records.Role(u.RoleName),
		Department: u.Department,
	}
}

func userContextFor(userID, sessionID string, emp records.Employee) UserContext {
	return UserContext{
		UserID:     userID,
		EmployeeID: emp.ID,
		RoleName:   string(emp.Role),
		Department: emp.Department,
		Name:       emp.Name,
		Email:      emp.Email,
		SessionID:  sessionID,
	}
}
