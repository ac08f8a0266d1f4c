package access

import (
	"fmt"
	"strings"

	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
)

// Actor is the identity an authorization decision is made for. ID is the
// actor's employee id.
type Actor struct {
	ID         string
	Name       string
	Role       records.Role
	Department string
}

// Visible returns the employees the actor may see, preserving input order.
// An unrecognised role yields an empty result and a Configuration error.
func Visible(actor Actor, employees []records.Employee) ([]records.Employee, error) {
	out := []records.Employee{}
	switch actor.Role {
	case records.RoleAdmin:
		out = append(out, employees...)
	case records.RoleManager:
		for _, e := range employees {
			if e.Department == actor.Department {
				out = append(out, e)
			}
		}
	case records.RoleEmployee:
		for _, e := range employees {
			if e.ID == actor.ID {
				out = append(out, e)
				break
			}
		}
	default:
		return []records.Employee{}, apperror.Configuration(fmt.Sprintf("unknown role %q", actor.Role))
	}
	return out, nil
}

// CanView reports whether the actor may read the employee's records.
func CanView(actor Actor, employee records.Employee) bool {
	switch actor.Role {
	case records.RoleAdmin:
		return true
	case records.RoleManager:
		return employee.Department == actor.Department
	case records.RoleEmployee:
		return employee.ID == actor.ID
	}
	return false
}

// CanManage reports whether the actor may add child records for the employee.
func CanManage(actor Actor, employee records.Employee) bool {
	switch actor.Role {
	case records.RoleAdmin:
		return true
	case records.RoleManager:
		return employee.Department == actor.Department
	}
	return false
}

// Search keeps employees whose name or department contains term, ignoring case.
func Search(employees []records.Employee, term string) []records.Employee {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return employees
	}
	out := []records.Employee{}
	for _, e := range employees {
		if strings.Contains(strings.ToLower(e.Name), term) || strings.Contains(strings.ToLower(e.Department), term) {
			out = append(out, e)
		}
	}
	return out
}
