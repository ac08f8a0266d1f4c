package auth

import (
	"context"
	"fmt"

	"groundops/internal/domain/records"
)

const (
	PermEmployeesRead    = "employees.read"
	PermEmployeesWrite   = "employees.write"
	PermDepartmentsRead  = "departments.read"
	PermDepartmentsWrite = "departments.write"
	PermRecordsWrite     = "records.write"
	PermInsightGenerate  = "insight.generate"
	PermReportsRead      = "reports.read"
	PermDashboardRead    = "dashboard.read"
	PermSystemAdmin      = "admin.system"
)

var RolePermissions = map[records.Role][]string{
	records.RoleEmployee: {
		PermEmployeesRead,
		PermDepartmentsRead,
		PermReportsRead,
		PermDashboardRead,
	},
	records.RoleManager: {
		PermEmployeesRead,
		PermDepartmentsRead,
		PermRecordsWrite,
		PermInsightGenerate,
		PermReportsRead,
		PermDashboardRead,
	},
	records.RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermDepartmentsRead,
		PermDepartmentsWrite,
		PermRecordsWrite,
		PermInsightGenerate,
		PermReportsRead,
		PermDashboardRead,
		PermSystemAdmin,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(ctx context.Context, role, permission string) (bool, error) {
	parsed, ok := records.ParseRole(role)
	if !ok {
		return false, fmt.Errorf("unknown role %q", role)
	}
	for _, p := range RolePermissions[parsed] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
