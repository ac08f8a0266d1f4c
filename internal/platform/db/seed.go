package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"groundops/internal/domain/auth"
	"groundops/internal/domain/records"
	"groundops/internal/platform/config"
)

const adminDepartment = "HR & Admin"

// DefaultDepartments is installed when the department table is empty.
var DefaultDepartments = []string{
	"Ramp Operations",
	"Baggage Handling",
	"Passenger Services",
	"Fleet Maintenance",
	"Cargo Logistics",
	adminDepartment,
}

// Seed installs the default departments on an empty database and, when
// SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are set, an admin employee with a
// login account. Existing rows are left alone.
func Seed(ctx context.Context, store records.Store, accounts auth.AccountStore, cfg config.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	departments, err := store.ListDepartments(ctx)
	if err != nil {
		return err
	}
	if len(departments) == 0 {
		for _, name := range DefaultDepartments {
			if err := store.InsertDepartment(ctx, name); err != nil && !errors.Is(err, records.ErrDuplicate) {
				return err
			}
		}
		logger.Info("default departments seeded", zap.Int("count", len(DefaultDepartments)))
		departments, err = store.ListDepartments(ctx)
		if err != nil {
			return err
		}
	}

	return ensureAdmin(ctx, store, accounts, departments, cfg.SeedAdminEmail, cfg.SeedAdminPassword, logger)
}

func ensureAdmin(ctx context.Context, store records.Store, accounts auth.AccountStore, departments []records.Department, email, password string, logger *zap.Logger) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if len(password) < auth.MinPasswordLength {
		return errors.New("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}

	employees, err := store.ListEmployees(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, e := range employees {
		if strings.EqualFold(e.Email, email) {
			found = true
			break
		}
	}
	if !found {
		dept := adminDepartment
		if !hasDepartment(departments, dept) {
			if err := store.InsertDepartment(ctx, dept); err != nil && !errors.Is(err, records.ErrDuplicate) {
				return err
			}
		}
		local, _, _ := strings.Cut(email, "@")
		admin := records.Employee{
			ID:           uuid.NewString(),
			Name:         "Administrator",
			Department:   dept,
			JobTitle:     "System Administrator",
			Email:        email,
			Username:     local,
			Active:       true,
			Role:         records.RoleAdmin,
			OverallScore: records.DefaultScore,
		}
		if err := store.InsertEmployee(ctx, admin); err != nil {
			return err
		}
		logger.Info("admin employee seeded", zap.String("email", email))
	}

	if _, err := accounts.FindAccountByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, auth.ErrAccountNotFound) {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := accounts.UpsertPassword(ctx, email, hash); err != nil {
		return err
	}
	logger.Info("admin account seeded", zap.String("email", email))
	return nil
}

func hasDepartment(departments []records.Department, name string) bool {
	for _, d := range departments {
		if d.Name == name {
			return true
		}
	}
	return false
}
