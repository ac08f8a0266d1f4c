package records

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrInUse     = errors.New("record still referenced")
)

// Store is the Record Store boundary: read-all plus insert, update-by-id and
// delete-by-id or by-name over the six collections.
type Store interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	ListEvaluations(ctx context.Context) ([]Evaluation, error)
	ListNotes(ctx context.Context) ([]ManagerNote, error)
	ListLeaves(ctx context.Context) ([]LeaveRecord, error)
	ListObservations(ctx context.Context) ([]Observation, error)

	InsertEmployee(ctx context.Context, emp Employee) error
	UpdateEmployee(ctx context.Context, emp Employee) error
	DeleteEmployee(ctx context.Context, id string) error

	InsertDepartment(ctx context.Context, name string) error
	// RenameDepartment renames the department and rewrites every employee that
	// referenced the old name. It returns the number of employees rewritten.
	RenameDepartment(ctx context.Context, oldName, newName string) (int64, error)
	// DeleteDepartment fails with ErrInUse while any employee references name.
	DeleteDepartment(ctx context.Context, name string) error

	InsertEvaluation(ctx context.Context, ev Evaluation) error
	InsertNote(ctx context.Context, note ManagerNote) error
	InsertLeave(ctx context.Context, leave LeaveRecord) error
	InsertObservation(ctx context.Context, obs Observation) error
}

// DB is the subset of *pgxpool.Pool the store uses; pgxmock satisfies it too.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}
