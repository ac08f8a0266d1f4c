package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PGStore struct {
	DB DB
}

func NewPGStore(db DB) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, department, job_title, email, username, active, hire_date, profile_picture, role, overall_score
    FROM employees
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var r employeeRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Department, &r.JobTitle, &r.Email, &r.Username, &r.Active, &r.HireDate, &r.ProfilePicture, &r.Role, &r.OverallScore); err != nil {
			return nil, err
		}
		out = append(out, r.toDomain())
	}
	return out, rows.Err()
}

func (s *PGStore) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, "SELECT name FROM departments ORDER BY position, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) ListEvaluations(ctx context.Context) ([]Evaluation, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, year, date, score, summary, rating
    FROM evaluations
    ORDER BY date DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var r evaluationRow
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Year, &r.Date, &r.Score, &r.Summary, &r.Rating); err != nil {
			return nil, err
		}
		out = append(out, r.toDomain())
	}
	return out, rows.Err()
}

func (s *PGStore) ListNotes(ctx context.Context) ([]ManagerNote, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, date, author_id, author_name, title, text
    FROM work_issues
    ORDER BY date DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ManagerNote
	for rows.Next() {
		var r workIssueRow
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Date, &r.AuthorID, &r.AuthorName, &r.Title, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r.toDomain())
	}
	return out, rows.Err()
}

func (s *PGStore) ListLeaves(ctx context.Context) ([]LeaveRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, date, type, duration::text, comment
    FROM attendance_logs
    ORDER BY date DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveRecord
	for rows.Next() {
		var r attendanceRow
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Date, &r.Type, &r.Duration, &r.Comment); err != nil {
			return nil, err
		}
		leave, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("attendance log %s: %w", r.ID, err)
		}
		out = append(out, leave)
	}
	return out, rows.Err()
}

func (s *PGStore) ListObservations(ctx context.Context) ([]Observation, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, date, description, status, action_plan
    FROM behaviour_issues
    ORDER BY date DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var r behaviourRow
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Date, &r.Description, &r.Status, &r.ActionPlan); err != nil {
			return nil, err
		}
		out = append(out, r.toDomain())
	}
	return out, rows.Err()
}

func (s *PGStore) InsertEmployee(ctx context.Context, emp Employee) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO employees (id, name, department, job_title, email, username, active, hire_date, profile_picture, role, overall_score)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, emp.ID, emp.Name, emp.Department, nullIfEmpty(emp.JobTitle), emp.Email, emp.Username, emp.Active, emp.HireDate, nullIfEmpty(emp.ProfilePicture), string(emp.Role), emp.OverallScore)
	return mapWriteError(err)
}

func (s *PGStore) UpdateEmployee(ctx context.Context, emp Employee) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET name = $2, department = $3, job_title = $4, email = $5, username = $6, active = $7,
        hire_date = $8, profile_picture = $9, role = $10, overall_score = $11
    WHERE id = $1
  `, emp.ID, emp.Name, emp.Department, nullIfEmpty(emp.JobTitle), emp.Email, emp.Username, emp.Active, emp.HireDate, nullIfEmpty(emp.ProfilePicture), string(emp.Role), emp.OverallScore)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteEmployee(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) InsertDepartment(ctx context.Context, name string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO departments (name, position)
    VALUES ($1, (SELECT COALESCE(MAX(position), 0) + 1 FROM departments))
  `, name)
	return mapWriteError(err)
}

func (s *PGStore) RenameDepartment(ctx context.Context, oldName, newName string) (int64, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, "UPDATE departments SET name = $2 WHERE name = $1", oldName, newName)
	if err != nil {
		return 0, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	moved, err := tx.Exec(ctx, "UPDATE employees SET department = $2 WHERE department = $1", oldName, newName)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return moved.RowsAffected(), nil
}

func (s *PGStore) DeleteDepartment(ctx context.Context, name string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM departments
    WHERE name = $1 AND NOT EXISTS (SELECT 1 FROM employees WHERE department = $1)
  `, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM departments WHERE name = $1)", name).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrInUse
	}
	return ErrNotFound
}

func (s *PGStore) InsertEvaluation(ctx context.Context, ev Evaluation) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO evaluations (id, employee_id, year, date, score, summary, rating)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, ev.ID, ev.EmployeeID, ev.Year, ev.Date, ev.Score, nullIfEmpty(ev.Summary), string(ev.Rating))
	return mapWriteError(err)
}

func (s *PGStore) InsertNote(ctx context.Context, note ManagerNote) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO work_issues (id, employee_id, date, author_id, author_name, title, text)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, note.ID, note.EmployeeID, note.Date, note.AuthorID, note.AuthorName, note.Title, note.Text)
	return mapWriteError(err)
}

func (s *PGStore) InsertLeave(ctx context.Context, leave LeaveRecord) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO attendance_logs (id, employee_id, date, type, duration, comment)
    VALUES ($1,$2,$3,$4,$5::numeric,$6)
  `, leave.ID, leave.EmployeeID, leave.Date, string(leave.Type), leave.Duration.String(), nullIfEmpty(leave.Comment))
	return mapWriteError(err)
}

func (s *PGStore) InsertObservation(ctx context.Context, obs Observation) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO behaviour_issues (id, employee_id, date, description, status, action_plan)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, obs.ID, obs.EmployeeID, obs.Date, obs.Description, string(obs.Status), nullIfEmpty(obs.ActionPlan))
	return mapWriteError(err)
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
