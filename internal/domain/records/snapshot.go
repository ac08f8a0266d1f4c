package records

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshot is an in-memory copy of the six collections as last read from the store.
type Snapshot struct {
	Employees    []Employee
	Departments  []Department
	Evaluations  []Evaluation
	Notes        []ManagerNote
	Leaves       []LeaveRecord
	Observations []Observation
	LoadedAt     time.Time
}

const (
	CollectionEmployees    = "employees"
	CollectionDepartments  = "departments"
	CollectionEvaluations  = "evaluations"
	CollectionNotes        = "notes"
	CollectionLeaves       = "leaves"
	CollectionObservations = "observations"
)

// LoadFailure names a collection that could not be read during a load.
type LoadFailure struct {
	Collection string
	Err        error
}

// LoadSnapshot reads every collection concurrently. A collection that fails
// is logged and left empty; the others still load.
func LoadSnapshot(ctx context.Context, store Store, logger *zap.Logger) (*Snapshot, []LoadFailure) {
	if logger == nil {
		logger = zap.NewNop()
	}
	snap := &Snapshot{}
	failures := make([]LoadFailure, 6)

	// Failures are recorded rather than returned so one collection never
	// cancels the others.
	var g errgroup.Group
	load := func(i int, name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				failures[i] = LoadFailure{Collection: name, Err: err}
				logger.Warn("collection load failed", zap.String("collection", name), zap.Error(err))
			}
			return nil
		})
	}

	load(0, CollectionEmployees, func() (err error) { snap.Employees, err = store.ListEmployees(ctx); return })
	load(1, CollectionDepartments, func() (err error) { snap.Departments, err = store.ListDepartments(ctx); return })
	load(2, CollectionEvaluations, func() (err error) { snap.Evaluations, err = store.ListEvaluations(ctx); return })
	load(3, CollectionNotes, func() (err error) { snap.Notes, err = store.ListNotes(ctx); return })
	load(4, CollectionLeaves, func() (err error) { snap.Leaves, err = store.ListLeaves(ctx); return })
	load(5, CollectionObservations, func() (err error) { snap.Observations, err = store.ListObservations(ctx); return })
	_ = g.Wait()

	var out []LoadFailure
	for _, f := range failures {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	snap.normalize()
	snap.LoadedAt = time.Now().UTC()
	return snap, out
}

// normalize replaces nil collections with empty ones so failed loads look
// like empty collections to every consumer.
func (s *Snapshot) normalize() {
	if s.Employees == nil {
		s.Employees = []Employee{}
	}
	if s.Departments == nil {
		s.Departments = []Department{}
	}
	if s.Evaluations == nil {
		s.Evaluations = []Evaluation{}
	}
	if s.Notes == nil {
		s.Notes = []ManagerNote{}
	}
	if s.Leaves == nil {
		s.Leaves = []LeaveRecord{}
	}
	if s.Observations == nil {
		s.Observations = []Observation{}
	}
}

// carryOver replaces every collection that failed to load with the copy held
// by prev, so a transient read failure does not blank out known records.
func (s *Snapshot) carryOver(prev *Snapshot, failures []LoadFailure) {
	if prev == nil {
		return
	}
	for _, f := range failures {
		switch f.Collection {
		case CollectionEmployees:
			s.Employees = prev.Employees
		case CollectionDepartments:
			s.Departments = prev.Departments
		case CollectionEvaluations:
			s.Evaluations = prev.Evaluations
		case CollectionNotes:
			s.Notes = prev.Notes
		case CollectionLeaves:
			s.Leaves = prev.Leaves
		case CollectionObservations:
			s.Observations = prev.Observations
		}
	}
}

// Clone returns a copy whose slices do not alias the receiver's.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Employees:    append([]Employee{}, s.Employees...),
		Departments:  append([]Department{}, s.Departments...),
		Evaluations:  append([]Evaluation{}, s.Evaluations...),
		Notes:        append([]ManagerNote{}, s.Notes...),
		Leaves:       append([]LeaveRecord{}, s.Leaves...),
		Observations: append([]Observation{}, s.Observations...),
		LoadedAt:     s.LoadedAt,
	}
}

func (s *Snapshot) Employee(id string) (Employee, bool) {
	for _, e := range s.Employees {
		if e.ID == id {
			return e, true
		}
	}
	return Employee{}, false
}

func (s *Snapshot) HasDepartment(name string) bool {
	for _, d := range s.Departments {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (s *Snapshot) EvaluationsFor(employeeID string) []Evaluation {
	var out []Evaluation
	for _, ev := range s.Evaluations {
		if ev.EmployeeID == employeeID {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Snapshot) NotesFor(employeeID string) []ManagerNote {
	var out []ManagerNote
	for _, n := range s.Notes {
		if n.EmployeeID == employeeID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Snapshot) LeavesFor(employeeID string) []LeaveRecord {
	var out []LeaveRecord
	for _, l := range s.Leaves {
		if l.EmployeeID == employeeID {
			out = append(out, l)
		}
	}
	return out
}

func (s *Snapshot) ObservationsFor(employeeID string) []Observation {
	var out []Observation
	for _, o := range s.Observations {
		if o.EmployeeID == employeeID {
			out = append(out, o)
		}
	}
	return out
}
