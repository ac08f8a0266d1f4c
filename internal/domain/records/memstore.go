package records

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and local runs without
// PostgreSQL; ordering follows insertion order.
type MemoryStore struct {
	mu sync.RWMutex

	employees    []Employee
	departments  []Department
	evaluations  []Evaluation
	notes        []ManagerNote
	leaves       []LeaveRecord
	observations []Observation

	writes int
	// Fail, when set, is returned by every call against the named collection
	// ("employees", "departments", ...). Tests use it to simulate outages.
	Fail map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Fail: map[string]error{}}
}

// Writes reports how many mutating calls reached the store.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryStore) failure(collection string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail[collection]
}

func (m *MemoryStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("employees"); err != nil {
		return nil, err
	}
	return append([]Employee(nil), m.employees...), nil
}

func (m *MemoryStore) ListDepartments(ctx context.Context) ([]Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("departments"); err != nil {
		return nil, err
	}
	return append([]Department(nil), m.departments...), nil
}

func (m *MemoryStore) ListEvaluations(ctx context.Context) ([]Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("evaluations"); err != nil {
		return nil, err
	}
	return append([]Evaluation(nil), m.evaluations...), nil
}

func (m *MemoryStore) ListNotes(ctx context.Context) ([]ManagerNote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("notes"); err != nil {
		return nil, err
	}
	return append([]ManagerNote(nil), m.notes...), nil
}

func (m *MemoryStore) ListLeaves(ctx context.Context) ([]LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("leaves"); err != nil {
		return nil, err
	}
	return append([]LeaveRecord(nil), m.leaves...), nil
}

func (m *MemoryStore) ListObservations(ctx context.Context) ([]Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("observations"); err != nil {
		return nil, err
	}
	return append([]Observation(nil), m.observations...), nil
}

func (m *MemoryStore) InsertEmployee(ctx context.Context, emp Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("employees"); err != nil {
		return err
	}
	for _, existing := range m.employees {
		if existing.ID == emp.ID ||
			strings.EqualFold(existing.Email, emp.Email) ||
			strings.EqualFold(existing.Username, emp.Username) {
			return ErrDuplicate
		}
	}
	m.employees = append(m.employees, emp)
	return nil
}

func (m *MemoryStore) UpdateEmployee(ctx context.Context, emp Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("employees"); err != nil {
		return err
	}
	for i := range m.employees {
		if m.employees[i].ID == emp.ID {
			m.employees[i] = emp
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteEmployee(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("employees"); err != nil {
		return err
	}
	for i := range m.employees {
		if m.employees[i].ID == id {
			m.employees = append(m.employees[:i], m.employees[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) InsertDepartment(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("departments"); err != nil {
		return err
	}
	for _, d := range m.departments {
		if d.Name == name {
			return ErrDuplicate
		}
	}
	m.departments = append(m.departments, Department{Name: name})
	return nil
}

func (m *MemoryStore) RenameDepartment(ctx context.Context, oldName, newName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("departments"); err != nil {
		return 0, err
	}
	idx := -1
	for i, d := range m.departments {
		if d.Name == newName {
			return 0, ErrDuplicate
		}
		if d.Name == oldName {
			idx = i
		}
	}
	if idx < 0 {
		return 0, ErrNotFound
	}
	if err := m.failure("employees"); err != nil {
		return 0, err
	}
	m.departments[idx].Name = newName
	var moved int64
	for i := range m.employees {
		if m.employees[i].Department == oldName {
			m.employees[i].Department = newName
			moved++
		}
	}
	return moved, nil
}

func (m *MemoryStore) DeleteDepartment(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("departments"); err != nil {
		return err
	}
	idx := -1
	for i, d := range m.departments {
		if d.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	if err := m.failure("employees"); err != nil {
		return err
	}
	for _, e := range m.employees {
		if e.Department == name {
			return ErrInUse
		}
	}
	m.departments = append(m.departments[:idx], m.departments[idx+1:]...)
	return nil
}

func (m *MemoryStore) InsertEvaluation(ctx context.Context, ev Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("evaluations"); err != nil {
		return err
	}
	m.evaluations = append(m.evaluations, ev)
	return nil
}

func (m *MemoryStore) InsertNote(ctx context.Context, note ManagerNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("notes"); err != nil {
		return err
	}
	m.notes = append(m.notes, note)
	return nil
}

func (m *MemoryStore) InsertLeave(ctx context.Context, leave LeaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("leaves"); err != nil {
		return err
	}
	m.leaves = append(m.leaves, leave)
	return nil
}

func (m *MemoryStore) InsertObservation(ctx context.Context, obs Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.failure("observations"); err != nil {
		return err
	}
	m.observations = append(m.observations, obs)
	return nil
}
