package records

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.InsertDepartment(ctx, "Ramp Operations"))
	require.NoError(t, store.InsertDepartment(ctx, "Cargo"))
	require.NoError(t, store.InsertEmployee(ctx, Employee{ID: "e1", Name: "Ana", Department: "Ramp Operations", Email: "ana@example.com", Username: "ana", Role: RoleManager, Active: true}))
	require.NoError(t, store.InsertEmployee(ctx, Employee{ID: "e2", Name: "Ben", Department: "Cargo", Email: "ben@example.com", Username: "ben", Role: RoleEmployee, Active: true}))
	require.NoError(t, store.InsertEvaluation(ctx, Evaluation{ID: "v1", EmployeeID: "e1", Score: 92, Rating: RatingExceeds}))
	return store
}

func TestLoadSnapshotDegradesFailedCollection(t *testing.T) {
	store := seededStore(t)
	store.Fail["evaluations"] = errors.New("permission denied")

	snap, failures := LoadSnapshot(context.Background(), store, nil)

	require.Len(t, failures, 1)
	assert.Equal(t, "evaluations", failures[0].Collection)
	assert.NotNil(t, snap.Evaluations)
	assert.Empty(t, snap.Evaluations)
	assert.Len(t, snap.Employees, 2)
	assert.Len(t, snap.Departments, 2)
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestRepositoryLoadsLazilyAndReturnsCopies(t *testing.T) {
	repo := NewRepository(seededStore(t), nil)

	first := repo.Snapshot(context.Background())
	require.Len(t, first.Employees, 2)
	first.Employees[0].Name = "mutated"
	first.Employees = first.Employees[:0]

	second := repo.Snapshot(context.Background())
	require.Len(t, second.Employees, 2)
	assert.Equal(t, "Ana", second.Employees[0].Name)
}

func TestRepositoryReloadObservesWrites(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	repo := NewRepository(store, nil)
	_ = repo.Snapshot(ctx)

	require.NoError(t, store.InsertDepartment(ctx, "Security"))
	assert.Len(t, repo.Snapshot(ctx).Departments, 2, "cached snapshot is served until reload")

	repo.Reload(ctx)
	assert.Len(t, repo.Snapshot(ctx).Departments, 3)
}

func TestRepositoryInvalidate(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	repo := NewRepository(store, nil)
	_ = repo.Snapshot(ctx)

	_, err := store.RenameDepartment(ctx, "Cargo", "Cargo Handling")
	require.NoError(t, err)
	repo.Invalidate()

	snap := repo.Snapshot(ctx)
	assert.True(t, snap.HasDepartment("Cargo Handling"))
	emp, ok := snap.Employee("e2")
	require.True(t, ok)
	assert.Equal(t, "Cargo Handling", emp.Department)
}

func TestRepositoryConcurrentReloads(t *testing.T) {
	repo := NewRepository(seededStore(t), nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := repo.Reload(context.Background())
			assert.Len(t, snap.Employees, 2)
		}()
	}
	wg.Wait()
	assert.Empty(t, repo.Failures())
}

func TestSnapshotChildLookups(t *testing.T) {
	snap, _ := LoadSnapshot(context.Background(), seededStore(t), nil)
	assert.Len(t, snap.EvaluationsFor("e1"), 1)
	assert.Empty(t, snap.EvaluationsFor("e2"))
	assert.Empty(t, snap.LeavesFor("e1"))
	_, ok := snap.Employee("nobody")
	assert.False(t, ok)
}

// ctxStore honors cancellation the way a database driver does.
type ctxStore struct {
	*MemoryStore
}

func (s ctxStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStore.ListEmployees(ctx)
}

func (s ctxStore) ListDepartments(ctx context.Context) ([]Department, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStore.ListDepartments(ctx)
}

func TestRepositoryReloadSurvivesCancelledCaller(t *testing.T) {
	repo := NewRepository(ctxStore{seededStore(t)}, nil)
	require.Len(t, repo.Snapshot(context.Background()).Employees, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo.Reload(ctx)

	snap := repo.Snapshot(context.Background())
	assert.Len(t, snap.Employees, 2)
	assert.Len(t, snap.Departments, 2)
	assert.Empty(t, repo.Failures())
}

func TestRepositoryKeepsPreviousCollectionOnFailure(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	repo := NewRepository(store, nil)
	_ = repo.Snapshot(ctx)

	store.Fail[CollectionEmployees] = errors.New("connection reset")
	require.NoError(t, store.InsertDepartment(ctx, "Security"))
	snap := repo.Reload(ctx)

	assert.Len(t, snap.Employees, 2)
	assert.Len(t, snap.Departments, 3)
	assert.True(t, repo.Failed(CollectionEmployees))
	assert.False(t, repo.Failed(CollectionDepartments))

	delete(store.Fail, CollectionEmployees)
	repo.Reload(ctx)
	assert.False(t, repo.Failed(CollectionEmployees))
}
