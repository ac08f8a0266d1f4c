package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFindAccountByEmailNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users").WithArgs("ghost@example.com").WillReturnError(pgx.ErrNoRows)

	_, err = NewStore(mock).FindAccountByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFindAccountByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "confirmed", "mfa_enabled", "mfa_secret_enc"}).
		AddRow("u1", "mia@example.com", "$2a$10$hash", true, false, []byte(nil))
	mock.ExpectQuery("FROM users").WithArgs("mia@example.com").WillReturnRows(rows)

	acc, err := NewStore(mock).FindAccountByEmail(context.Background(), "mia@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", acc.ID)
	assert.True(t, acc.Confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSessionLifecycle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), "u1", "hash", expires).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM sessions").
		WithArgs("u1", "hash").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs("u1", "hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, "u1", "hash", expires))
	valid, err := store.SessionValid(ctx, "u1", "hash")
	require.NoError(t, err)
	assert.True(t, valid)
	require.NoError(t, store.RevokeSession(ctx, "u1", "hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaticPermissions(t *testing.T) {
	perms := StaticPermissions{}
	ctx := context.Background()

	ok, err := perms.HasPermission(ctx, "admin", PermEmployeesWrite)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = perms.HasPermission(ctx, "manager", PermEmployeesWrite)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = perms.HasPermission(ctx, "manager", PermRecordsWrite)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = perms.HasPermission(ctx, "employee", PermInsightGenerate)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = perms.HasPermission(ctx, "root", PermSystemAdmin)
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testSecret, Claims{UserID: "u1", EmployeeID: "e1", RoleName: "admin", SessionID: "s1"}, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "e1", claims.EmployeeID)
	assert.Equal(t, "s1", claims.SessionID)

	_, err = ParseToken("another-secret-another-secret-xx", token)
	assert.Error(t, err)
}
