package users_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"phishly/internal/testsupport"
	"phishly/internal/users"
)

func TestFindByEmail(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("finds existing user", func(t *testing.T) {
		testUser := testsupport.CreateTestUser(db, "test@example.com", "password123")

		foundUser, err := users.FindByEmail(db, "test@example.com")

		require.NoError(t, err)
		assert.NotNil(t, foundUser)
		assert.Equal(t, testUser.Email, foundUser.Email)
		assert.Equal(t, testUser.ID, foundUser.ID)
	})

	t.Run("returns error for missing user", func(t *testing.T) {
		_, err := users.FindByEmail(db, "missing@example.com")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestCreateOperator(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("creates operator with hashed password", func(t *testing.T) {
		require.NoError(t, users.CreateOperator(db, "op@example.com", "secret123"))

		created, err := users.FindByEmail(db, "op@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "secret123", created.EncryptedPassword)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		err := users.CreateOperator(db, "op@example.com", "another")
		assert.ErrorIs(t, err, users.ErrUserExists)
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		assert.Error(t, users.CreateOperator(db, "", "secret"))
		assert.Error(t, users.CreateOperator(db, "x@example.com", ""))
	})
}

func TestSetupOperatorIfNotExists(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	users.SetupOperatorIfNotExists(db, "seed@example.com")

	first, err := users.FindByEmail(db, "seed@example.com")
	require.NoError(t, err)

	// Second call is a no-op.
	users.SetupOperatorIfNotExists(db, "seed@example.com")

	second, err := users.FindByEmail(db, "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.EncryptedPassword, second.EncryptedPassword)
}
