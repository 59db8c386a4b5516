package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	user, err := svc.CreateUser("alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Empty(t, user.PasswordHash, "created user must not carry the hash")
	assert.False(t, user.CreatedAt.IsZero())
}

func TestCreateUserDuplicates(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	_, err := svc.CreateUser("alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.CreateUser("alice", "other@x.com", "pw123456")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.CreateUser("bob", "a@x.com", "pw123456")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetUserByIDOmitsHash(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	created, err := svc.CreateUser("alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	byID, err := svc.GetUserByID(created.ID)
	require.NoError(t, err)
	assert.Empty(t, byID.PasswordHash)

	byUsername, err := svc.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, byUsername.PasswordHash, "username lookup feeds password verification")

	byEmail, err := svc.GetUserByEmail("a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, byEmail.PasswordHash)

	_, err = svc.GetUserByID("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthenticateUser(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	_, err := svc.CreateUser("alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	user, err := svc.AuthenticateUser("alice", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.AuthenticateUser("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown username collapses into the same error as a wrong password.
	_, err = svc.AuthenticateUser("mallory", "pw123456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
