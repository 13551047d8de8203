package users_test

import (
	"testing"

	"github.com/jrsteele09/go-sensor-dashboard/users"
	fakeuserrepo "github.com/jrsteele09/go-sensor-dashboard/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("s3cret-pw")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("s3cret-pw", hash))
	require.False(t, users.CheckPasswordHash("wrong", hash))
}

func TestUserDisplay(t *testing.T) {
	var nilUser *users.User
	require.True(t, nilUser.Anonymous())
	require.Equal(t, "", nilUser.DisplayName())

	require.Equal(t, "alice", (&users.User{ID: 1, Username: "alice", Email: "a@example.com"}).DisplayName())
	require.Equal(t, "a@example.com", (&users.User{ID: 1, Email: "a@example.com"}).DisplayName())
	require.False(t, (&users.User{ID: 1}).Anonymous())
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	alice := &users.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, repo.Create(alice))
	require.Equal(t, int64(1), alice.ID)

	bob := &users.User{Username: "bob"}
	require.NoError(t, repo.Create(bob))
	require.Equal(t, int64(2), bob.ID)

	require.ErrorIs(t, repo.Create(&users.User{Username: "alice"}), fakeuserrepo.ErrUsernameTaken)

	got, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Email)

	got.Email = "new@example.com"
	require.NoError(t, repo.Update(got))
	got, err = repo.GetByID(1)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", got.Email)

	_, err = repo.GetByID(42)
	require.ErrorIs(t, err, fakeuserrepo.ErrNotFound)
	require.ErrorIs(t, repo.Update(&users.User{ID: 42}), fakeuserrepo.ErrNotFound)
}
