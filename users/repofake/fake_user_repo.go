package fakeuserrepo

import (
	"errors"
	"sync"

	"github.com/jrsteele09/go-sensor-dashboard/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already exists")
)

type FakeUserRepo struct {
	users       map[int64]*users.User
	usernameIDs map[string]int64 // username to user id
	nextID      int64
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[int64]*users.User),
		usernameIDs: make(map[string]int64),
	}
}

// Create assigns the next sequential ID, mirroring an auto-increment primary key.
func (ur *FakeUserRepo) Create(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.usernameIDs[user.Username]; ok {
		return ErrUsernameTaken
	}
	ur.nextID++
	user.ID = ur.nextID
	stored := *user
	ur.users[user.ID] = &stored
	ur.usernameIDs[user.Username] = user.ID
	return nil
}

func (ur *FakeUserRepo) Update(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[user.ID]; !ok {
		return ErrNotFound
	}
	stored := *user
	ur.users[user.ID] = &stored
	return nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIDs[username]
	if !ok {
		return nil, ErrNotFound
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	stored, ok := ur.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *stored
	return &u, nil
}
