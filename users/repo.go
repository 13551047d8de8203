package users

type UserRepo interface {
	Create(user *User) error
	GetByUsername(username string) (*User, error)
	GetByID(ID int64) (*User, error)
	Update(user *User) error
}
