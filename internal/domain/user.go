package domain

import "time"

// User is an identity that may own one account. Credentials are produced by
// the authentication service and stored opaquely.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Salt         []byte
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}

// DisplayName joins first and last name.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
