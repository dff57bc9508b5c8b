package connection

import "errors"

var (
	ErrAlreadyExists = errors.New("connection already exists")
	ErrNotFound      = errors.New("connection not found")
)

// Session is the identity attached to a live connection. LocalId
// disambiguates multiple tabs or devices of the same user.
type Session struct {
	UserId  string
	LocalId string
}
