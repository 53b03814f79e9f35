package domain

import "time"

// User is an authenticated account. The ID is the opaque identity used by the
// registry and the delivery path.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Gender       string    `json:"gender"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}
