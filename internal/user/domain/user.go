package domain

import "time"

// User is an account in the exam platform's user directory. This service only reads it.
type User struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
}
