package models

import "time"

// Agent is an assignable support agent scoped to an organization.
type Agent struct {
	ID           string    `json:"id" db:"id"`
	Organization string    `json:"organization" db:"organization"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
