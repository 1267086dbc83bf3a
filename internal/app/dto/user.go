package dto

import (
	"time"

	domainuser "stayly/internal/domain/user"
)

type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

func MapUser(u *domainuser.User) User {
	return User{ID: string(u.ID), Email: u.Email, Name: u.Name, Roles: u.RoleNames()}
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
