package actor

import (
	"time"
)

type ActorRole string

const (
	ActorRoleUser  ActorRole = "user"
	ActorRoleAdmin ActorRole = "admin"
)

type Actor struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        ActorRole `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r ActorRole) String() string {
	return string(r)
}

func (r ActorRole) IsValid() bool {
	return r == ActorRoleUser || r == ActorRoleAdmin
}

func ParseActorRole(s string) ActorRole {
	switch s {
	case "admin":
		return ActorRoleAdmin
	case "user":
		return ActorRoleUser
	default:
		return ActorRoleUser
	}
}
