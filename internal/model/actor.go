package model

import (
	"time"
)

// Role is the single role an actor holds for its whole lifetime
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Roles lists every role in route order
func Roles() []Role {
	return []Role{RoleConsumer, RoleVendor, RoleAdmin}
}

// ParseRole validates a role taken from a route or a token
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleConsumer, RoleVendor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Actor is an authenticated identity: a consumer, vendor or admin.
// Email is unique per role, so one address may hold a consumer and a vendor account.
type Actor struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;uniqueIndex:idx_actors_email_role"`
	Email     string    `json:"email" gorm:"type:varchar(100);not null;uniqueIndex:idx_actors_email_role"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Actor) Is(role Role) bool {
	return a != nil && a.Role == role
}
