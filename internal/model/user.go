package model

import "time"

// Role is a user's role. The set is closed; anything else parses as RoleUnknown.
type Role string

// Roles.
const (
	RoleSystemAdmin Role = "system_admin"
	RoleManager     Role = "manager"
	RoleStorekeeper Role = "storekeeper"
	RoleForeman     Role = "foreman"
	RoleWorker      Role = "worker"
	RoleUnknown     Role = "unknown"
)

// Roles lists every role, in descending privilege.
var Roles = []Role{RoleSystemAdmin, RoleManager, RoleStorekeeper, RoleForeman, RoleWorker, RoleUnknown}

// ParseRole maps a role code to a Role, failing closed to RoleUnknown.
func ParseRole(s string) Role {
	for _, r := range Roles {
		if string(r) == s {
			return r
		}
	}
	return RoleUnknown
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return ParseRole(string(r)) == r && r != ""
}

// UserStatus is a user's account status.
type UserStatus string

// User statuses.
const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// User is a chat participant known to the bot.
type User struct {
	ID         int64      `json:"id" db:"id"`
	ExternalID int64      `json:"external_id" db:"external_id"`
	FullName   string     `json:"full_name" db:"full_name"`
	Role       Role       `json:"role" db:"role"`
	Status     UserStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Active reports whether the user may act at all: not blocked and with an
// approved role.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive && u.Role != RoleUnknown
}
