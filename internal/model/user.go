package model

import "time"

// User roles. Registration always forces RoleMember; only another commander
// can promote.
const (
	RoleMember    = "member"
	RoleCommander = "commander"
)

// User is a dashboard login tied to a clan account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	AccountID    int64  `json:"account_id"`
}

// IsCommander reports whether the user may see other players' garages.
func (u *User) IsCommander() bool {
	return u.Role == RoleCommander
}

// RoleChange is an audit record written when a promotion happens.
// Writing it is best-effort: a failed insert is logged, never propagated.
type RoleChange struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	OldRole   string    `json:"old_role"`
	NewRole   string    `json:"new_role"`
	ChangedBy string    `json:"changed_by"`
	TS        time.Time `json:"ts"`
}

// Session is the payload stored in the session cache keyed by token.
type Session struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
