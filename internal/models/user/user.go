package user

type Role string
type AccountStatus string

const RoleUser Role = "user"
const RoleDepAdmin Role = "depadmin"
const RoleSysAdmin Role = "sysadmin"

const StatusPending AccountStatus = "pending"
const StatusApproved AccountStatus = "approved"
const StatusSuspended AccountStatus = "suspended"

// AppUser is the profile overlay on an identity provider account.
type AppUser struct {
	ID          string        `json:"uid" db:"id"`
	Email       string        `json:"email" db:"email"`
	DisplayName string        `json:"displayName" db:"display_name"`
	PhotoURL    string        `json:"photoURL,omitempty" db:"photo_url"`
	Role        Role          `json:"role" db:"role"`
	Status      AccountStatus `json:"status" db:"status"`
	Department  string        `json:"department,omitempty" db:"department"`
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleDepAdmin || r == RoleSysAdmin
}

// IsAdmin is true for department and system administrators.
func (r Role) IsAdmin() bool {
	return r == RoleDepAdmin || r == RoleSysAdmin
}

func (s AccountStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusSuspended
}

func (u *AppUser) IsAdmin() bool {
	return u != nil && u.Role.IsAdmin()
}

func (u *AppUser) Approved() bool {
	return u != nil && u.Status == StatusApproved
}

// Identity is what the upstream identity provider asserts about a caller.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
}
