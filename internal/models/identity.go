package models

// Role is an administrative role carried in tokens.
type Role string

const (
	RoleSuperadmin  Role = "superadmin"
	RoleSchooladmin Role = "schooladmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleSuperadmin || r == RoleSchooladmin
}

func (r Role) String() string { return string(r) }

// Identity is the authenticated principal decoded from a token.
// SchoolID is set only for schooladmins.
type Identity struct {
	UserID   string `json:"userId"`
	Role     Role   `json:"role"`
	SchoolID string `json:"schoolId,omitempty"`
}

// CanAccessSchool reports whether the identity may act within schoolID.
// Superadmins span every school; schooladmins are pinned to their own.
func (id *Identity) CanAccessSchool(schoolID string) bool {
	if id == nil {
		return false
	}
	switch id.Role {
	case RoleSuperadmin:
		return true
	case RoleSchooladmin:
		return id.SchoolID != "" && id.SchoolID == schoolID
	default:
		return false
	}
}
