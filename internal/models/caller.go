package models

// Role is the permission level of an authenticated caller
type Role string

// Role constants
const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Caller identifies who issued a request
type Caller struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the caller may mutate the ledger
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// System is the caller used by internal jobs and tests
var System = Caller{Name: "system", Role: RoleAdmin}
