package domain

// Roles carried in access tokens
const (
	RoleFan   = "fan"
	RoleAdmin = "admin"
)

// UserProfile is the authenticated caller extracted from an access token
type UserProfile struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
}

// IsAdmin reports whether the caller may use admin routes
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
