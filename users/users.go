package users

import "slices"

// RoleType represents a role carried by the user's access token
type RoleType string

const (
	RoleBuilder     RoleType = "BUILDER"      // Can design stencils and menus
	RoleAdmin       RoleType = "ADMIN"        // Full administrative access
	RoleTenantAdmin RoleType = "TENANT_ADMIN" // Can manage users and settings within a tenant
	RoleUser        RoleType = "USER"         // Regular user within a tenant
)

type User struct {
	ID        string     `json:"id,omitempty"`        // Unique identifier for the user
	Email     string     `json:"email,omitempty"`     // User's email address
	FirstName string     `json:"firstName,omitempty"` // First name of the user
	LastName  string     `json:"lastName,omitempty"`  // Last name of the user
	Locale    string     `json:"locale,omitempty"`    // Preferred UI locale
	Roles     []RoleType `json:"roles,omitempty"`     // Roles within the current tenant
}

// Update is a partial user update. Nil fields are left untouched.
type Update struct {
	Email     *string    `json:"email,omitempty"`
	FirstName *string    `json:"firstName,omitempty"`
	LastName  *string    `json:"lastName,omitempty"`
	Locale    *string    `json:"locale,omitempty"`
	Roles     []RoleType `json:"roles,omitempty"`
}

// Apply merges the non-nil fields of the update into the user.
func (u *User) Apply(upd Update) {
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Locale != nil {
		u.Locale = *upd.Locale
	}
	if upd.Roles != nil {
		u.Roles = slices.Clone(upd.Roles)
	}
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// HasAnyRole returns true if the user holds at least one of roles
func (u *User) HasAnyRole(roles ...RoleType) bool {
	for _, r := range roles {
		if slices.Contains(u.Roles, r) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	u.Roles = slices.Clone(u.Roles)
	return u
}
