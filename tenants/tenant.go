package tenants

import "time"

// Tenant is an organizational scope the user can switch between.
// Each tenant issues its own token pair.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// License is a product license held by a tenant.
type License struct {
	ID        string    `json:"id"`
	Product   string    `json:"product"`
	TenantID  string    `json:"tenantId"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Active reports whether the license is usable at now. A zero expiry never lapses.
func (l License) Active(now time.Time) bool {
	return l.ExpiresAt.IsZero() || now.Before(l.ExpiresAt)
}

// Find returns the tenant with the given ID.
func Find(list []Tenant, tenantID string) (Tenant, bool) {
	for _, t := range list {
		if t.ID == tenantID {
			return t, true
		}
	}
	return Tenant{}, false
}
