package token

// Pair is the bearer token pair issued by the backend for a user within one tenant.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsZero reports whether no access token is held.
func (p Pair) IsZero() bool {
	return p.AccessToken == ""
}
