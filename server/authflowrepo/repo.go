// Package authflowrepo keeps the state of in-flight single sign-on flows
// between the redirect to the provider and the callback.
package authflowrepo

import "time"

// DefaultTTL bounds how long a user may take at the provider.
const DefaultTTL = 10 * time.Minute

type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	// Take returns the flow and removes it, so a state value is only accepted once.
	Take(state string) (*AuthFlowState, error)
	Delete(state string) error
}
