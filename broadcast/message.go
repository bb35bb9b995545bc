package broadcast

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/token"
)

// Kind tags a Message.
type Kind string

const (
	// KindLogout tells every tab to clear its session.
	KindLogout Kind = "logout"
	// KindTokenUpdated carries a refreshed token pair every tab on the same tenant should adopt.
	KindTokenUpdated Kind = "token_updated"
	// KindSessionExpired tells every tab to send the user to the login view.
	KindSessionExpired Kind = "session_expired"
)

// Message is the payload exchanged between tabs on the auth channel.
type Message struct {
	Kind     Kind        `json:"type"`
	Tokens   *token.Pair `json:"tokens,omitempty"`   // Set only for KindTokenUpdated
	TenantID string      `json:"tenantId,omitempty"` // Tenant the tokens are scoped to
	Origin   string      `json:"origin,omitempty"`   // Sender tab
}

func Logout() Message {
	return Message{Kind: KindLogout}
}

func TokenUpdated(tenantID string, tokens token.Pair) Message {
	return Message{Kind: KindTokenUpdated, Tokens: &tokens, TenantID: tenantID}
}

func SessionExpired() Message {
	return Message{Kind: KindSessionExpired}
}

// Validate checks the message is one of the known kinds and carries what its kind needs.
func (m Message) Validate() error {
	switch m.Kind {
	case KindLogout, KindSessionExpired:
		return nil
	case KindTokenUpdated:
		if m.Tokens == nil || m.Tokens.IsZero() {
			return fmt.Errorf("%w: %s without tokens", errors.ErrInvalidRequest, m.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown message kind %q", errors.ErrInvalidRequest, m.Kind)
	}
}

// Encode serializes the message for the bus.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses and validates a bus payload.
func DecodeMessage(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, errors.Wrapf(err, "decode broadcast message")
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
