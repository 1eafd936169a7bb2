package types

type CardStatus string

const (
	CardActive  CardStatus = "active"
	CardRevoked CardStatus = "revoked"
)

type CardPolicy struct {
	AccessLevel string `json:"access_level,omitempty"`
}

type Card struct {
	CardID        string      `json:"card_id"`
	CardUID       string      `json:"card_uid"`
	UserID        string      `json:"user_id,omitempty"`
	Status        CardStatus  `json:"status"`
	EnrollMode    bool        `json:"enroll_mode"`
	Policy        *CardPolicy `json:"policy,omitempty"`
	RevokedReason string      `json:"revoked_reason,omitempty"`
	CreatedAt     Timestamp   `json:"created_at,omitzero"`
	UpdatedAt     Timestamp   `json:"updated_at,omitzero"`
}

// Pending reports a card seen by a reader but not yet assigned.
func (c Card) Pending() bool { return c.EnrollMode && c.UserID == "" }

// CardUpdate is the PUT /v1/cards/{id} body.
type CardUpdate struct {
	Status *CardStatus `json:"status,omitempty"`
	UserID *string     `json:"user_id,omitempty"`
	Policy *CardPolicy `json:"policy,omitempty"`
}

type AssignCardRequest struct {
	UserID string     `json:"user_id"`
	Policy CardPolicy `json:"policy"`
}

type RevokeCardRequest struct {
	Reason string `json:"reason"`
}
