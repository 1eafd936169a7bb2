package types

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a door user (cardholder). Dashboard operator accounts are
// returned by the auth endpoints as Account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CardUID   string    `json:"cardUid,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt,omitzero"`
}

// UserInput is the create/update body. Nil fields are left untouched on
// update.
type UserInput struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
	CardUID  *string `json:"cardUid,omitempty"`
}

// UserUpdate is the user_update realtime payload. Deleted marks a removal;
// otherwise the embedded record is the full post-change user.
type UserUpdate struct {
	User
	Deleted bool `json:"deleted,omitempty"`
}

type Account struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

type LoginResult struct {
	Token string  `json:"token"`
	User  Account `json:"user"`
}
