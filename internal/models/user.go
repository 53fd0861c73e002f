package models

// User is a user record as returned by the user-account API. The timestamps are passed
// through as sent, the API serializes them without a zone.
type User struct {
	UserIndex int64  `json:"userIndex"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Gender    string `json:"gender,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// UserRequest is the body used to create a user
type UserRequest struct {
	UserID   string `json:"userId" validate:"required,min=4,max=50,userid"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Name     string `json:"name" validate:"required,max=50"`
	Gender   string `json:"gender,omitempty"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,phone"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=100"`
}

// UserUpdate is the body used to update a user, unset fields are left untouched
type UserUpdate struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,max=50"`
	Gender *string `json:"gender,omitempty"`
	Phone  *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
}
