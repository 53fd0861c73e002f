package models

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by a successful POST /auth/login
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Name         string `json:"name"`
}

// Session converts the login response into the session that gets persisted.
func (l LoginResponse) Session() Session {
	return Session{
		AccessToken:  l.AccessToken,
		RefreshToken: l.RefreshToken,
		Identity:     Identity{UserID: l.UserID, Name: l.Name},
	}
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	UserID   string `json:"userId" validate:"required,min=4,max=50,userid"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Name     string `json:"name" validate:"required,max=50"`
	Gender   string `json:"gender" validate:"required"`
	Phone    string `json:"phone" validate:"required,phone"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=100"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	AccessToken string `json:"accessToken"`
}
