package auth

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// PublicUser is the projection of a User that may leave the service.
type PublicUser struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailed  AttemptOutcome = "failed"
)

// LoginAttempt is one ledger row. Username is whatever the caller submitted
// and need not belong to a User.
type LoginAttempt struct {
	Username      string
	Outcome       AttemptOutcome
	AttemptedAt   time.Time
	SourceAddress string
	ClientAgent   string
}

type LoginInput struct {
	Username      string
	Password      string
	SourceAddress string
	ClientAgent   string
}

type LoginResult struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         PublicUser `json:"user"`
}

type RefreshResult struct {
	AccessToken string `json:"accessToken"`
}
