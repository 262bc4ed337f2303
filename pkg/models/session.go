package models

import "time"

// Session is the persisted proof of a completed phone verification.
// ExpiresAt is in epoch milliseconds.
type Session struct {
	PhoneNumber  string `json:"phoneNumber"`
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

func (s Session) Expiry() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}

// Valid reports whether now is strictly before the expiry.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.Expiry())
}
