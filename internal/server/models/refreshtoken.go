package models

import "time"

// RefreshToken is a long-lived opaque credential exchanged for new access
// tokens. ExpiryDate never changes after creation and Revoked only ever
// goes from false to true.
type RefreshToken struct {
	ID         string
	UserID     string
	Token      string
	ExpiryDate time.Time
	Revoked    bool
}

// IsExpired reports whether the token is past its expiry at now.
// A token expiring exactly at now is expired.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiryDate.After(now)
}

// IsUsable reports whether the token may still be exchanged at now.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
