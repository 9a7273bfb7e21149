package models

import "time"

type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// VerificationToken backs both email verification and password reset.
// At most one live token per identifier: issuing replaces any prior row.
type VerificationToken struct {
	Base
	Identifier string       `gorm:"index;not null" json:"identifier"`
	Token      string       `gorm:"uniqueIndex;not null" json:"-"`
	Purpose    TokenPurpose `gorm:"not null" json:"purpose"`
	ExpiresAt  time.Time    `gorm:"index;not null" json:"expires_at"`
}

func (VerificationToken) TableName() string {
	return "verification_tokens"
}

func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
