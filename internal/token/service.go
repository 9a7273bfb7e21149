package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	// VerificationTTL is how long an email verification link stays valid.
	VerificationTTL = 24 * time.Hour
	// PasswordResetTTL is deliberately shorter than VerificationTTL.
	PasswordResetTTL = time.Hour

	tokenBytes = 32
)

// Service issues and redeems single-use, time-limited tokens bound to an
// email identifier. One mechanism backs both email verification and password
// reset; only the expiry policy differs.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Issue invalidates any live token for the identifier and persists a fresh
// one. At most one live token per identifier, regardless of purpose.
func (s *Service) Issue(ctx context.Context, identifier string, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	value, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	ttl := VerificationTTL
	if purpose == models.PurposePasswordReset {
		ttl = PasswordResetTTL
	}

	vt := &models.VerificationToken{
		Identifier: identifier,
		Token:      value,
		Purpose:    purpose,
		ExpiresAt:  s.now().Add(ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("identifier = ?", identifier).
			Delete(&models.VerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Create(vt).Error
	})
	if err != nil {
		return nil, err
	}

	return vt, nil
}

// Redeem looks up a token by value. An expired token is reported but not
// deleted; the caller decides when to invalidate it. On success the caller
// owns deleting the row so the token cannot be redeemed twice.
func (s *Service) Redeem(ctx context.Context, value string) (*models.VerificationToken, error) {
	var vt models.VerificationToken
	if err := s.db.WithContext(ctx).Where("token = ?", value).First(&vt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if vt.Expired(s.now()) {
		return nil, ErrExpiredToken
	}

	return &vt, nil
}

// Invalidate removes every token bound to the identifier.
func (s *Service) Invalidate(ctx context.Context, identifier string) error {
	return s.db.WithContext(ctx).Unscoped().Where("identifier = ?", identifier).
		Delete(&models.VerificationToken{}).Error
}

// Delete removes a single redeemed token.
func (s *Service) Delete(ctx context.Context, vt *models.VerificationToken) error {
	return s.db.WithContext(ctx).Unscoped().Delete(vt).Error
}

// DeleteExpired sweeps tokens past their expiry. Run from the worker.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Unscoped().
		Where("expires_at < ?", s.now()).
		Delete(&models.VerificationToken{})
	return result.RowsAffected, result.Error
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
