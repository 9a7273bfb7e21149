package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/testutil"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/token"
)

func TestService_Issue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := token.NewService(db)
	ctx := testutil.TestContext(t)

	t.Run("issues verification token with 24h expiry", func(t *testing.T) {
		vt, err := svc.Issue(ctx, "alice@example.com", models.PurposeEmailVerification)
		require.NoError(t, err)

		assert.Equal(t, "alice@example.com", vt.Identifier)
		assert.Equal(t, models.PurposeEmailVerification, vt.Purpose)
		assert.Len(t, vt.Token, 64) // 32 random bytes, hex encoded
		assert.WithinDuration(t, time.Now().Add(token.VerificationTTL), vt.ExpiresAt, time.Minute)
	})

	t.Run("issues reset token with 1h expiry", func(t *testing.T) {
		vt, err := svc.Issue(ctx, "bob@example.com", models.PurposePasswordReset)
		require.NoError(t, err)

		assert.Equal(t, models.PurposePasswordReset, vt.Purpose)
		assert.WithinDuration(t, time.Now().Add(token.PasswordResetTTL), vt.ExpiresAt, time.Minute)
	})

	t.Run("replaces existing token for the same identifier", func(t *testing.T) {
		first, err := svc.Issue(ctx, "carol@example.com", models.PurposeEmailVerification)
		require.NoError(t, err)

		second, err := svc.Issue(ctx, "carol@example.com", models.PurposeEmailVerification)
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)

		// The first token is gone
		_, err = svc.Redeem(ctx, first.Token)
		assert.Equal(t, token.ErrInvalidToken, err)

		// The second still works
		got, err := svc.Redeem(ctx, second.Token)
		require.NoError(t, err)
		assert.Equal(t, second.Token, got.Token)

		var count int64
		db.Model(&models.VerificationToken{}).Where("identifier = ?", "carol@example.com").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("reset token replaces verification token", func(t *testing.T) {
		verify, err := svc.Issue(ctx, "dave@example.com", models.PurposeEmailVerification)
		require.NoError(t, err)

		_, err = svc.Issue(ctx, "dave@example.com", models.PurposePasswordReset)
		require.NoError(t, err)

		_, err = svc.Redeem(ctx, verify.Token)
		assert.Equal(t, token.ErrInvalidToken, err)
	})
}

func TestService_Redeem(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := token.NewService(db)
	ctx := testutil.TestContext(t)

	t.Run("redeems a live token", func(t *testing.T) {
		issued, err := svc.Issue(ctx, "alice@example.com", models.PurposeEmailVerification)
		require.NoError(t, err)

		got, err := svc.Redeem(ctx, issued.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Identifier)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.Redeem(ctx, "no-such-token")
		assert.Equal(t, token.ErrInvalidToken, err)
	})

	t.Run("expired token is reported but kept", func(t *testing.T) {
		issued, err := svc.Issue(ctx, "bob@example.com", models.PurposeEmailVerification)
		require.NoError(t, err)

		// Backdate the expiry
		require.NoError(t, db.Model(&models.VerificationToken{}).
			Where("token = ?", issued.Token).
			Update("expires_at", time.Now().Add(-time.Minute)).Error)

		_, err = svc.Redeem(ctx, issued.Token)
		assert.Equal(t, token.ErrExpiredToken, err)

		// Row still exists; redeeming again gives the same answer
		var count int64
		db.Model(&models.VerificationToken{}).Where("token = ?", issued.Token).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("deleted token cannot be redeemed twice", func(t *testing.T) {
		issued, err := svc.Issue(ctx, "carol@example.com", models.PurposePasswordReset)
		require.NoError(t, err)

		got, err := svc.Redeem(ctx, issued.Token)
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, got))

		_, err = svc.Redeem(ctx, issued.Token)
		assert.Equal(t, token.ErrInvalidToken, err)
	})
}

func TestService_Invalidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := token.NewService(db)
	ctx := testutil.TestContext(t)

	issued, err := svc.Issue(ctx, "alice@example.com", models.PurposeEmailVerification)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, "alice@example.com"))

	_, err = svc.Redeem(ctx, issued.Token)
	assert.Equal(t, token.ErrInvalidToken, err)
}

func TestService_DeleteExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := token.NewService(db)
	ctx := testutil.TestContext(t)

	live, err := svc.Issue(ctx, "live@example.com", models.PurposeEmailVerification)
	require.NoError(t, err)

	expired, err := svc.Issue(ctx, "stale@example.com", models.PurposeEmailVerification)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.VerificationToken{}).
		Where("token = ?", expired.Token).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	deleted, err := svc.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = svc.Redeem(ctx, live.Token)
	assert.NoError(t, err)

	_, err = svc.Redeem(ctx, expired.Token)
	assert.Equal(t, token.ErrInvalidToken, err)
}
