package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingCheckoutExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pc := &PendingCheckout{ExpiresAt: now.Add(PendingCheckoutTTL)}

	assert.False(t, pc.IsExpired(now))
	assert.False(t, pc.IsExpired(now.Add(PendingCheckoutTTL-time.Second)))
	assert.True(t, pc.IsExpired(now.Add(PendingCheckoutTTL)))
	assert.True(t, pc.IsExpired(now.Add(PendingCheckoutTTL+time.Hour)))
}

func TestPendingCheckoutIsUsed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pc := &PendingCheckout{ExpiresAt: now.Add(PendingCheckoutTTL)}

	require.False(t, pc.IsUsed())
	pc.UsedAt = &now
	require.True(t, pc.IsUsed())
}

func TestTouchLogin(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}

	u.TouchLogin(now)
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, now, *u.LastLoginAt)
}

func TestNewProUser(t *testing.T) {
	u, err := NewProUser(" Buyer@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", u.Email)
	assert.Equal(t, PlanPro, u.Plan)
	assert.True(t, u.IsPro)
}

func TestNewProUserRejectsInvalidEmail(t *testing.T) {
	_, err := NewProUser("not-an-email")
	assert.Error(t, err)
}

func TestValidMode(t *testing.T) {
	assert.True(t, ValidMode(ModeTest))
	assert.True(t, ValidMode(ModeLive))
	assert.False(t, ValidMode(""))
	assert.False(t, ValidMode("sandbox"))
}
