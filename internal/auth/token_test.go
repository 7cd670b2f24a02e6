package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticket-engine/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	token, expiresAt, err := tm.GenerateToken("user-1", "guild-1", domain.SubjectTypeUser, false)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.SubjectID)
	assert.Equal(t, "guild-1", claims.GuildID)
	assert.Equal(t, domain.SubjectTypeUser, claims.Subject)
	assert.False(t, claims.Staff)
}

func TestParseTokenCarriesStaffFlag(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	token, _, err := tm.GenerateToken("staff-1", "guild-1", domain.SubjectTypeStaff, true)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	assert.True(t, claims.Staff)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)
	other := NewTokenManager("other-secret", 30)

	token, _, err := tm.GenerateToken("user-1", "guild-1", domain.SubjectTypeUser, false)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)
	_, err := tm.ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestAdminKeyHashing(t *testing.T) {
	hash, err := HashAdminKey("super-secret", 4)
	require.NoError(t, err)

	assert.NoError(t, CompareAdminKey(hash, "super-secret"))
	assert.Error(t, CompareAdminKey(hash, "wrong"))
}
