package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

func testAgent(role domain.AgentRole) *domain.Agent {
	return &domain.Agent{ID: "agent-1", Email: "agent-1@example.com", Role: role, Active: true}
}

func TestAgentTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	token, expires, err := tm.IssueAgentToken(testAgent(domain.AgentRoleManager))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expires, 5*time.Second)

	claims, err := tm.ParseAgentToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID())
	assert.Equal(t, domain.AgentRoleManager, claims.Role)
	assert.Equal(t, "agent-1@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, jwt.ClaimStrings{tokenAudience}, claims.Audience)

	again, _, err := tm.IssueAgentToken(testAgent(domain.AgentRoleManager))
	require.NoError(t, err)
	other, err := tm.ParseAgentToken(again)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, other.ID)
}

func TestIssueAgentTokenRejectsIncompleteAgents(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	cases := []struct {
		name  string
		agent *domain.Agent
	}{
		{"nil agent", nil},
		{"missing id", &domain.Agent{Role: domain.AgentRoleAgent}},
		{"unknown role", &domain.Agent{ID: "agent-1", Role: "OWNER"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tm.IssueAgentToken(tc.agent)
			assert.Error(t, err)
		})
	}
}

func TestParseAgentTokenRejections(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	issued := time.Now()
	sign := func(claims *AgentClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		return raw
	}
	registered := func(audience string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "agent-1",
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Minute)),
		}
	}
	valid, _, err := tm.IssueAgentToken(testAgent(domain.AgentRoleAdmin))
	require.NoError(t, err)
	noExpiry := registered(tokenAudience)
	noExpiry.ExpiresAt = nil

	cases := []struct {
		name  string
		token string
		tm    *TokenManager
	}{
		{"wrong secret", valid, NewTokenManager("other", 15)},
		{"foreign audience", sign(&AgentClaims{Role: domain.AgentRoleAdmin, RegisteredClaims: registered("billing")}), tm},
		{"missing expiry", sign(&AgentClaims{Role: domain.AgentRoleAdmin, RegisteredClaims: noExpiry}), tm},
		{"unknown role", sign(&AgentClaims{Role: "OWNER", RegisteredClaims: registered(tokenAudience)}), tm},
		{"garbage", "not-a-token", tm},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.tm.ParseAgentToken(tc.token)
			assert.Error(t, err)
		})
	}
}

func TestAgentTokenExpires(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.IssueAgentToken(testAgent(domain.AgentRoleAgent))
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseAgentToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2"))
	assert.ErrorIs(t, ComparePassword(hash, "hunter3"), ErrPasswordMismatch)

	err = ComparePassword("not-a-hash", "hunter2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)

	_, err = HashPassword(strings.Repeat("x", 73), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
