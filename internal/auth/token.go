package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

const (
	tokenIssuer   = "helpdesk-escalation"
	tokenAudience = "helpdesk-staff"
)

var (
	errSigningMethod = errors.New("unexpected signing method")
	errNoAgent       = errors.New("token names no agent")
)

// AgentClaims is the payload of a staff session token. The registered
// subject is the agent id and the role is the one held at sign in.
type AgentClaims struct {
	Role  domain.AgentRole `json:"role"`
	Email string           `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AgentID returns the agent the token was issued to.
func (c *AgentClaims) AgentID() string { return c.Subject }

// TokenManager issues and verifies HS256 agent tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager. Non-positive ttlMinutes means one hour.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// IssueAgentToken signs a token for agent and returns it with its expiry.
func (tm *TokenManager) IssueAgentToken(agent *domain.Agent) (string, time.Time, error) {
	if agent == nil || agent.ID == "" {
		return "", time.Time{}, errNoAgent
	}
	if !agent.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("agent %s has invalid role %q", agent.ID, agent.Role)
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &AgentClaims{
		Role:  agent.Role,
		Email: agent.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   agent.ID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAgentToken verifies signature, issuer, audience and expiry.
func (tm *TokenManager) ParseAgentToken(raw string) (*AgentClaims, error) {
	claims := &AgentClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errSigningMethod
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.AgentID() == "" {
		return nil, errNoAgent
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("token carries invalid role %q", claims.Role)
	}
	return claims, nil
}
