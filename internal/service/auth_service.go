package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/auth"
	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// AuthService coordinates staff login.
type AuthService struct {
	agents     repository.AgentRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, agents repository.AgentRepository, tokenMgr *auth.TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		agents:     agents,
		tokenMgr:   tokenMgr,
		bcryptCost: cfg.BcryptCost,
		logger:     nopIfNil(logger),
	}
}

// LoginStaff authenticates an agent and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	invalid := apperrors.NewUnauthorized("invalid credentials")
	agent, err := s.agents.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", time.Time{}, invalid
	}
	if err != nil {
		return nil, "", time.Time{}, apperrors.ToDomainError(err)
	}
	if !agent.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("agent inactive")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); errors.Is(err, auth.ErrPasswordMismatch) {
		return nil, "", time.Time{}, invalid
	} else if err != nil {
		s.logger.Error("stored password hash unreadable", zap.String("agent_id", agent.ID), zap.Error(err))
		return nil, "", time.Time{}, invalid
	}
	token, exp, err := s.tokenMgr.IssueAgentToken(agent)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return agent, token, exp, nil
}

// EnsureAdmin creates an ADMIN agent with the given credentials unless an
// agent with that email already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*domain.Agent, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil
	}
	existing, err := s.agents.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ToDomainError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := time.Now().UTC()
	admin := &domain.Agent{
		ID:               uuid.NewString(),
		Name:             "Administrator",
		Email:            email,
		PasswordHash:     hash,
		Role:             domain.AgentRoleAdmin,
		Active:           true,
		AssetFamiliarity: map[string]int{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.agents.Create(ctx, admin); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	s.logger.Info("seeded admin agent", zap.String("agent_id", admin.ID), zap.String("email", email))
	return admin, nil
}
