package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-escalation/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-escalation/internal/auth"
	"github.com/spec-kit/helpdesk-escalation/internal/cache"
	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
	"github.com/spec-kit/helpdesk-escalation/internal/observability"
	"github.com/spec-kit/helpdesk-escalation/internal/persistence"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/service"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
)

var testNow = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

type testServer struct {
	app     *fiber.App
	store   *repository.MemoryStore
	tokens  map[domain.AgentRole]string
	agentID map[domain.AgentRole]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	metrics := observability.NewMetrics()
	tokenMgr := auth.NewTokenManager("test-secret", 30)
	clock := sla.FixedClock(testNow)
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()

	srv := &testServer{
		store:   store,
		tokens:  map[domain.AgentRole]string{},
		agentID: map[domain.AgentRole]string{},
	}
	hash, err := auth.HashPassword("password-1", bcrypt.MinCost)
	require.NoError(t, err)
	for _, role := range []domain.AgentRole{domain.AgentRoleAgent, domain.AgentRoleManager, domain.AgentRoleAdmin} {
		id := "agent-" + strings.ToLower(string(role))
		agent := &domain.Agent{
			ID:               id,
			Name:             string(role),
			Email:            strings.ToLower(string(role)) + "@example.com",
			PasswordHash:     hash,
			Role:             role,
			Active:           true,
			Skills:           []domain.TicketCategory{domain.CategoryNetwork},
			EfficiencyRating: 50,
			CreatedAt:        testNow,
			UpdatedAt:        testNow,
		}
		require.NoError(t, store.Agents().Create(ctx, agent))
		token, _, err := tokenMgr.IssueAgentToken(agent)
		require.NoError(t, err)
		srv.tokens[role] = token
		srv.agentID[role] = id
	}

	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		MessageRepo: store.Messages(),
		AuditRepo:   store.AuditLogs(),
		Demand:      sla.FixedDemand(1),
		Clock:       clock,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	assignmentSvc := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: store.Tickets(),
		AgentRepo:  store.Agents(),
		AuditRepo:  store.AuditLogs(),
		Clock:      clock,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	escalationSvc := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  store.Tickets(),
		RuleRepo:    store.Rules(),
		AgentRepo:   store.Agents(),
		MessageRepo: store.Messages(),
		AuditRepo:   store.AuditLogs(),
		Clock:       clock,
		Locker:      cache.NewLocalLocker(),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	authSvc := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, store.Agents(), tokenMgr, logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-escalation", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authSvc),
		Tickets:        handlers.NewTicketsHandler(ticketSvc, assignmentSvc),
		Rules:          handlers.NewRulesHandler(service.NewRuleService(store.Rules(), store.AuditLogs(), clock, logger)),
		Escalations:    handlers.NewEscalationsHandler(escalationSvc, service.NewAuditService(store.AuditLogs())),
		Agents:         handlers.NewAgentsHandler(service.NewAgentService(store.Agents(), bcrypt.MinCost)),
		AuthMiddleware: auth.NewAuthMiddleware(tokenMgr, store.Agents()),
		Metrics:        metrics,
	})
	srv.app = app
	return srv
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, role domain.AgentRole, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[role])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) seedTicket(t *testing.T, id string, priority domain.TicketPriority, age, window time.Duration) {
	t.Helper()
	created := testNow.Add(-age)
	require.NoError(t, s.store.Tickets().Create(context.Background(), &domain.Ticket{
		ID:        id,
		Title:     "ticket " + id,
		Priority:  priority,
		Category:  domain.CategoryNetwork,
		Status:    domain.TicketStatusOpen,
		CreatedAt: created,
		UpdatedAt: created,
		SLATarget: created.Add(window),
		SLATier:   sla.TierFor(priority),
	}))
}

func TestCreateTicketValidation(t *testing.T) {
	srv := newTestServer(t)

	status, resp := srv.do(t, fiber.MethodPost, "/tickets", domain.AgentRoleAgent, map[string]any{
		"title":    "Printer on fire",
		"priority": "URGENT",
		"category": "HARDWARE",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "priority")

	status, resp = srv.do(t, fiber.MethodPost, "/tickets", domain.AgentRoleAgent, map[string]any{
		"priority":     "HIGH",
		"category":     "HARDWARE",
		"linked_asset": map[string]any{"model_name": "HP 4000"},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Details, "title")
	assert.Contains(t, resp.Error.Details, "linked_asset.id")
}

func TestCreateTicketReturnsSLA(t *testing.T) {
	srv := newTestServer(t)

	status, resp := srv.do(t, fiber.MethodPost, "/tickets", domain.AgentRoleAgent, map[string]any{
		"title":    "VPN down",
		"priority": "HIGH",
		"category": "NETWORK",
	})
	require.Equal(t, fiber.StatusCreated, status)

	var ticket struct {
		ID          string `json:"id"`
		SLAStatus   string `json:"sla_status"`
		SLATier     string `json:"sla_tier"`
		SLATargetMs int64  `json:"sla_target_ms"`
		CreatedAtMs int64  `json:"created_at_ms"`
		RequesterID string `json:"requester_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &ticket))
	assert.Equal(t, "ON_TRACK", ticket.SLAStatus)
	assert.Equal(t, "GOLD", ticket.SLATier)
	assert.Equal(t, int64(8*3_600_000), ticket.SLATargetMs-ticket.CreatedAtMs)
	assert.Equal(t, srv.agentID[domain.AgentRoleAgent], ticket.RequesterID)

	status, resp = srv.do(t, fiber.MethodGet, "/tickets/"+ticket.ID, domain.AgentRoleAgent, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(resp.Data), `"messages":[]`)
}

func TestListTicketsByLiveStatus(t *testing.T) {
	srv := newTestServer(t)
	srv.seedTicket(t, "fresh", domain.TicketPriorityLow, time.Hour, 72*time.Hour)
	srv.seedTicket(t, "late", domain.TicketPriorityCritical, 5*time.Hour, 4*time.Hour)

	status, resp := srv.do(t, fiber.MethodGet, "/tickets?sla_status=breached", domain.AgentRoleAgent, nil)
	require.Equal(t, fiber.StatusOK, status)
	var items []struct {
		ID        string `json:"id"`
		SLAStatus string `json:"sla_status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "late", items[0].ID)
	assert.Equal(t, "BREACHED", items[0].SLAStatus)

	status, resp = srv.do(t, fiber.MethodGet, "/tickets?sla_status=LATE", domain.AgentRoleAgent, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestAuthAndRoleGuards(t *testing.T) {
	srv := newTestServer(t)

	status, resp := srv.do(t, fiber.MethodGet, "/tickets", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	status, resp = srv.do(t, fiber.MethodPost, "/escalations/run", domain.AgentRoleAgent, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	status, _ = srv.do(t, fiber.MethodPost, "/escalation-rules", domain.AgentRoleManager, map[string]any{"name": "x"})
	assert.Equal(t, fiber.StatusForbidden, status)

	demoted, err := srv.store.Agents().Get(context.Background(), srv.agentID[domain.AgentRoleManager])
	require.NoError(t, err)
	demoted.Role = domain.AgentRoleAgent
	require.NoError(t, srv.store.Agents().Update(context.Background(), demoted))
	status, resp = srv.do(t, fiber.MethodGet, "/escalation-rules", domain.AgentRoleManager, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	status, resp = srv.do(t, fiber.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestStaffLogin(t *testing.T) {
	srv := newTestServer(t)

	status, resp := srv.do(t, fiber.MethodPost, "/auth/staff/login", "", map[string]any{
		"email":    "manager@example.com",
		"password": "password-1",
	})
	require.Equal(t, fiber.StatusOK, status)
	var body struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.NotEmpty(t, body.Auth.Token)

	status, _ = srv.do(t, fiber.MethodPost, "/auth/staff/login", "", map[string]any{
		"email":    "manager@example.com",
		"password": "nope",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestManualEscalationRun(t *testing.T) {
	srv := newTestServer(t)
	srv.seedTicket(t, "late", domain.TicketPriorityCritical, 5*time.Hour, 4*time.Hour)

	status, _ := srv.do(t, fiber.MethodPost, "/escalation-rules", domain.AgentRoleAdmin, map[string]any{
		"name":      "Critical breach to manager",
		"condition": map[string]any{"priority": "CRITICAL", "sla_status": "BREACHED"},
		"action":    map[string]any{"assign_to_user_id": srv.agentID[domain.AgentRoleManager], "new_priority": "CRITICAL"},
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, resp := srv.do(t, fiber.MethodPost, "/escalations/run", domain.AgentRoleManager, nil)
	require.Equal(t, fiber.StatusOK, status)
	var run struct {
		ActorID        string `json:"actor_id"`
		Scanned        int    `json:"scanned"`
		EscalatedCount int    `json:"escalated_count"`
		Escalations    []struct {
			TicketID        string  `json:"ticket_id"`
			AssignedAgentID *string `json:"assigned_agent_id"`
		} `json:"escalations"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &run))
	assert.Equal(t, srv.agentID[domain.AgentRoleManager], run.ActorID)
	assert.Equal(t, 1, run.EscalatedCount)
	require.Len(t, run.Escalations, 1)
	require.NotNil(t, run.Escalations[0].AssignedAgentID)
	assert.Equal(t, srv.agentID[domain.AgentRoleManager], *run.Escalations[0].AssignedAgentID)

	status, resp = srv.do(t, fiber.MethodGet, "/audit-logs?action=ESCALATION_JOB_RUN", domain.AgentRoleManager, nil)
	require.Equal(t, fiber.StatusOK, status)
	var entries []struct {
		ActorID string `json:"actor_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, srv.agentID[domain.AgentRoleManager], entries[0].ActorID)

	status, resp = srv.do(t, fiber.MethodPost, "/escalations/run", domain.AgentRoleAdmin, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &run))
	assert.Equal(t, 0, run.EscalatedCount)
	assert.Empty(t, run.Escalations)
}

func TestAgentSuggestionsAndAssign(t *testing.T) {
	srv := newTestServer(t)
	srv.seedTicket(t, "t-1", domain.TicketPriorityHigh, time.Hour, 8*time.Hour)

	status, resp := srv.do(t, fiber.MethodGet, "/tickets/t-1/agent-suggestions", domain.AgentRoleAgent, nil)
	require.Equal(t, fiber.StatusOK, status)
	var scores []struct {
		AgentID    string `json:"agent_id"`
		TotalScore int    `json:"total_score"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &scores))
	require.Len(t, scores, 3)
	// identical profiles: 40 + 12.5 + 20 rounds to 73, input order kept
	for _, s := range scores {
		assert.Equal(t, 73, s.TotalScore)
	}

	status, _ = srv.do(t, fiber.MethodPost, "/tickets/t-1/assign", domain.AgentRoleAgent, map[string]any{"agent_id": scores[0].AgentID})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp = srv.do(t, fiber.MethodPost, "/tickets/t-1/assign", domain.AgentRoleManager, map[string]any{"agent_id": scores[0].AgentID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(resp.Data), scores[0].AgentID)
}

func TestRuleReorderValidation(t *testing.T) {
	srv := newTestServer(t)
	status, _ := srv.do(t, fiber.MethodPost, "/escalation-rules", domain.AgentRoleAdmin, map[string]any{"name": "only"})
	require.Equal(t, fiber.StatusCreated, status)

	status, resp := srv.do(t, fiber.MethodPut, "/escalation-rules/order", domain.AgentRoleAdmin, map[string]any{"ids": []string{"ghost"}})
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)

	status, resp = srv.do(t, fiber.MethodPost, "/escalation-rules", domain.AgentRoleAdmin, map[string]any{
		"name":      "bad",
		"condition": map[string]any{"sla_status": "LATE"},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Details, "condition.sla_status")
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest(fiber.MethodGet, "/health/ready", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"postgres":{"status":"disabled"}`)

	req = httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err = srv.app.Test(req, -1)
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "helpdesk_http_requests_total")
}
