package app

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
)

func TestDemandSource(t *testing.T) {
	// Saturday 2024-03-02 and Monday 2024-03-04, both at 10:00 UTC.
	saturday := time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)
	monday := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	christmas := time.Date(2024, time.December, 25, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cfg  config.SLAConfig
		at   time.Time
		want float64
	}{
		{
			name: "fixed factor wins",
			cfg:  config.SLAConfig{Timezone: "UTC", FixedFactor: 1.5, BusinessCalendar: true},
			at:   saturday,
			want: 1.5,
		},
		{
			name: "hourly peak",
			cfg:  config.SLAConfig{Timezone: "UTC", PeakFactor: 1.3, OffHoursFactor: 0.7, NormalFactor: 1},
			at:   saturday,
			want: 1.3,
		},
		{
			name: "calendar weekend is off-hours",
			cfg:  config.SLAConfig{Timezone: "UTC", PeakFactor: 1.3, OffHoursFactor: 0.7, BusinessCalendar: true},
			at:   saturday,
			want: 0.7,
		},
		{
			name: "calendar workday defers to hourly",
			cfg:  config.SLAConfig{Timezone: "UTC", PeakFactor: 1.3, OffHoursFactor: 0.7, BusinessCalendar: true},
			at:   monday,
			want: 1.3,
		},
		{
			name: "configured holiday",
			cfg: config.SLAConfig{Timezone: "UTC", BusinessCalendar: true,
				Holidays: []string{"12-25:Christmas"}},
			at:   christmas,
			want: sla.DefaultOffHoursFactor,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			demand, err := DemandSource(tc.cfg)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, demand.Factor(tc.at), 1e-9)
		})
	}
}

func TestDemandSourceRejectsBadTimezone(t *testing.T) {
	_, err := DemandSource(config.SLAConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:   config.AppConfig{Name: "helpdesk-escalation", Version: "test", RequestTimeoutSeconds: 5},
		Redis: config.RedisConfig{Enabled: false},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            bcrypt.MinCost,
			SeedAdminEmail:        "admin@example.com",
			SeedAdminPassword:     "admin-password",
		},
		SLA: config.SLAConfig{Timezone: "UTC", FixedFactor: 1},
		Escalation: config.EscalationConfig{
			SchedulerEnabled: true,
			Schedule:         "@every 1h",
			SystemActorID:    "system",
		},
	}
}

func TestBuildInMemory(t *testing.T) {
	cfg := memoryConfig(t)
	rulesPath := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`rules:
  - name: Breached critical
    when:
      priority: CRITICAL
      sla_status: BREACHED
    then:
      new_priority: CRITICAL
`), 0o600))
	cfg.Escalation.RulesFile = rulesPath

	ctx := context.Background()
	a, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.False(t, a.Postgres.Enabled())
	assert.False(t, a.Redis.Enabled())
	require.NotNil(t, a.Scheduler)

	admin, err := a.Repos.Agents.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", string(admin.Role))

	rules, err := a.Rules.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Breached critical", rules[0].Name)

	require.NoError(t, a.Start(ctx))
	assert.False(t, a.Scheduler.Next().IsZero())

	resp, err := a.HTTP().Test(httptest.NewRequest(fiber.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestBuildRejectsBadSchedule(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Escalation.Schedule = "every now and then"

	_, err := Build(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestBuildWithoutSchedulerOrAdmin(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Escalation.SchedulerEnabled = false
	cfg.Auth.SeedAdminEmail = ""

	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Scheduler)
	require.NoError(t, a.Start(context.Background()))
	agents, err := a.Repos.Agents.List(context.Background(), repository.AgentFilter{})
	require.NoError(t, err)
	assert.Empty(t, agents)
}
