package escalation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

const sampleRules = `
rules:
  - id: crit
    name: Critical breach to admin
    when:
      priority: CRITICAL
      sla_status: BREACHED
    then:
      assign_to: admin
  - name: Network backlog
    active: false
    when:
      category: NETWORK
    then:
      target_group: netops
      new_priority: HIGH
      note: routed to network operations
`

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules(strings.NewReader(sampleRules))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	first := rules[0]
	assert.Equal(t, "crit", first.ID)
	assert.True(t, first.IsActive)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, domain.TicketPriorityCritical, *first.Condition.Priority)
	assert.Equal(t, domain.SLAStatusBreached, *first.Condition.SLAStatus)
	assert.Nil(t, first.Condition.Category)
	assert.Equal(t, "admin", *first.Action.AssignToUserID)

	second := rules[1]
	assert.NotEmpty(t, second.ID)
	assert.False(t, second.IsActive)
	assert.Equal(t, 1, second.Position)
	assert.Equal(t, "netops", *second.Action.TargetGroupID)
	assert.Equal(t, domain.TicketPriorityHigh, *second.Action.NewPriority)
	assert.Equal(t, "routed to network operations", second.Action.Note)
}

func TestLoadRulesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown priority",
			body: "rules:\n  - name: x\n    when:\n      priority: URGENT\n",
			want: "URGENT",
		},
		{
			name: "missing name",
			body: "rules:\n  - when:\n      category: NETWORK\n",
			want: "name required",
		},
		{
			name: "unknown field",
			body: "rules:\n  - name: x\n    whenever: {}\n",
			want: "whenever",
		},
		{
			name: "duplicate id",
			body: "rules:\n  - id: a\n    name: one\n  - id: a\n    name: two\n",
			want: "duplicate id",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRules(strings.NewReader(tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadRulesEmptyDocument(t *testing.T) {
	rules, err := LoadRules(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestEncodeRulesRoundTrip(t *testing.T) {
	rules, err := LoadRules(strings.NewReader(sampleRules))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeRules(&buf, rules))

	again, err := LoadRules(&buf)
	require.NoError(t, err)
	require.Len(t, again, len(rules))
	for i := range rules {
		assert.Equal(t, rules[i].ID, again[i].ID)
		assert.Equal(t, rules[i].Name, again[i].Name)
		assert.Equal(t, rules[i].IsActive, again[i].IsActive)
		assert.Equal(t, rules[i].Condition, again[i].Condition)
		assert.Equal(t, rules[i].Action, again[i].Action)
	}
}
