package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" In_Progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st)

	_, err = ParseStatus("done")
	assert.True(t, common.IsBadRequest(err))
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	p, err = ParsePriority("URGENT")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	_, err = ParsePriority("asap")
	assert.True(t, common.IsBadRequest(err))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTitlePrefix(t *testing.T) {
	assert.Equal(t, "URGENT: ", PriorityUrgent.TitlePrefix())
	assert.Equal(t, "HIGH PRIORITY: ", PriorityHigh.TitlePrefix())
	assert.Empty(t, PriorityLow.TitlePrefix())
}

func TestParsePriorityPolicy(t *testing.T) {
	p, ok := ParsePriorityPolicy("Assignee")
	assert.True(t, ok)
	assert.Equal(t, PolicyAssignee, p)

	p, ok = ParsePriorityPolicy("")
	assert.True(t, ok)
	assert.Equal(t, PolicyOpen, p)

	p, ok = ParsePriorityPolicy("landlord-only")
	assert.False(t, ok)
	assert.Equal(t, PolicyOpen, p)
}

func TestAuthorize(t *testing.T) {
	req := &dbsql.MaintenanceRequest{
		ID:         "r1",
		TenantID:   "tenant",
		LandlordID: "landlord",
		AssignedTo: "facilitator",
		Status:     string(StatusInProgress),
	}

	tests := []struct {
		name  string
		actor string
		a     action
		check func(error) bool
	}{
		{"assignee moves status", "facilitator", action{kind: changeStatus, to: StatusCompleted}, nil},
		{"landlord cannot move status", "landlord", action{kind: changeStatus, to: StatusCompleted}, common.IsForbidden},
		{"tenant cannot move status", "tenant", action{kind: changeStatus, to: StatusCancelled}, common.IsForbidden},
		{"backwards transition", "facilitator", action{kind: changeStatus, to: StatusPending}, common.IsBadRequest},
		{"missing actor", "", action{kind: changeStatus, to: StatusCompleted}, common.IsBadRequest},
		{"open priority", "tenant", action{kind: changePriority, policy: PolicyOpen}, nil},
		{"stranger cannot change priority", "stranger", action{kind: changePriority, policy: PolicyOpen}, common.IsForbidden},
		{"assignee priority policy", "tenant", action{kind: changePriority, policy: PolicyAssignee}, common.IsForbidden},
		{"tenant comments", "tenant", action{kind: addComment}, nil},
		{"landlord comments", "landlord", action{kind: addComment}, nil},
		{"stranger comments", "stranger", action{kind: addComment}, common.IsForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorize(req, tt.actor, tt.a)
			if tt.check == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestAuthorize_TerminalState(t *testing.T) {
	req := &dbsql.MaintenanceRequest{ID: "r1", AssignedTo: "a", Status: string(StatusCancelled)}
	err := authorize(req, "a", action{kind: changeStatus, to: StatusInProgress})
	assert.True(t, common.IsBadRequest(err))

	assert.NoError(t, authorize(req, "a", action{kind: changeStatus, to: StatusCancelled}))
}
