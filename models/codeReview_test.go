package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeReviewResultRoundTrip(t *testing.T) {
	result := ReviewResult{
		Score:   72,
		Summary: "It compiles. Barely.",
		Feedback: []FeedbackItem{
			{Type: FeedbackRoast, Message: "Variable names from a ransom note."},
			{Type: FeedbackPositive, Message: "Consistent indentation."},
		},
		Metrics: Metrics{Readability: 60, Maintainability: 55, Efficiency: 80, BestPractices: 40, Security: 90},
	}

	row := NewCodeReview("user-1", "x := 1", "go", result)
	assert.Equal(t, "user-1", row.UserId)
	assert.Equal(t, result, row.Result())

	raw, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"bestPractices":40`)
	assert.NotContains(t, string(raw), "user-1")
}

func TestSubscriptionHasPlaceholderCustomer(t *testing.T) {
	assert.True(t, (&Subscription{StripeCustomerId: "cus_free_123"}).HasPlaceholderCustomer())
	assert.True(t, (&Subscription{}).HasPlaceholderCustomer())
	assert.False(t, (&Subscription{StripeCustomerId: "cus_N1x"}).HasPlaceholderCustomer())
}

func TestTeamRoleCanManage(t *testing.T) {
	assert.True(t, RoleOwner.CanManage())
	assert.True(t, RoleAdmin.CanManage())
	assert.False(t, RoleMember.CanManage())
}
