// internal/models/subscription_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionTransitionGuards(t *testing.T) {
	tests := []struct {
		status  SubscriptionStatus
		approve bool
		reject  bool
		cancel  bool
		delete  bool
	}{
		{SubscriptionStatusPending, true, true, false, true},
		{SubscriptionStatusActive, false, false, true, false},
		{SubscriptionStatusRejected, false, false, false, true},
		{SubscriptionStatusExpired, false, false, false, false},
		{SubscriptionStatusCancelled, false, false, false, false},
	}

	for _, tt := range tests {
		sub := &Subscription{Status: tt.status}
		assert.Equal(t, tt.approve, sub.CanApprove(), "%s: CanApprove", tt.status)
		assert.Equal(t, tt.reject, sub.CanReject(), "%s: CanReject", tt.status)
		assert.Equal(t, tt.cancel, sub.CanCancel(), "%s: CanCancel", tt.status)
		assert.Equal(t, tt.delete, sub.CanDelete(), "%s: CanDelete", tt.status)
	}
}

func TestSubscriptionCancelIsNotRepeatable(t *testing.T) {
	sub := &Subscription{Status: SubscriptionStatusActive}
	assert.True(t, sub.CanCancel())

	sub.Status = SubscriptionStatusCancelled
	assert.False(t, sub.CanCancel())
}

func TestRequiresReapprovalAfterUpdate(t *testing.T) {
	assert.True(t, (&Subscription{Status: SubscriptionStatusActive}).RequiresReapprovalAfterUpdate())
	assert.False(t, (&Subscription{Status: SubscriptionStatusPending}).RequiresReapprovalAfterUpdate())
	assert.False(t, (&Subscription{Status: SubscriptionStatusRejected}).RequiresReapprovalAfterUpdate())
	assert.False(t, (&Subscription{Status: SubscriptionStatusCancelled}).RequiresReapprovalAfterUpdate())
}
