// internal/models/payment_cycle_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCycleStatusIsTerminal(t *testing.T) {
	terminal := []CycleStatus{CycleStatusCompleted, CycleStatusDeclined, CycleStatusCancelled}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), "expected %s to be terminal", status)
	}

	open := []CycleStatus{CycleStatusPendingPayment, CycleStatusPaymentRecorded, CycleStatusApproved, CycleStatusInvoiceUploaded}
	for _, status := range open {
		assert.False(t, status.IsTerminal(), "expected %s to be open", status)
	}
}

func TestTerminalCycleStatusesMatchIsTerminal(t *testing.T) {
	all := []CycleStatus{
		CycleStatusPendingPayment, CycleStatusPaymentRecorded, CycleStatusApproved,
		CycleStatusInvoiceUploaded, CycleStatusCompleted, CycleStatusDeclined, CycleStatusCancelled,
	}

	listed := make(map[CycleStatus]bool)
	for _, status := range TerminalCycleStatuses() {
		listed[status] = true
	}
	for _, status := range all {
		assert.Equal(t, status.IsTerminal(), listed[status], "status %s", status)
	}
}

func TestPaymentCycleTransitionGuards(t *testing.T) {
	tests := []struct {
		status        CycleStatus
		recordPayment bool
		approve       bool
		reject        bool
		uploadInvoice bool
		complete      bool
		cancel        bool
	}{
		{CycleStatusPendingPayment, true, false, false, false, false, true},
		{CycleStatusPaymentRecorded, false, true, true, true, false, true},
		{CycleStatusApproved, false, false, false, true, false, false},
		{CycleStatusInvoiceUploaded, false, false, false, false, true, false},
		{CycleStatusCompleted, false, false, false, false, false, false},
		{CycleStatusDeclined, false, false, false, false, false, false},
		{CycleStatusCancelled, false, false, false, false, false, false},
	}

	for _, tt := range tests {
		cycle := &PaymentCycle{Status: tt.status}
		assert.Equal(t, tt.recordPayment, cycle.CanRecordPayment(), "%s: CanRecordPayment", tt.status)
		assert.Equal(t, tt.approve, cycle.CanApproveRenewal(), "%s: CanApproveRenewal", tt.status)
		assert.Equal(t, tt.reject, cycle.CanRejectRenewal(), "%s: CanRejectRenewal", tt.status)
		assert.Equal(t, tt.uploadInvoice, cycle.CanUploadInvoice(), "%s: CanUploadInvoice", tt.status)
		assert.Equal(t, tt.complete, cycle.CanComplete(), "%s: CanComplete", tt.status)
		assert.Equal(t, tt.cancel, cycle.CanCancel(), "%s: CanCancel", tt.status)
	}
}

func TestTerminalCyclesRejectEveryTransition(t *testing.T) {
	for _, status := range []CycleStatus{CycleStatusCompleted, CycleStatusDeclined, CycleStatusCancelled} {
		cycle := &PaymentCycle{Status: status}
		assert.False(t, cycle.CanRecordPayment())
		assert.False(t, cycle.CanApproveRenewal())
		assert.False(t, cycle.CanRejectRenewal())
		assert.False(t, cycle.CanUploadInvoice())
		assert.False(t, cycle.CanComplete())
		assert.False(t, cycle.CanCancel())
	}
}

func TestInvoiceDeadlineFor(t *testing.T) {
	tests := []struct {
		name     string
		end      time.Time
		expected time.Time
	}{
		{
			name:     "mid-month end date",
			end:      time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end date already on last day",
			end:      time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "february non-leap year",
			end:      time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "february leap year",
			end:      time.Date(2028, time.February, 10, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "december rolls within same year",
			end:      time.Date(2026, time.December, 5, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InvoiceDeadlineFor(tt.end))
		})
	}
}
