// internal/models/subscription.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Subscription struct {
	BaseModel
	Code             string             `json:"code" gorm:"uniqueIndex;size:30;not null"`
	ToolName         string             `json:"tool_name" gorm:"size:255;not null;index"`
	VendorID         uuid.UUID          `json:"vendor_id" gorm:"type:uuid;not null;index"`
	DepartmentID     uuid.UUID          `json:"department_id" gorm:"type:uuid;not null;index"`
	LocationID       *uuid.UUID         `json:"location_id" gorm:"type:uuid;index"`
	Amount           float64            `json:"amount" gorm:"type:decimal(15,2);not null"`
	Currency         string             `json:"currency" gorm:"size:3;not null;default:'INR'"`
	AmountINR        float64            `json:"amount_inr" gorm:"type:decimal(15,2);not null"`
	BillingFrequency BillingFrequency   `json:"billing_frequency" gorm:"type:varchar(20);not null"`
	RequestType      RequestType        `json:"request_type" gorm:"type:varchar(20);not null"`
	StartDate        time.Time          `json:"start_date" gorm:"type:date;not null"`
	EndDate          *time.Time         `json:"end_date" gorm:"type:date"`
	LoginURL         string             `json:"login_url" gorm:"size:500"`
	ContactEmails    pq.StringArray     `json:"contact_emails" gorm:"type:text[]"`
	MandateID        string             `json:"mandate_id" gorm:"size:100"`
	Remarks          string             `json:"remarks" gorm:"type:text"`
	Version          int                `json:"version" gorm:"not null;default:1"`
	Status           SubscriptionStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus    PaymentStatus      `json:"payment_status" gorm:"type:varchar(20);not null;default:'unpaid'"`
	AccountingStatus AccountingStatus   `json:"accounting_status" gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedByID      uuid.UUID          `json:"created_by_id" gorm:"type:uuid;not null;index"`

	// Relationships
	Vendor     Vendor         `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Department Department     `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	Location   *Location      `json:"location,omitempty" gorm:"foreignKey:LocationID"`
	CreatedBy  User           `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
	Cycles     []PaymentCycle `json:"cycles,omitempty" gorm:"foreignKey:SubscriptionID"`
}

// Transition guards. Kept as pure methods so the approval matrix and the
// service layer share one definition of what is legal from each status.

func (s *Subscription) CanApprove() bool {
	return s.Status == SubscriptionStatusPending
}

func (s *Subscription) CanReject() bool {
	return s.Status == SubscriptionStatusPending
}

func (s *Subscription) CanCancel() bool {
	return s.Status == SubscriptionStatusActive
}

// CanDelete allows hard deletion only before the subscription ever went
// live; cycle references are checked separately against the store.
func (s *Subscription) CanDelete() bool {
	return s.Status == SubscriptionStatusPending || s.Status == SubscriptionStatusRejected
}

// RequiresReapprovalAfterUpdate reports whether an edit must push the
// subscription back through POC approval.
func (s *Subscription) RequiresReapprovalAfterUpdate() bool {
	return s.Status == SubscriptionStatusActive
}

// SubscriptionApproval is the append-only approval trail. Rows are never
// updated or deleted.
type SubscriptionApproval struct {
	BaseModel
	SubscriptionID uuid.UUID      `json:"subscription_id" gorm:"type:uuid;not null;index"`
	ApproverID     uuid.UUID      `json:"approver_id" gorm:"type:uuid;not null;index"`
	Action         ApprovalAction `json:"action" gorm:"type:varchar(20);not null"`
	Comments       string         `json:"comments" gorm:"type:text"`

	// Relationships
	Subscription Subscription `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionID"`
	Approver     User         `json:"approver,omitempty" gorm:"foreignKey:ApproverID"`
}
