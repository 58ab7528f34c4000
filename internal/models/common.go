// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleFinance UserRole = "finance"
	RolePOC     UserRole = "poc"
	RoleHOD     UserRole = "hod"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusRejected  SubscriptionStatus = "rejected"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// CycleStatus is the canonical payment-cycle vocabulary.
// payment_recorded is also the state awaiting POC approval.
type CycleStatus string

const (
	CycleStatusPendingPayment  CycleStatus = "pending_payment"
	CycleStatusPaymentRecorded CycleStatus = "payment_recorded"
	CycleStatusApproved        CycleStatus = "approved"
	CycleStatusInvoiceUploaded CycleStatus = "invoice_uploaded"
	CycleStatusCompleted       CycleStatus = "completed"
	CycleStatusDeclined        CycleStatus = "declined"
	CycleStatusCancelled       CycleStatus = "cancelled"
)

// TerminalCycleStatuses lists the cycle statuses with no outgoing
// transition.
func TerminalCycleStatuses() []CycleStatus {
	return []CycleStatus{CycleStatusCompleted, CycleStatusDeclined, CycleStatusCancelled}
}

// IsTerminal reports whether no further transition is possible from s.
func (s CycleStatus) IsTerminal() bool {
	for _, terminal := range TerminalCycleStatuses() {
		if s == terminal {
			return true
		}
	}
	return false
}

type BillingFrequency string

const (
	BillingFrequencyMonthly    BillingFrequency = "monthly"
	BillingFrequencyQuarterly  BillingFrequency = "quarterly"
	BillingFrequencyYearly     BillingFrequency = "yearly"
	BillingFrequencyUsageBased BillingFrequency = "usage_based"
)

type RequestType string

const (
	RequestTypeInvoice   RequestType = "invoice"
	RequestTypeQuotation RequestType = "quotation"
)

type ApprovalAction string

const (
	ApprovalActionApproved ApprovalAction = "approved"
	ApprovalActionRejected ApprovalAction = "rejected"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
)

type AccountingStatus string

const (
	AccountingStatusPending AccountingStatus = "pending"
	AccountingStatusBooked  AccountingStatus = "booked"
)
