// internal/models/payment_cycle.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentCycle struct {
	BaseModel
	SubscriptionID   uuid.UUID        `json:"subscription_id" gorm:"type:uuid;not null;index:idx_cycles_subscription_number,unique,where:deleted_at IS NULL"`
	CycleNumber      int              `json:"cycle_number" gorm:"not null;index:idx_cycles_subscription_number,unique,where:deleted_at IS NULL"`
	CycleStartDate   time.Time        `json:"cycle_start_date" gorm:"type:date;not null"`
	CycleEndDate     time.Time        `json:"cycle_end_date" gorm:"type:date;not null"`
	InvoiceDeadline  time.Time        `json:"invoice_deadline" gorm:"type:date;not null"`
	Status           CycleStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending_payment';index"`
	PaymentUTR       string           `json:"payment_utr" gorm:"size:100"`
	MandateID        string           `json:"mandate_id" gorm:"size:100"`
	PaymentStatus    PaymentStatus    `json:"payment_status" gorm:"type:varchar(20);not null;default:'unpaid'"`
	AccountingStatus AccountingStatus `json:"accounting_status" gorm:"type:varchar(20);not null;default:'pending'"`

	POCApproverID      *uuid.UUID `json:"poc_approver_id" gorm:"type:uuid"`
	POCApprovedAt      *time.Time `json:"poc_approved_at"`
	POCRejectionReason string     `json:"poc_rejection_reason" gorm:"type:text"`

	InvoiceFileID     *uuid.UUID `json:"invoice_file_id" gorm:"type:uuid"`
	InvoiceUploadedAt *time.Time `json:"invoice_uploaded_at"`

	PaymentRecordedByID *uuid.UUID `json:"payment_recorded_by_id" gorm:"type:uuid"`
	PaymentRecordedAt   *time.Time `json:"payment_recorded_at"`

	CancellationReason string `json:"cancellation_reason" gorm:"type:text"`

	// Relationships
	Subscription      Subscription `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionID"`
	POCApprover       *User        `json:"poc_approver,omitempty" gorm:"foreignKey:POCApproverID"`
	InvoiceFile       *InvoiceFile `json:"invoice_file,omitempty" gorm:"foreignKey:InvoiceFileID"`
	PaymentRecordedBy *User        `json:"payment_recorded_by,omitempty" gorm:"foreignKey:PaymentRecordedByID"`
}

// Transition guards, matching the consolidated lifecycle:
//
//	pending_payment --recordPayment--> payment_recorded --approve--> approved
//	  --uploadInvoice--> invoice_uploaded --complete--> completed
//	payment_recorded --decline--> declined
//	{pending_payment, payment_recorded} --cancel--> cancelled

func (c *PaymentCycle) CanRecordPayment() bool {
	return c.Status == CycleStatusPendingPayment
}

func (c *PaymentCycle) CanApproveRenewal() bool {
	return c.Status == CycleStatusPaymentRecorded
}

func (c *PaymentCycle) CanRejectRenewal() bool {
	return c.Status == CycleStatusPaymentRecorded
}

func (c *PaymentCycle) CanUploadInvoice() bool {
	return c.Status == CycleStatusApproved || c.Status == CycleStatusPaymentRecorded
}

func (c *PaymentCycle) CanComplete() bool {
	return c.Status == CycleStatusInvoiceUploaded
}

func (c *PaymentCycle) CanCancel() bool {
	return c.Status == CycleStatusPendingPayment || c.Status == CycleStatusPaymentRecorded
}

// InvoiceDeadlineFor returns the last calendar day of the month containing
// the cycle end date.
func InvoiceDeadlineFor(cycleEndDate time.Time) time.Time {
	return time.Date(cycleEndDate.Year(), cycleEndDate.Month()+1, 0, 0, 0, 0, 0, cycleEndDate.Location())
}

// InvoiceFile is the metadata row for an invoice stored in the blob store.
type InvoiceFile struct {
	BaseModel
	SubscriptionID uuid.UUID `json:"subscription_id" gorm:"type:uuid;not null;index"`
	StorageKey     string    `json:"storage_key" gorm:"size:500;not null"`
	FileName       string    `json:"file_name" gorm:"size:255;not null"`
	ContentType    string    `json:"content_type" gorm:"size:100"`
	SizeBytes      int64     `json:"size_bytes"`
	UploadedByID   uuid.UUID `json:"uploaded_by_id" gorm:"type:uuid;not null"`

	// Relationships
	UploadedBy User `json:"uploaded_by,omitempty" gorm:"foreignKey:UploadedByID"`
}
