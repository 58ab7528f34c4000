// internal/services/payment_cycle_service.go
package services

import (
	"errors"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

type PaymentCycleService struct {
	db                  *gorm.DB
	authz               *AuthorizationService
	storageService      *StorageService
	notificationService *NotificationService
}

type CreateCycleRequest struct {
	SubscriptionID uuid.UUID `json:"subscription_id" validate:"required"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

type RecordPaymentRequest struct {
	UTR              string                  `json:"utr" validate:"required,utr"`
	PaymentStatus    models.PaymentStatus    `json:"payment_status" validate:"required,oneof=paid partially_paid"`
	AccountingStatus models.AccountingStatus `json:"accounting_status" validate:"required,oneof=pending booked"`
	MandateID        string                  `json:"mandate_id,omitempty" validate:"max=100"`
}

type ApproveRenewalRequest struct {
	Comments string `json:"comments,omitempty"`
}

type RejectRenewalRequest struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

type CancelCycleRequest struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

type CycleSearchParams struct {
	utils.PaginationParams
	SubscriptionID *uuid.UUID          `json:"subscription_id,omitempty"`
	Status         *models.CycleStatus `json:"status,omitempty"`
	DeadlineBefore *time.Time          `json:"deadline_before,omitempty"`
}

func NewPaymentCycleService(db *gorm.DB, authz *AuthorizationService, storageService *StorageService, notificationService *NotificationService) *PaymentCycleService {
	return &PaymentCycleService{
		db:                  db,
		authz:               authz,
		storageService:      storageService,
		notificationService: notificationService,
	}
}

// CreateCycle opens the next billing period for an active subscription.
// Cycle numbers are allocated as max(existing)+1 under a unique index on
// (subscription_id, cycle_number); a racing creator hits the index and
// observes a conflict.
func (s *PaymentCycleService) CreateCycle(actorID uuid.UUID, req *CreateCycleRequest) (*models.PaymentCycle, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpCycleCreate); err != nil {
		return nil, err
	}

	var subscription models.Subscription
	if err := s.db.First(&subscription, "id = ?", req.SubscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("subscription")
		}
		return nil, apperrors.Storage("failed to fetch subscription", err)
	}

	if subscription.Status != models.SubscriptionStatusActive {
		return nil, apperrors.InvalidState("payment cycles can only be created for active subscriptions")
	}

	var openCount int64
	if err := s.db.Model(&models.PaymentCycle{}).
		Where("subscription_id = ? AND status NOT IN ?", req.SubscriptionID, models.TerminalCycleStatuses()).
		Count(&openCount).Error; err != nil {
		return nil, apperrors.Storage("failed to check open cycles", err)
	}
	if openCount > 0 {
		return nil, apperrors.InvalidState("subscription already has an open payment cycle")
	}

	var maxNumber int64
	if err := s.db.Model(&models.PaymentCycle{}).
		Where("subscription_id = ?", req.SubscriptionID).
		Select("COALESCE(MAX(cycle_number), 0)").
		Scan(&maxNumber).Error; err != nil {
		return nil, apperrors.Storage("failed to allocate cycle number", err)
	}

	cycle := &models.PaymentCycle{
		SubscriptionID:   req.SubscriptionID,
		CycleNumber:      int(maxNumber) + 1,
		CycleStartDate:   req.StartDate,
		CycleEndDate:     req.EndDate,
		InvoiceDeadline:  models.InvoiceDeadlineFor(req.EndDate),
		Status:           models.CycleStatusPendingPayment,
		PaymentStatus:    models.PaymentStatusUnpaid,
		AccountingStatus: models.AccountingStatusPending,
		MandateID:        subscription.MandateID,
	}

	if err := s.db.Create(cycle).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("payment cycle")
		}
		return nil, apperrors.Storage("failed to create payment cycle", err)
	}

	return cycle, nil
}

// RecordPayment stores the bank transfer proof and advances the cycle to
// payment_recorded, where it waits for POC approval.
func (s *PaymentCycleService) RecordPayment(cycleID, actorID uuid.UUID, req *RecordPaymentRequest) (*models.PaymentCycle, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpCycleRecordPayment); err != nil {
		return nil, err
	}

	cycle, err := s.fetch(cycleID)
	if err != nil {
		return nil, err
	}

	if !cycle.CanRecordPayment() {
		return nil, apperrors.InvalidState("payment can only be recorded while the cycle is pending payment, current status is " + string(cycle.Status))
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":                 models.CycleStatusPaymentRecorded,
		"payment_utr":            req.UTR,
		"payment_status":         req.PaymentStatus,
		"accounting_status":      req.AccountingStatus,
		"payment_recorded_by_id": actor.ID,
		"payment_recorded_at":    now,
	}
	if req.MandateID != "" {
		updates["mandate_id"] = req.MandateID
	}

	result := s.db.Model(&models.PaymentCycle{}).
		Where("id = ? AND status = ?", cycle.ID, models.CycleStatusPendingPayment).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Storage("failed to record payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("payment cycle")
	}

	updated, err := s.fetch(cycleID)
	if err != nil {
		return nil, err
	}

	go s.notificationService.SendCycleAwaitingApproval(updated)

	return updated, nil
}

func (s *PaymentCycleService) ApproveRenewal(cycleID, actorID uuid.UUID, req *ApproveRenewalRequest) (*models.PaymentCycle, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}

	cycle, err := s.fetchWithSubscription(cycleID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.AuthorizeForDepartment(actor, OpCycleApprove, cycle.Subscription.DepartmentID); err != nil {
		return nil, err
	}

	if !cycle.CanApproveRenewal() {
		return nil, apperrors.InvalidState("renewal can only be approved while the cycle awaits approval, current status is " + string(cycle.Status))
	}

	now := time.Now()
	result := s.db.Model(&models.PaymentCycle{}).
		Where("id = ? AND status = ?", cycle.ID, models.CycleStatusPaymentRecorded).
		Updates(map[string]interface{}{
			"status":          models.CycleStatusApproved,
			"poc_approver_id": actor.ID,
			"poc_approved_at": now,
		})
	if result.Error != nil {
		return nil, apperrors.Storage("failed to approve renewal", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("payment cycle")
	}

	return s.fetch(cycleID)
}

// RejectRenewal declines the billing period and discontinues the parent
// subscription: a renewal rejection means the department no longer wants
// the tool, so the subscription is cancelled in the same transaction.
func (s *PaymentCycleService) RejectRenewal(cycleID, actorID uuid.UUID, req *RejectRenewalRequest) (*models.PaymentCycle, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}

	cycle, err := s.fetchWithSubscription(cycleID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.AuthorizeForDepartment(actor, OpCycleReject, cycle.Subscription.DepartmentID); err != nil {
		return nil, err
	}

	if !cycle.CanRejectRenewal() {
		return nil, apperrors.InvalidState("renewal can only be rejected while the cycle awaits approval, current status is " + string(cycle.Status))
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentCycle{}).
			Where("id = ? AND status = ?", cycle.ID, models.CycleStatusPaymentRecorded).
			Updates(map[string]interface{}{
				"status":               models.CycleStatusDeclined,
				"poc_approver_id":      actor.ID,
				"poc_approved_at":      now,
				"poc_rejection_reason": req.Reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("payment cycle")
		}

		// Cascade: discontinue the parent subscription if still active
		return tx.Model(&models.Subscription{}).
			Where("id = ? AND status = ?", cycle.SubscriptionID, models.SubscriptionStatusActive).
			Updates(map[string]interface{}{
				"status":  models.SubscriptionStatusCancelled,
				"version": gorm.Expr("version + 1"),
			}).Error
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Storage("failed to reject renewal", err)
	}

	updated, err := s.fetch(cycleID)
	if err != nil {
		return nil, err
	}

	go s.notificationService.SendCycleDeclined(updated)

	return updated, nil
}

// UploadInvoice stores the file in the blob store, links it to the cycle
// and advances the status. The file row is created against the cycle's
// own subscription, which keeps the file/subscription invariant.
func (s *PaymentCycleService) UploadInvoice(cycleID, actorID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.PaymentCycle, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}

	cycle, err := s.fetchWithSubscription(cycleID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.AuthorizeForDepartment(actor, OpCycleUploadInvoice, cycle.Subscription.DepartmentID); err != nil {
		return nil, err
	}

	if !cycle.CanUploadInvoice() {
		return nil, apperrors.InvalidState("invoice can only be uploaded while the cycle is approved or payment is recorded, current status is " + string(cycle.Status))
	}

	uploadResult, err := s.storageService.UploadInvoice(file, header, cycle.SubscriptionID)
	if err != nil {
		return nil, err
	}

	invoiceFile := &models.InvoiceFile{
		SubscriptionID: cycle.SubscriptionID,
		StorageKey:     uploadResult.Key,
		FileName:       header.Filename,
		ContentType:    uploadResult.MimeType,
		SizeBytes:      uploadResult.Size,
		UploadedByID:   actor.ID,
	}
	if err := s.db.Create(invoiceFile).Error; err != nil {
		return nil, apperrors.Storage("failed to store invoice metadata", err)
	}

	now := time.Now()
	result := s.db.Model(&models.PaymentCycle{}).
		Where("id = ? AND status IN ?", cycle.ID, []models.CycleStatus{models.CycleStatusApproved, models.CycleStatusPaymentRecorded}).
		Updates(map[string]interface{}{
			"status":              models.CycleStatusInvoiceUploaded,
			"invoice_file_id":     invoiceFile.ID,
			"invoice_uploaded_at": now,
		})
	if result.Error != nil {
		return nil, apperrors.Storage("failed to link invoice", result.Error)
	}
	if result.RowsAffected == 0 {
		// Another writer moved the cycle while the file was uploading;
		// the orphaned file row and blob are removed best-effort.
		if err := s.db.Unscoped().Delete(invoiceFile).Error; err != nil {
			logrus.WithError(err).WithField("invoice_file_id", invoiceFile.ID).
				Error("Failed to remove orphaned invoice file")
		}
		if err := s.storageService.DeleteObject(uploadResult.Key); err != nil {
			logrus.WithError(err).WithField("storage_key", uploadResult.Key).
				Error("Failed to remove orphaned invoice blob")
		}
		return nil, apperrors.Conflict("payment cycle")
	}

	return s.fetch(cycleID)
}

// LinkInvoiceFile attaches an already-uploaded file to a cycle. The file
// must belong to the cycle's subscription.
func (s *PaymentCycleService) LinkInvoiceFile(cycleID, fileID, actorID uuid.UUID) (*models.PaymentCycle, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}

	cycle, err := s.fetchWithSubscription(cycleID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.AuthorizeForDepartment(actor, OpCycleUploadInvoice, cycle.Subscription.DepartmentID); err != nil {
		return nil, err
	}

	if !cycle.CanUploadInvoice() {
		return nil, apperrors.InvalidState("invoice can only be linked while the cycle is approved or payment is recorded, current status is " + string(cycle.Status))
	}

	var invoiceFile models.InvoiceFile
	if err := s.db.First(&invoiceFile, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("invoice file")
		}
		return nil, apperrors.Storage("failed to fetch invoice file", err)
	}

	if invoiceFile.SubscriptionID != cycle.SubscriptionID {
		return nil, apperrors.Validation("invoice file belongs to a different subscription")
	}

	now := time.Now()
	result := s.db.Model(&models.PaymentCycle{}).
		Where("id = ? AND status IN ?", cycle.ID, []models.CycleStatus{models.CycleStatusApproved, models.CycleStatusPaymentRecorded}).
		Updates(map[string]interface{}{
			"status":              models.CycleStatusInvoiceUploaded,
			"invoice_file_id":     invoiceFile.ID,
			"invoice_uploaded_at": now,
		})
	if result.Error != nil {
		return nil, apperrors.Storage("failed to link invoice", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("payment cycle")
	}

	return s.fetch(cycleID)
}

func (s *PaymentCycleService) CompleteCycle(cycleID, actorID uuid.UUID) (*models.PaymentCycle, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpCycleComplete); err != nil {
		return nil, err
	}

	cycle, err := s.fetch(cycleID)
	if err != nil {
		return nil, err
	}

	if !cycle.CanComplete() {
		return nil, apperrors.InvalidState("only cycles with an uploaded invoice can be completed, current status is " + string(cycle.Status))
	}

	result := s.db.Model(&models.PaymentCycle{}).
		Where("id = ? AND status = ?", cycle.ID, models.CycleStatusInvoiceUploaded).
		Update("status", models.CycleStatusCompleted)
	if result.Error != nil {
		return nil, apperrors.Storage("failed to complete cycle", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("payment cycle")
	}

	return s.fetch(cycleID)
}

func (s *PaymentCycleService) CancelCycle(cycleID, actorID uuid.UUID, req *CancelCycleRequest) (*models.PaymentCycle, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpCycleCancel); err != nil {
		return nil, err
	}

	cycle, err := s.fetch(cycleID)
	if err != nil {
		return nil, err
	}

	if !cycle.CanCancel() {
		return nil, apperrors.InvalidState("cycle can only be cancelled before approval, current status is " + string(cycle.Status))
	}

	result := s.db.Model(&models.PaymentCycle{}).
		Where("id = ? AND status IN ?", cycle.ID, []models.CycleStatus{models.CycleStatusPendingPayment, models.CycleStatusPaymentRecorded}).
		Updates(map[string]interface{}{
			"status":              models.CycleStatusCancelled,
			"cancellation_reason": req.Reason,
		})
	if result.Error != nil {
		return nil, apperrors.Storage("failed to cancel cycle", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("payment cycle")
	}

	return s.fetch(cycleID)
}

func (s *PaymentCycleService) Get(cycleID, actorID uuid.UUID) (*models.PaymentCycle, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpRead); err != nil {
		return nil, err
	}

	var cycle models.PaymentCycle
	if err := s.db.Preload("Subscription").Preload("POCApprover").
		Preload("InvoiceFile").Preload("PaymentRecordedBy").
		First(&cycle, "id = ?", cycleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment cycle")
		}
		return nil, apperrors.Storage("failed to fetch payment cycle", err)
	}

	return &cycle, nil
}

func (s *PaymentCycleService) Search(actorID uuid.UUID, params CycleSearchParams) ([]models.PaymentCycle, int64, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authz.Authorize(actor, OpRead); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.PaymentCycle{}).Preload("Subscription")

	if actor.Role == models.RolePOC {
		query = query.Where("subscription_id IN (SELECT id FROM subscriptions WHERE department_id IN (SELECT department_id FROM user_departments WHERE user_id = ?))", actor.ID)
	}

	if params.SubscriptionID != nil {
		query = query.Where("subscription_id = ?", *params.SubscriptionID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.DeadlineBefore != nil {
		query = query.Where("invoice_deadline <= ?", *params.DeadlineBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to count payment cycles", err)
	}

	allowedSortFields := []string{"created_at", "cycle_number", "invoice_deadline", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var cycles []models.PaymentCycle
	if err := query.Find(&cycles).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to fetch payment cycles", err)
	}

	return cycles, total, nil
}

func (s *PaymentCycleService) fetch(cycleID uuid.UUID) (*models.PaymentCycle, error) {
	var cycle models.PaymentCycle
	if err := s.db.First(&cycle, "id = ?", cycleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment cycle")
		}
		return nil, apperrors.Storage("failed to fetch payment cycle", err)
	}
	return &cycle, nil
}

func (s *PaymentCycleService) fetchWithSubscription(cycleID uuid.UUID) (*models.PaymentCycle, error) {
	var cycle models.PaymentCycle
	if err := s.db.Preload("Subscription").First(&cycle, "id = ?", cycleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment cycle")
		}
		return nil, apperrors.Storage("failed to fetch payment cycle", err)
	}
	return &cycle, nil
}
