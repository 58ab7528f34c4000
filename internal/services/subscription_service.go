// internal/services/subscription_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

// WarningRequiresReapproval rides on a successful update of an active
// subscription: the edit went through, but POC approval is needed again.
const WarningRequiresReapproval = "subscription was active and has been moved back to pending; it requires re-approval"

type SubscriptionService struct {
	db                  *gorm.DB
	authz               *AuthorizationService
	notificationService *NotificationService
}

type CreateSubscriptionRequest struct {
	ToolName         string                  `json:"tool_name" validate:"required,max=255"`
	VendorID         uuid.UUID               `json:"vendor_id" validate:"required"`
	DepartmentID     uuid.UUID               `json:"department_id" validate:"required"`
	LocationID       *uuid.UUID              `json:"location_id,omitempty"`
	Amount           float64                 `json:"amount" validate:"required,gt=0"`
	Currency         string                  `json:"currency" validate:"required,len=3"`
	AmountINR        float64                 `json:"amount_inr" validate:"required,gt=0"`
	BillingFrequency models.BillingFrequency `json:"billing_frequency" validate:"required,oneof=monthly quarterly yearly usage_based"`
	RequestType      models.RequestType      `json:"request_type" validate:"required,oneof=invoice quotation"`
	StartDate        time.Time               `json:"start_date" validate:"required"`
	EndDate          *time.Time              `json:"end_date,omitempty"`
	LoginURL         string                  `json:"login_url,omitempty" validate:"omitempty,url"`
	ContactEmails    []string                `json:"contact_emails,omitempty" validate:"dive,email"`
	MandateID        string                  `json:"mandate_id,omitempty" validate:"max=100"`
	Remarks          string                  `json:"remarks,omitempty"`
}

type UpdateSubscriptionRequest struct {
	ExpectedVersion  int                      `json:"expected_version" validate:"required,min=1"`
	ToolName         *string                  `json:"tool_name,omitempty" validate:"omitempty,max=255"`
	VendorID         *uuid.UUID               `json:"vendor_id,omitempty"`
	LocationID       *uuid.UUID               `json:"location_id,omitempty"`
	Amount           *float64                 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Currency         *string                  `json:"currency,omitempty" validate:"omitempty,len=3"`
	AmountINR        *float64                 `json:"amount_inr,omitempty" validate:"omitempty,gt=0"`
	BillingFrequency *models.BillingFrequency `json:"billing_frequency,omitempty" validate:"omitempty,oneof=monthly quarterly yearly usage_based"`
	EndDate          *time.Time               `json:"end_date,omitempty"`
	LoginURL         *string                  `json:"login_url,omitempty" validate:"omitempty,url"`
	ContactEmails    []string                 `json:"contact_emails,omitempty" validate:"dive,email"`
	MandateID        *string                  `json:"mandate_id,omitempty" validate:"omitempty,max=100"`
	Remarks          *string                  `json:"remarks,omitempty"`
	PaymentStatus    *models.PaymentStatus    `json:"payment_status,omitempty" validate:"omitempty,oneof=unpaid paid partially_paid"`
	AccountingStatus *models.AccountingStatus `json:"accounting_status,omitempty" validate:"omitempty,oneof=pending booked"`
}

type ApproveSubscriptionRequest struct {
	Comments string `json:"comments,omitempty"`
}

type RejectSubscriptionRequest struct {
	Comments string `json:"comments" validate:"required,min=10"`
}

type SubscriptionSearchParams struct {
	utils.PaginationParams
	Status       *models.SubscriptionStatus `json:"status,omitempty"`
	DepartmentID *uuid.UUID                 `json:"department_id,omitempty"`
	VendorID     *uuid.UUID                 `json:"vendor_id,omitempty"`
	StartAfter   *time.Time                 `json:"start_after,omitempty"`
	StartBefore  *time.Time                 `json:"start_before,omitempty"`
}

func NewSubscriptionService(db *gorm.DB, authz *AuthorizationService, notificationService *NotificationService) *SubscriptionService {
	return &SubscriptionService{
		db:                  db,
		authz:               authz,
		notificationService: notificationService,
	}
}

func (s *SubscriptionService) Create(actorID uuid.UUID, req *CreateSubscriptionRequest) (*models.Subscription, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpSubscriptionCreate); err != nil {
		return nil, err
	}

	if err := s.checkReferences(req.VendorID, req.DepartmentID, req.LocationID); err != nil {
		return nil, err
	}

	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		return nil, apperrors.Validation("end_date must be after start_date")
	}

	code, err := utils.GenerateSubscriptionCode()
	if err != nil {
		return nil, apperrors.Storage("failed to generate subscription code", err)
	}

	subscription := &models.Subscription{
		Code:             code,
		ToolName:         req.ToolName,
		VendorID:         req.VendorID,
		DepartmentID:     req.DepartmentID,
		LocationID:       req.LocationID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		AmountINR:        req.AmountINR,
		BillingFrequency: req.BillingFrequency,
		RequestType:      req.RequestType,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		LoginURL:         req.LoginURL,
		ContactEmails:    pq.StringArray(req.ContactEmails),
		MandateID:        req.MandateID,
		Remarks:          req.Remarks,
		Version:          1,
		Status:           models.SubscriptionStatusPending,
		PaymentStatus:    models.PaymentStatusUnpaid,
		AccountingStatus: models.AccountingStatusPending,
		CreatedByID:      actor.ID,
	}

	if err := s.db.Create(subscription).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("subscription code")
		}
		return nil, apperrors.Storage("failed to create subscription", err)
	}

	s.db.Preload("Vendor").Preload("Department").Preload("Location").First(subscription, subscription.ID)

	go s.notificationService.SendSubscriptionPendingApproval(subscription)

	return subscription, nil
}

// Approve moves a pending subscription to active. The write is a single
// conditional UPDATE keyed by (id, version, status); zero rows affected
// with the row still present means another writer won the race.
func (s *SubscriptionService) Approve(subscriptionID, actorID uuid.UUID, req *ApproveSubscriptionRequest) (*models.Subscription, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}

	subscription, err := s.fetch(subscriptionID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.AuthorizeForDepartment(actor, OpSubscriptionApprove, subscription.DepartmentID); err != nil {
		return nil, err
	}

	if !subscription.CanApprove() {
		return nil, apperrors.InvalidState("only pending subscriptions can be approved, current status is " + string(subscription.Status))
	}

	result := s.db.Model(&models.Subscription{}).
		Where("id = ? AND version = ? AND status = ?", subscription.ID, subscription.Version, models.SubscriptionStatusPending).
		Updates(map[string]interface{}{
			"status":  models.SubscriptionStatusActive,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, apperrors.Storage("failed to approve subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("subscription")
	}

	s.appendApprovalRecord(subscription.ID, actor.ID, models.ApprovalActionApproved, req.Comments)

	return s.fetch(subscriptionID)
}

func (s *SubscriptionService) Reject(subscriptionID, actorID uuid.UUID, req *RejectSubscriptionRequest) (*models.Subscription, error) {
	// Comment length is checked before any store access
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}

	subscription, err := s.fetch(subscriptionID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.AuthorizeForDepartment(actor, OpSubscriptionReject, subscription.DepartmentID); err != nil {
		return nil, err
	}

	if !subscription.CanReject() {
		return nil, apperrors.InvalidState("only pending subscriptions can be rejected, current status is " + string(subscription.Status))
	}

	result := s.db.Model(&models.Subscription{}).
		Where("id = ? AND version = ? AND status = ?", subscription.ID, subscription.Version, models.SubscriptionStatusPending).
		Updates(map[string]interface{}{
			"status":  models.SubscriptionStatusRejected,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, apperrors.Storage("failed to reject subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("subscription")
	}

	s.appendApprovalRecord(subscription.ID, actor.ID, models.ApprovalActionRejected, req.Comments)

	return s.fetch(subscriptionID)
}

// Cancel moves an active subscription to cancelled. Cancelling an
// already-cancelled subscription is an invalid-state error, not a no-op.
func (s *SubscriptionService) Cancel(subscriptionID, actorID uuid.UUID) (*models.Subscription, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpSubscriptionCancel); err != nil {
		return nil, err
	}

	subscription, err := s.fetch(subscriptionID)
	if err != nil {
		return nil, err
	}

	if !subscription.CanCancel() {
		return nil, apperrors.InvalidState("only active subscriptions can be cancelled, current status is " + string(subscription.Status))
	}

	result := s.db.Model(&models.Subscription{}).
		Where("id = ? AND version = ? AND status = ?", subscription.ID, subscription.Version, models.SubscriptionStatusActive).
		Updates(map[string]interface{}{
			"status":  models.SubscriptionStatusCancelled,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, apperrors.Storage("failed to cancel subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("subscription")
	}

	return s.fetch(subscriptionID)
}

// Update applies the patch under the caller-supplied expected version.
// Editing an active subscription forces it back to pending; this is
// reported through the returned warning, not an error.
func (s *SubscriptionService) Update(subscriptionID, actorID uuid.UUID, req *UpdateSubscriptionRequest) (*models.Subscription, string, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, "", apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, "", err
	}
	if err := s.authz.Authorize(actor, OpSubscriptionUpdate); err != nil {
		return nil, "", err
	}

	subscription, err := s.fetch(subscriptionID)
	if err != nil {
		return nil, "", err
	}

	updates := map[string]interface{}{
		"version": gorm.Expr("version + 1"),
	}
	if req.ToolName != nil {
		updates["tool_name"] = *req.ToolName
	}
	if req.VendorID != nil {
		updates["vendor_id"] = *req.VendorID
	}
	if req.LocationID != nil {
		updates["location_id"] = *req.LocationID
	}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.AmountINR != nil {
		updates["amount_inr"] = *req.AmountINR
	}
	if req.BillingFrequency != nil {
		updates["billing_frequency"] = *req.BillingFrequency
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if req.LoginURL != nil {
		updates["login_url"] = *req.LoginURL
	}
	if req.ContactEmails != nil {
		updates["contact_emails"] = pq.StringArray(req.ContactEmails)
	}
	if req.MandateID != nil {
		updates["mandate_id"] = *req.MandateID
	}
	if req.Remarks != nil {
		updates["remarks"] = *req.Remarks
	}
	if req.PaymentStatus != nil {
		updates["payment_status"] = *req.PaymentStatus
	}
	if req.AccountingStatus != nil {
		updates["accounting_status"] = *req.AccountingStatus
	}

	warning := ""
	if subscription.RequiresReapprovalAfterUpdate() {
		updates["status"] = models.SubscriptionStatusPending
		warning = WarningRequiresReapproval
	}

	result := s.db.Model(&models.Subscription{}).
		Where("id = ? AND version = ?", subscription.ID, req.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return nil, "", apperrors.Storage("failed to update subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, "", apperrors.Conflict("subscription")
	}

	updated, err := s.fetch(subscriptionID)
	if err != nil {
		return nil, "", err
	}

	return updated, warning, nil
}

// Delete hard-deletes a subscription that never went live. Dependent
// approval and invoice-file rows are removed in the same transaction.
func (s *SubscriptionService) Delete(subscriptionID, actorID uuid.UUID) error {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, OpSubscriptionDelete); err != nil {
		return err
	}

	subscription, err := s.fetch(subscriptionID)
	if err != nil {
		return err
	}

	if !subscription.CanDelete() {
		return apperrors.InvalidState("only pending or rejected subscriptions can be deleted, current status is " + string(subscription.Status))
	}

	var cycleCount int64
	if err := s.db.Model(&models.PaymentCycle{}).
		Where("subscription_id = ?", subscriptionID).
		Count(&cycleCount).Error; err != nil {
		return apperrors.Storage("failed to check payment cycles", err)
	}
	if cycleCount > 0 {
		return apperrors.InvalidState("subscription has payment cycles and cannot be deleted")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("subscription_id = ?", subscriptionID).Delete(&models.SubscriptionApproval{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("subscription_id = ?", subscriptionID).Delete(&models.InvoiceFile{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Subscription{}, subscriptionID).Error
	})
	if err != nil {
		return apperrors.Storage("failed to delete subscription", err)
	}

	return nil
}

func (s *SubscriptionService) Get(subscriptionID, actorID uuid.UUID) (*models.Subscription, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpRead); err != nil {
		return nil, err
	}

	var subscription models.Subscription
	if err := s.db.Preload("Vendor").Preload("Department").Preload("Location").
		Preload("CreatedBy").Preload("Cycles", func(db *gorm.DB) *gorm.DB {
		return db.Order("cycle_number ASC")
	}).First(&subscription, "id = ?", subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("subscription")
		}
		return nil, apperrors.Storage("failed to fetch subscription", err)
	}

	return &subscription, nil
}

func (s *SubscriptionService) Search(actorID uuid.UUID, params SubscriptionSearchParams) ([]models.Subscription, int64, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authz.Authorize(actor, OpRead); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Subscription{}).
		Preload("Vendor").Preload("Department").Preload("Location")

	// POCs only see subscriptions of their assigned departments
	if actor.Role == models.RolePOC {
		query = query.Where("department_id IN (SELECT department_id FROM user_departments WHERE user_id = ?)", actor.ID)
	}

	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("tool_name ILIKE ? OR code ILIKE ?", searchTerm, searchTerm)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.DepartmentID != nil {
		query = query.Where("department_id = ?", *params.DepartmentID)
	}
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.StartAfter != nil {
		query = query.Where("start_date >= ?", *params.StartAfter)
	}
	if params.StartBefore != nil {
		query = query.Where("start_date <= ?", *params.StartBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to count subscriptions", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "tool_name", "amount_inr", "start_date", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var subscriptions []models.Subscription
	if err := query.Find(&subscriptions).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to fetch subscriptions", err)
	}

	return subscriptions, total, nil
}

// GetApprovalHistory returns the append-only approval trail, oldest first.
func (s *SubscriptionService) GetApprovalHistory(subscriptionID, actorID uuid.UUID) ([]models.SubscriptionApproval, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpRead); err != nil {
		return nil, err
	}

	if _, err := s.fetch(subscriptionID); err != nil {
		return nil, err
	}

	var approvals []models.SubscriptionApproval
	if err := s.db.Preload("Approver").
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").
		Find(&approvals).Error; err != nil {
		return nil, apperrors.Storage("failed to fetch approval history", err)
	}

	return approvals, nil
}

// BulkUpdateAccountingStatus flips the accounting status for a batch of
// subscriptions in fixed-size sub-batches with per-item outcomes.
func (s *SubscriptionService) BulkUpdateAccountingStatus(actorID uuid.UUID, ids []uuid.UUID, status models.AccountingStatus) (*BulkResult, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpSubscriptionUpdate); err != nil {
		return nil, err
	}

	if len(ids) == 0 || len(ids) > maxBulkItems {
		return nil, apperrors.Validation("bulk request must contain between 1 and 500 ids")
	}

	result := runBulkUpdate(ids, bulkBatchSize, func(batch []uuid.UUID) ([]uuid.UUID, error) {
		var existing []uuid.UUID
		if err := s.db.Model(&models.Subscription{}).
			Where("id IN ?", batch).
			Pluck("id", &existing).Error; err != nil {
			return nil, err
		}

		if len(existing) > 0 {
			if err := s.db.Model(&models.Subscription{}).
				Where("id IN ?", existing).
				Update("accounting_status", status).Error; err != nil {
				return nil, err
			}
		}
		return existing, nil
	})

	return result, nil
}

func (s *SubscriptionService) fetch(subscriptionID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := s.db.First(&subscription, "id = ?", subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("subscription")
		}
		return nil, apperrors.Storage("failed to fetch subscription", err)
	}
	return &subscription, nil
}

// appendApprovalRecord writes the audit-trail row best-effort: a failed
// insert is logged and never fails the transition that produced it.
func (s *SubscriptionService) appendApprovalRecord(subscriptionID, approverID uuid.UUID, action models.ApprovalAction, comments string) {
	record := &models.SubscriptionApproval{
		SubscriptionID: subscriptionID,
		ApproverID:     approverID,
		Action:         action,
		Comments:       comments,
	}

	go func() {
		if err := s.db.Create(record).Error; err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"subscription_id": subscriptionID,
				"action":          action,
			}).Error("Failed to append approval record")
		}
	}()
}

func (s *SubscriptionService) checkReferences(vendorID, departmentID uuid.UUID, locationID *uuid.UUID) error {
	var vendor models.Vendor
	if err := s.db.First(&vendor, "id = ? AND is_active = ?", vendorID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Validation("vendor not found or inactive")
		}
		return apperrors.Storage("failed to check vendor", err)
	}

	var department models.Department
	if err := s.db.First(&department, "id = ? AND is_active = ?", departmentID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Validation("department not found or inactive")
		}
		return apperrors.Storage("failed to check department", err)
	}

	if locationID != nil {
		var location models.Location
		if err := s.db.First(&location, "id = ? AND is_active = ?", *locationID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Validation("location not found or inactive")
			}
			return apperrors.Storage("failed to check location", err)
		}
	}

	return nil
}

// validationMessage folds a validator error into one user-facing line.
func validationMessage(err error) string {
	validationErrors := utils.GetValidationErrors(err)
	if len(validationErrors) > 0 {
		return validationErrors[0].Message
	}
	return "input validation failed"
}
