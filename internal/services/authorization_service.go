// internal/services/authorization_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
)

// Operation names every role-gated action in the workflow.
type Operation string

const (
	OpSubscriptionCreate  Operation = "subscription.create"
	OpSubscriptionUpdate  Operation = "subscription.update"
	OpSubscriptionApprove Operation = "subscription.approve"
	OpSubscriptionReject  Operation = "subscription.reject"
	OpSubscriptionCancel  Operation = "subscription.cancel"
	OpSubscriptionDelete  Operation = "subscription.delete"

	OpCycleCreate        Operation = "cycle.create"
	OpCycleRecordPayment Operation = "cycle.record_payment"
	OpCycleApprove       Operation = "cycle.approve"
	OpCycleReject        Operation = "cycle.reject"
	OpCycleUploadInvoice Operation = "cycle.upload_invoice"
	OpCycleComplete      Operation = "cycle.complete"
	OpCycleCancel        Operation = "cycle.cancel"

	OpReferenceManage Operation = "reference.manage"
	OpBulkToggle      Operation = "reference.bulk_toggle"
	OpUserManage      Operation = "user.manage"
	OpRead            Operation = "read"
)

// capabilities is the full authorization matrix. ADMIN is handled by
// RoleAllows directly and does not appear here.
var capabilities = map[models.UserRole]map[Operation]bool{
	models.RoleFinance: {
		OpSubscriptionCreate: true,
		OpSubscriptionUpdate: true,
		OpSubscriptionCancel: true,
		OpCycleCreate:        true,
		OpCycleRecordPayment: true,
		OpCycleComplete:      true,
		OpCycleCancel:        true,
		OpRead:               true,
	},
	models.RolePOC: {
		OpSubscriptionApprove: true,
		OpSubscriptionReject:  true,
		OpCycleApprove:        true,
		OpCycleReject:         true,
		OpCycleUploadInvoice:  true,
		OpRead:                true,
	},
	models.RoleHOD: {
		OpRead: true,
	},
}

// RoleAllows is the pure capability check: (role, operation) -> bool.
func RoleAllows(role models.UserRole, op Operation) bool {
	if role == models.RoleAdmin {
		return true
	}
	return capabilities[role][op]
}

type AuthorizationService struct {
	db *gorm.DB
}

func NewAuthorizationService(db *gorm.DB) *AuthorizationService {
	return &AuthorizationService{db: db}
}

// ResolveActor turns an authenticated user ID into an active User row.
// A missing or inactive row means the token no longer identifies anyone.
func (s *AuthorizationService) ResolveActor(actorID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Authentication("caller could not be resolved")
		}
		return nil, apperrors.Storage("failed to resolve caller", err)
	}

	if user.Status != models.UserStatusActive {
		return nil, apperrors.Authentication("caller account is inactive")
	}

	return &user, nil
}

// Authorize checks the role matrix for op.
func (s *AuthorizationService) Authorize(actor *models.User, op Operation) error {
	if !RoleAllows(actor.Role, op) {
		return apperrors.Permission(fmt.Sprintf("role %s is not allowed to perform %s", actor.Role, op))
	}
	return nil
}

// AuthorizeForDepartment additionally enforces the POC department scope:
// a POC may act only on entities whose department is in their assigned set.
func (s *AuthorizationService) AuthorizeForDepartment(actor *models.User, op Operation, departmentID uuid.UUID) error {
	if err := s.Authorize(actor, op); err != nil {
		return err
	}

	if actor.Role != models.RolePOC {
		return nil
	}

	allowed, err := s.HasDepartmentAccess(actor.ID, departmentID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Permission("caller has no access to this department")
	}
	return nil
}

func (s *AuthorizationService) HasDepartmentAccess(userID, departmentID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Table("user_departments").
		Where("user_id = ? AND department_id = ?", userID, departmentID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Storage("failed to check department access", err)
	}
	return count > 0, nil
}
