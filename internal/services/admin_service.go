// internal/services/admin_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

type AdminService struct {
	db    *gorm.DB
	authz *AuthorizationService
}

type DashboardStats struct {
	TotalSubscriptions     int64   `json:"total_subscriptions"`
	PendingSubscriptions   int64   `json:"pending_subscriptions"`
	ActiveSubscriptions    int64   `json:"active_subscriptions"`
	CancelledSubscriptions int64   `json:"cancelled_subscriptions"`
	CyclesAwaitingApproval int64   `json:"cycles_awaiting_approval"`
	CyclesPendingPayment   int64   `json:"cycles_pending_payment"`
	OverdueInvoices        int64   `json:"overdue_invoices"`
	MonthlySpendINR        float64 `json:"monthly_spend_inr"`
	TotalUsers             int64   `json:"total_users"`
}

type CreateUserRequest struct {
	Username      string          `json:"username" validate:"required,username"`
	Email         string          `json:"email" validate:"required,email"`
	Password      string          `json:"password" validate:"required,strong_password"`
	Role          models.UserRole `json:"role" validate:"required,oneof=admin finance poc hod"`
	DepartmentIDs []uuid.UUID     `json:"department_ids,omitempty"`
}

type UserFilter struct {
	utils.PaginationParams
	Role   *models.UserRole   `json:"role,omitempty"`
	Status *models.UserStatus `json:"status,omitempty"`
}

type AuditLogFilter struct {
	utils.PaginationParams
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	ResourceType *string    `json:"resource_type,omitempty"`
	After        *time.Time `json:"after,omitempty"`
	Before       *time.Time `json:"before,omitempty"`
}

func NewAdminService(db *gorm.DB, authz *AuthorizationService) *AdminService {
	return &AdminService{db: db, authz: authz}
}

func (s *AdminService) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalSubscriptions, s.db.Model(&models.Subscription{})},
		{&stats.PendingSubscriptions, s.db.Model(&models.Subscription{}).Where("status = ?", models.SubscriptionStatusPending)},
		{&stats.ActiveSubscriptions, s.db.Model(&models.Subscription{}).Where("status = ?", models.SubscriptionStatusActive)},
		{&stats.CancelledSubscriptions, s.db.Model(&models.Subscription{}).Where("status = ?", models.SubscriptionStatusCancelled)},
		{&stats.CyclesAwaitingApproval, s.db.Model(&models.PaymentCycle{}).Where("status = ?", models.CycleStatusPaymentRecorded)},
		{&stats.CyclesPendingPayment, s.db.Model(&models.PaymentCycle{}).Where("status = ?", models.CycleStatusPendingPayment)},
		{&stats.OverdueInvoices, s.db.Model(&models.PaymentCycle{}).
			Where("status IN ? AND invoice_deadline < ?",
				[]models.CycleStatus{models.CycleStatusApproved, models.CycleStatusPaymentRecorded}, now)},
		{&stats.TotalUsers, s.db.Model(&models.User{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, apperrors.Storage("failed to compute dashboard stats", err)
		}
	}

	err := s.db.Model(&models.PaymentCycle{}).
		Joins("JOIN subscriptions ON subscriptions.id = payment_cycles.subscription_id").
		Where("payment_cycles.payment_recorded_at >= ?", monthStart).
		Select("COALESCE(SUM(subscriptions.amount_inr), 0)").
		Scan(&stats.MonthlySpendINR).Error
	if err != nil {
		return nil, apperrors.Storage("failed to compute dashboard stats", err)
	}

	return stats, nil
}

func (s *AdminService) CreateUser(actorID uuid.UUID, req *CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpUserManage); err != nil {
		return nil, err
	}

	if req.Role == models.RolePOC && len(req.DepartmentIDs) == 0 {
		return nil, apperrors.Validation("a POC must be assigned at least one department")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Status:   models.UserStatusActive,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.Storage("failed to hash password", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if len(req.DepartmentIDs) > 0 {
			var departments []models.Department
			if err := tx.Where("id IN ?", req.DepartmentIDs).Find(&departments).Error; err != nil {
				return err
			}
			if len(departments) != len(req.DepartmentIDs) {
				return apperrors.Validation("one or more departments not found")
			}
			return tx.Model(user).Association("Departments").Replace(departments)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("user")
		}
		return nil, apperrors.Storage("failed to create user", err)
	}

	s.db.Preload("Departments").First(user, user.ID)
	return user, nil
}

func (s *AdminService) ListUsers(actorID uuid.UUID, filter UserFilter) ([]models.User, int64, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authz.Authorize(actor, OpUserManage); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.User{}).Preload("Departments")

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		searchTerm := "%" + filter.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to count users", err)
	}

	allowedSortFields := []string{"created_at", "username", "email", "role", "status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to fetch users", err)
	}

	return users, total, nil
}

func (s *AdminService) UpdateUserStatus(actorID, userID uuid.UUID, status models.UserStatus) error {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, OpUserManage); err != nil {
		return err
	}

	if actor.ID == userID && status == models.UserStatusInactive {
		return apperrors.Validation("cannot deactivate your own account")
	}

	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("status", status)
	if result.Error != nil {
		return apperrors.Storage("failed to update user status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

// AssignDepartments replaces a POC's department set.
func (s *AdminService) AssignDepartments(actorID, userID uuid.UUID, departmentIDs []uuid.UUID) error {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, OpUserManage); err != nil {
		return err
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user")
		}
		return apperrors.Storage("failed to fetch user", err)
	}

	if user.Role != models.RolePOC {
		return apperrors.Validation("departments can only be assigned to a POC")
	}

	var departments []models.Department
	if err := s.db.Where("id IN ?", departmentIDs).Find(&departments).Error; err != nil {
		return apperrors.Storage("failed to fetch departments", err)
	}
	if len(departments) != len(departmentIDs) {
		return apperrors.Validation("one or more departments not found")
	}

	if err := s.db.Model(&user).Association("Departments").Replace(departments); err != nil {
		return apperrors.Storage("failed to assign departments", err)
	}
	return nil
}

func (s *AdminService) ListAuditLogs(actorID uuid.UUID, filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authz.Authorize(actor, OpUserManage); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.AuditLog{}).Preload("User")

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ResourceType != nil {
		query = query.Where("resource_type = ?", *filter.ResourceType)
	}
	if filter.After != nil {
		query = query.Where("created_at >= ?", *filter.After)
	}
	if filter.Before != nil {
		query = query.Where("created_at <= ?", *filter.Before)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to count audit logs", err)
	}

	allowedSortFields := []string{"created_at", "action", "resource_type"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, apperrors.Storage("failed to fetch audit logs", err)
	}

	return logs, total, nil
}
