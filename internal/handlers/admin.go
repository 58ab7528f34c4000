// internal/handlers/admin.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/services"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// GET /admin/dashboard
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"stats": stats})
}

// POST /admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.CreateUser(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"user": user})
}

// GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := services.UserFilter{PaginationParams: params}

	if role := c.Query("role"); role != "" {
		userRole := models.UserRole(role)
		filter.Role = &userRole
	}
	if status := c.Query("status"); status != "" {
		userStatus := models.UserStatus(status)
		filter.Status = &userStatus
	}

	users, total, err := h.adminService.ListUsers(userID, filter)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(users, total, params)
	utils.PaginatedResponse(c, result)
}

type updateUserStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required,oneof=active inactive"`
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid user ID", nil)
		return
	}

	var req updateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.adminService.UpdateUserStatus(userID, targetID, req.Status); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"updated": true})
}

type assignDepartmentsRequest struct {
	DepartmentIDs []uuid.UUID `json:"department_ids" binding:"required,min=1"`
}

// PUT /admin/users/:id/departments
func (h *AdminHandler) AssignDepartments(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid user ID", nil)
		return
	}

	var req assignDepartmentsRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.adminService.AssignDepartments(userID, targetID, req.DepartmentIDs); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"updated": true})
}

// GET /admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := services.AuditLogFilter{PaginationParams: params}

	if userIDStr := c.Query("user_id"); userIDStr != "" {
		if id, err := uuid.Parse(userIDStr); err == nil {
			filter.UserID = &id
		}
	}
	if resourceType := c.Query("resource_type"); resourceType != "" {
		filter.ResourceType = &resourceType
	}
	if after := c.Query("after"); after != "" {
		if t, err := time.Parse("2006-01-02", after); err == nil {
			filter.After = &t
		}
	}
	if before := c.Query("before"); before != "" {
		if t, err := time.Parse("2006-01-02", before); err == nil {
			filter.Before = &t
		}
	}

	logs, total, err := h.adminService.ListAuditLogs(userID, filter)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(logs, total, params)
	utils.PaginatedResponse(c, result)
}
