// internal/handlers/subscription.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/services"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// POST /subscriptions
func (h *SubscriptionHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	subscription, err := h.subscriptionService.Create(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"subscription": subscription})
}

// GET /subscriptions
func (h *SubscriptionHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	searchParams := services.SubscriptionSearchParams{
		PaginationParams: params,
	}

	if status := c.Query("status"); status != "" {
		subStatus := models.SubscriptionStatus(status)
		searchParams.Status = &subStatus
	}
	if departmentIDStr := c.Query("department_id"); departmentIDStr != "" {
		if departmentID, err := uuid.Parse(departmentIDStr); err == nil {
			searchParams.DepartmentID = &departmentID
		}
	}
	if vendorIDStr := c.Query("vendor_id"); vendorIDStr != "" {
		if vendorID, err := uuid.Parse(vendorIDStr); err == nil {
			searchParams.VendorID = &vendorID
		}
	}
	if startAfter := c.Query("start_after"); startAfter != "" {
		if t, err := time.Parse("2006-01-02", startAfter); err == nil {
			searchParams.StartAfter = &t
		}
	}
	if startBefore := c.Query("start_before"); startBefore != "" {
		if t, err := time.Parse("2006-01-02", startBefore); err == nil {
			searchParams.StartBefore = &t
		}
	}

	subscriptions, total, err := h.subscriptionService.Search(userID, searchParams)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(subscriptions, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /subscriptions/:id
func (h *SubscriptionHandler) Get(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid subscription ID", nil)
		return
	}

	subscription, err := h.subscriptionService.Get(subscriptionID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"subscription": subscription})
}

// PUT /subscriptions/:id
func (h *SubscriptionHandler) Update(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid subscription ID", nil)
		return
	}

	var req services.UpdateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	subscription, warning, err := h.subscriptionService.Update(subscriptionID, userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if warning != "" {
		utils.SuccessResponseWithWarning(c, gin.H{"subscription": subscription}, warning)
		return
	}
	utils.SuccessResponse(c, gin.H{"subscription": subscription})
}

// PUT /subscriptions/:id/approve
func (h *SubscriptionHandler) Approve(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid subscription ID", nil)
		return
	}

	var req services.ApproveSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	subscription, err := h.subscriptionService.Approve(subscriptionID, userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"subscription": subscription})
}

// PUT /subscriptions/:id/reject
func (h *SubscriptionHandler) Reject(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid subscription ID", nil)
		return
	}

	var req services.RejectSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	subscription, err := h.subscriptionService.Reject(subscriptionID, userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"subscription": subscription})
}

// PUT /subscriptions/:id/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid subscription ID", nil)
		return
	}

	subscription, err := h.subscriptionService.Cancel(subscriptionID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"subscription": subscription})
}

// DELETE /subscriptions/:id
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid subscription ID", nil)
		return
	}

	if err := h.subscriptionService.Delete(subscriptionID, userID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

// GET /subscriptions/:id/approvals
func (h *SubscriptionHandler) GetApprovalHistory(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	subscriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid subscription ID", nil)
		return
	}

	approvals, err := h.subscriptionService.GetApprovalHistory(subscriptionID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"approvals": approvals})
}

// PUT /subscriptions/bulk/accounting-status
func (h *SubscriptionHandler) BulkUpdateAccountingStatus(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req struct {
		IDs              []uuid.UUID             `json:"ids"`
		AccountingStatus models.AccountingStatus `json:"accounting_status"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.subscriptionService.BulkUpdateAccountingStatus(userID, req.IDs, req.AccountingStatus)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"result": result})
}
