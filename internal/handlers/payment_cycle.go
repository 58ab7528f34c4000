// internal/handlers/payment_cycle.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/services"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

type PaymentCycleHandler struct {
	cycleService   *services.PaymentCycleService
	storageService *services.StorageService
}

func NewPaymentCycleHandler(cycleService *services.PaymentCycleService, storageService *services.StorageService) *PaymentCycleHandler {
	return &PaymentCycleHandler{
		cycleService:   cycleService,
		storageService: storageService,
	}
}

// POST /payment-cycles
func (h *PaymentCycleHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateCycleRequest
	if !bindJSON(c, &req) {
		return
	}

	cycle, err := h.cycleService.CreateCycle(userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"cycle": cycle})
}

// GET /payment-cycles
func (h *PaymentCycleHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	searchParams := services.CycleSearchParams{
		PaginationParams: params,
	}

	if subscriptionIDStr := c.Query("subscription_id"); subscriptionIDStr != "" {
		if subscriptionID, err := uuid.Parse(subscriptionIDStr); err == nil {
			searchParams.SubscriptionID = &subscriptionID
		}
	}
	if status := c.Query("status"); status != "" {
		cycleStatus := models.CycleStatus(status)
		searchParams.Status = &cycleStatus
	}
	if deadlineBefore := c.Query("deadline_before"); deadlineBefore != "" {
		if t, err := time.Parse("2006-01-02", deadlineBefore); err == nil {
			searchParams.DeadlineBefore = &t
		}
	}

	cycles, total, err := h.cycleService.Search(userID, searchParams)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(cycles, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /payment-cycles/:id
func (h *PaymentCycleHandler) Get(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	cycle, err := h.cycleService.Get(cycleID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// PUT /payment-cycles/:id/payment
func (h *PaymentCycleHandler) RecordPayment(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	var req services.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	cycle, err := h.cycleService.RecordPayment(cycleID, userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// PUT /payment-cycles/:id/approve
func (h *PaymentCycleHandler) ApproveRenewal(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	var req services.ApproveRenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	cycle, err := h.cycleService.ApproveRenewal(cycleID, userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// PUT /payment-cycles/:id/reject
func (h *PaymentCycleHandler) RejectRenewal(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	var req services.RejectRenewalRequest
	if !bindJSON(c, &req) {
		return
	}

	cycle, err := h.cycleService.RejectRenewal(cycleID, userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// POST /payment-cycles/:id/invoice
func (h *PaymentCycleHandler) UploadInvoice(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	file, header, err := c.Request.FormFile("invoice")
	if err != nil {
		utils.BadRequestResponse(c, "invoice file is required", err.Error())
		return
	}
	defer file.Close()

	cycle, err := h.cycleService.UploadInvoice(cycleID, userID, file, header)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// PUT /payment-cycles/:id/invoice/:fileId
func (h *PaymentCycleHandler) LinkInvoice(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid invoice file ID", nil)
		return
	}

	cycle, err := h.cycleService.LinkInvoiceFile(cycleID, fileID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// PUT /payment-cycles/:id/complete
func (h *PaymentCycleHandler) Complete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	cycle, err := h.cycleService.CompleteCycle(cycleID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// PUT /payment-cycles/:id/cancel
func (h *PaymentCycleHandler) Cancel(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	var req services.CancelCycleRequest
	if !bindJSON(c, &req) {
		return
	}

	cycle, err := h.cycleService.CancelCycle(cycleID, userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cycle": cycle})
}

// GET /payment-cycles/:id/invoice-url
func (h *PaymentCycleHandler) GetInvoiceURL(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid payment cycle ID", nil)
		return
	}

	cycle, err := h.cycleService.Get(cycleID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if cycle.InvoiceFile == nil {
		utils.NotFoundResponse(c, "invoice file")
		return
	}

	url, err := h.storageService.PresignedURL(cycle.InvoiceFile.StorageKey)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"url": url})
}
