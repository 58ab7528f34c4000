// internal/handlers/reference.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/services"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

// ReferenceHandler serves the master-data endpoints. Each entity gets the
// same CRUD surface; the route wiring binds the entity via closures.
type ReferenceHandler struct {
	referenceService *services.ReferenceService
}

func NewReferenceHandler(referenceService *services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{referenceService: referenceService}
}

type createDepartmentRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Code string `json:"code" binding:"required,max=20"`
}

type createLocationRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	City  string `json:"city" binding:"max=100"`
	State string `json:"state" binding:"max=100"`
}

type createVendorRequest struct {
	Name         string `json:"name" binding:"required,max=255"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	Website      string `json:"website" binding:"max=255"`
	GSTIN        string `json:"gstin" binding:"max=20"`
}

type createProductRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"max=100"`
}

// CreateDepartment handles POST /departments
func (h *ReferenceHandler) CreateDepartment(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req createDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}

	department := &models.Department{Name: req.Name, Code: req.Code, IsActive: true}
	if err := h.referenceService.Create(userID, services.EntityDepartment, department); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"department": department})
}

// CreateLocation handles POST /locations
func (h *ReferenceHandler) CreateLocation(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req createLocationRequest
	if !bindJSON(c, &req) {
		return
	}

	location := &models.Location{Name: req.Name, City: req.City, State: req.State, IsActive: true}
	if err := h.referenceService.Create(userID, services.EntityLocation, location); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"location": location})
}

// CreateVendor handles POST /vendors
func (h *ReferenceHandler) CreateVendor(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req createVendorRequest
	if !bindJSON(c, &req) {
		return
	}

	vendor := &models.Vendor{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Website:      req.Website,
		GSTIN:        req.GSTIN,
		IsActive:     true,
	}
	if err := h.referenceService.Create(userID, services.EntityVendor, vendor); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"vendor": vendor})
}

// CreateProduct handles POST /products
func (h *ReferenceHandler) CreateProduct(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req createProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    true,
	}
	if err := h.referenceService.Create(userID, services.EntityProduct, product); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"product": product})
}

// Update handles PUT /<entity>/:id for every reference table. Updates are
// a whitelisted column map so callers cannot touch timestamps or ids.
func (h *ReferenceHandler) Update(entity services.ReferenceEntity) gin.HandlerFunc {
	allowed := map[services.ReferenceEntity][]string{
		services.EntityDepartment: {"name", "code", "is_active"},
		services.EntityLocation:   {"name", "city", "state", "is_active"},
		services.EntityVendor:     {"name", "contact_email", "website", "gstin", "is_active"},
		services.EntityProduct:    {"name", "description", "category", "is_active"},
	}[entity]

	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "invalid ID", nil)
			return
		}

		var body map[string]interface{}
		if !bindJSON(c, &body) {
			return
		}

		updates := make(map[string]interface{})
		for _, column := range allowed {
			if value, present := body[column]; present {
				updates[column] = value
			}
		}
		if len(updates) == 0 {
			utils.BadRequestResponse(c, "no updatable fields provided", nil)
			return
		}

		if err := h.referenceService.Update(userID, id, entity, updates); err != nil {
			utils.AppErrorResponse(c, err)
			return
		}

		utils.SuccessResponse(c, gin.H{"updated": true})
	}
}

// Delete handles DELETE /<entity>/:id.
func (h *ReferenceHandler) Delete(entity services.ReferenceEntity) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "invalid ID", nil)
			return
		}

		if err := h.referenceService.Delete(userID, id, entity); err != nil {
			utils.AppErrorResponse(c, err)
			return
		}

		utils.SuccessResponse(c, gin.H{"deleted": true})
	}
}

// List handles GET /<entity>.
func (h *ReferenceHandler) List(entity services.ReferenceEntity) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			return
		}

		params := utils.GetPaginationParams(c)

		var (
			out   interface{}
			total int64
			err   error
		)
		switch entity {
		case services.EntityDepartment:
			var rows []models.Department
			total, err = h.referenceService.List(userID, entity, params, &rows)
			out = rows
		case services.EntityLocation:
			var rows []models.Location
			total, err = h.referenceService.List(userID, entity, params, &rows)
			out = rows
		case services.EntityVendor:
			var rows []models.Vendor
			total, err = h.referenceService.List(userID, entity, params, &rows)
			out = rows
		case services.EntityProduct:
			var rows []models.Product
			total, err = h.referenceService.List(userID, entity, params, &rows)
			out = rows
		}
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}

		result := utils.CreatePaginationResult(out, total, params)
		utils.PaginatedResponse(c, result)
	}
}

// BulkToggle handles PUT /<entity>/bulk-toggle.
func (h *ReferenceHandler) BulkToggle(entity services.ReferenceEntity) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			return
		}

		var req services.BulkToggleRequest
		if !bindJSON(c, &req) {
			return
		}

		result, err := h.referenceService.BulkToggle(userID, entity, &req)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}

		utils.SuccessResponse(c, gin.H{"result": result})
	}
}
