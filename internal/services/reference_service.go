// internal/services/reference_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

// ReferenceService owns the master data: departments, locations, vendors
// and products. Reference rows have no lifecycle beyond an active flag.
type ReferenceService struct {
	db    *gorm.DB
	authz *AuthorizationService
}

// ReferenceEntity selects which master-data table an operation targets.
type ReferenceEntity string

const (
	EntityDepartment ReferenceEntity = "departments"
	EntityLocation   ReferenceEntity = "locations"
	EntityVendor     ReferenceEntity = "vendors"
	EntityProduct    ReferenceEntity = "products"
)

// subscriptionColumn maps a reference entity to the subscription column
// guarding its deletion; products are catalog-only and unguarded.
var subscriptionColumn = map[ReferenceEntity]string{
	EntityDepartment: "department_id",
	EntityLocation:   "location_id",
	EntityVendor:     "vendor_id",
}

type BulkToggleRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
	Active bool        `json:"active"`
}

func NewReferenceService(db *gorm.DB, authz *AuthorizationService) *ReferenceService {
	return &ReferenceService{db: db, authz: authz}
}

func (s *ReferenceService) modelFor(entity ReferenceEntity) (interface{}, error) {
	switch entity {
	case EntityDepartment:
		return &models.Department{}, nil
	case EntityLocation:
		return &models.Location{}, nil
	case EntityVendor:
		return &models.Vendor{}, nil
	case EntityProduct:
		return &models.Product{}, nil
	}
	return nil, apperrors.Validation("unknown reference entity")
}

func (s *ReferenceService) Create(actorID uuid.UUID, entity ReferenceEntity, row interface{}) error {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, OpReferenceManage); err != nil {
		return err
	}

	if err := s.db.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict(string(entity))
		}
		return apperrors.Storage("failed to create "+string(entity), err)
	}
	return nil
}

func (s *ReferenceService) Update(actorID, id uuid.UUID, entity ReferenceEntity, updates map[string]interface{}) error {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, OpReferenceManage); err != nil {
		return err
	}

	model, err := s.modelFor(entity)
	if err != nil {
		return err
	}

	result := s.db.Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict(string(entity))
		}
		return apperrors.Storage("failed to update "+string(entity), result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(string(entity))
	}
	return nil
}

// Delete removes a reference row unless any subscription still points at
// it.
func (s *ReferenceService) Delete(actorID, id uuid.UUID, entity ReferenceEntity) error {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, OpReferenceManage); err != nil {
		return err
	}

	model, err := s.modelFor(entity)
	if err != nil {
		return err
	}

	if column, guarded := subscriptionColumn[entity]; guarded {
		var count int64
		if err := s.db.Model(&models.Subscription{}).
			Where(column+" = ?", id).
			Count(&count).Error; err != nil {
			return apperrors.Storage("failed to check subscription references", err)
		}
		if count > 0 {
			return apperrors.InvalidState(string(entity) + " entry is used by a subscription and cannot be deleted")
		}
	}

	result := s.db.Delete(model, "id = ?", id)
	if result.Error != nil {
		return apperrors.Storage("failed to delete "+string(entity), result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(string(entity))
	}
	return nil
}

func (s *ReferenceService) List(actorID uuid.UUID, entity ReferenceEntity, params utils.PaginationParams, out interface{}) (int64, error) {
	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return 0, err
	}
	if err := s.authz.Authorize(actor, OpRead); err != nil {
		return 0, err
	}

	model, err := s.modelFor(entity)
	if err != nil {
		return 0, err
	}

	query := s.db.Model(model)
	if params.Search != "" {
		query = query.Where("name ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, apperrors.Storage("failed to count "+string(entity), err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	if err := query.Find(out).Error; err != nil {
		return 0, apperrors.Storage("failed to fetch "+string(entity), err)
	}

	return total, nil
}

// BulkToggle flips the active flag for a batch of reference rows in
// fixed-size sub-batches. Sub-batches fail independently and the result
// reports each id that did not update.
func (s *ReferenceService) BulkToggle(actorID uuid.UUID, entity ReferenceEntity, req *BulkToggleRequest) (*BulkResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	actor, err := s.authz.ResolveActor(actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, OpBulkToggle); err != nil {
		return nil, err
	}

	model, err := s.modelFor(entity)
	if err != nil {
		return nil, err
	}

	result := runBulkUpdate(req.IDs, bulkBatchSize, func(batch []uuid.UUID) ([]uuid.UUID, error) {
		var existing []uuid.UUID
		if err := s.db.Model(model).
			Where("id IN ?", batch).
			Pluck("id", &existing).Error; err != nil {
			return nil, err
		}

		if len(existing) > 0 {
			if err := s.db.Model(model).
				Where("id IN ?", existing).
				Update("is_active", req.Active).Error; err != nil {
				return nil, err
			}
		}
		return existing, nil
	})

	return result, nil
}
