// internal/services/authorization_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
)

func TestRoleAllowsAdminEverything(t *testing.T) {
	ops := []Operation{
		OpSubscriptionCreate, OpSubscriptionUpdate, OpSubscriptionApprove,
		OpSubscriptionReject, OpSubscriptionCancel, OpSubscriptionDelete,
		OpCycleCreate, OpCycleRecordPayment, OpCycleApprove, OpCycleReject,
		OpCycleUploadInvoice, OpCycleComplete, OpCycleCancel,
		OpReferenceManage, OpBulkToggle, OpUserManage, OpRead,
	}

	for _, op := range ops {
		assert.True(t, RoleAllows(models.RoleAdmin, op), "admin should be allowed %s", op)
	}
}

func TestRoleAllowsFinance(t *testing.T) {
	allowed := []Operation{
		OpSubscriptionCreate, OpSubscriptionUpdate, OpSubscriptionCancel,
		OpCycleCreate, OpCycleRecordPayment, OpCycleComplete, OpCycleCancel,
		OpRead,
	}
	for _, op := range allowed {
		assert.True(t, RoleAllows(models.RoleFinance, op), "finance should be allowed %s", op)
	}

	denied := []Operation{
		OpSubscriptionApprove, OpSubscriptionReject, OpSubscriptionDelete,
		OpCycleApprove, OpCycleReject, OpCycleUploadInvoice,
		OpReferenceManage, OpBulkToggle, OpUserManage,
	}
	for _, op := range denied {
		assert.False(t, RoleAllows(models.RoleFinance, op), "finance should be denied %s", op)
	}
}

func TestRoleAllowsPOC(t *testing.T) {
	allowed := []Operation{
		OpSubscriptionApprove, OpSubscriptionReject,
		OpCycleApprove, OpCycleReject, OpCycleUploadInvoice,
		OpRead,
	}
	for _, op := range allowed {
		assert.True(t, RoleAllows(models.RolePOC, op), "poc should be allowed %s", op)
	}

	denied := []Operation{
		OpSubscriptionCreate, OpSubscriptionUpdate, OpSubscriptionCancel,
		OpSubscriptionDelete, OpCycleCreate, OpCycleRecordPayment,
		OpCycleComplete, OpCycleCancel, OpReferenceManage, OpBulkToggle,
		OpUserManage,
	}
	for _, op := range denied {
		assert.False(t, RoleAllows(models.RolePOC, op), "poc should be denied %s", op)
	}
}

func TestRoleAllowsHODIsReadOnly(t *testing.T) {
	assert.True(t, RoleAllows(models.RoleHOD, OpRead))

	denied := []Operation{
		OpSubscriptionCreate, OpSubscriptionUpdate, OpSubscriptionApprove,
		OpSubscriptionReject, OpSubscriptionCancel, OpSubscriptionDelete,
		OpCycleCreate, OpCycleRecordPayment, OpCycleApprove, OpCycleReject,
		OpCycleUploadInvoice, OpCycleComplete, OpCycleCancel,
		OpReferenceManage, OpBulkToggle, OpUserManage,
	}
	for _, op := range denied {
		assert.False(t, RoleAllows(models.RoleHOD, op), "hod should be denied %s", op)
	}
}

func TestRoleAllowsUnknownRole(t *testing.T) {
	assert.False(t, RoleAllows(models.UserRole("intern"), OpRead))
}
