// internal/services/payment_cycle_service_test.go
package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
)

func makeInvoiceUpload(t *testing.T, name string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("invoice", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	file, header, err := req.FormFile("invoice")
	require.NoError(t, err)
	return file, header
}

func TestCycleLifecycle(t *testing.T) {
	db := newTestDB(t)
	a := seedActors(t, db)
	svc := newPaymentCycleServiceForTest(t, db)
	sub := seedSubscription(t, db, a, models.SubscriptionStatusActive)

	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)

	cycle, err := svc.CreateCycle(a.finance.ID, &CreateCycleRequest{SubscriptionID: sub.ID, StartDate: start, EndDate: end})
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.CycleNumber)
	assert.Equal(t, models.CycleStatusPendingPayment, cycle.Status)
	assert.Equal(t, "2026-01-31", cycle.InvoiceDeadline.Format("2006-01-02"))

	// A second open cycle for the same subscription is refused.
	_, err = svc.CreateCycle(a.finance.ID, &CreateCycleRequest{SubscriptionID: sub.ID, StartDate: start, EndDate: end})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	recorded, err := svc.RecordPayment(cycle.ID, a.finance.ID, &RecordPaymentRequest{
		UTR:              "UTR123456789012",
		PaymentStatus:    models.PaymentStatusPaid,
		AccountingStatus: models.AccountingStatusBooked,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CycleStatusPaymentRecorded, recorded.Status)
	require.NotNil(t, recorded.PaymentRecordedByID)
	assert.Equal(t, a.finance.ID, *recorded.PaymentRecordedByID)

	approved, err := svc.ApproveRenewal(cycle.ID, a.poc.ID, &ApproveRenewalRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.CycleStatusApproved, approved.Status)
	require.NotNil(t, approved.POCApproverID)
	assert.Equal(t, a.poc.ID, *approved.POCApproverID)

	// Completion requires the invoice first.
	_, err = svc.CompleteCycle(cycle.ID, a.finance.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	invoiceFile := &models.InvoiceFile{
		SubscriptionID: sub.ID,
		StorageKey:     "invoices/test/jan.pdf",
		FileName:       "jan.pdf",
		ContentType:    "application/pdf",
		SizeBytes:      128,
		UploadedByID:   a.poc.ID,
	}
	require.NoError(t, db.Create(invoiceFile).Error)

	linked, err := svc.LinkInvoiceFile(cycle.ID, invoiceFile.ID, a.poc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CycleStatusInvoiceUploaded, linked.Status)

	completed, err := svc.CompleteCycle(cycle.ID, a.finance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CycleStatusCompleted, completed.Status)

	// The next cycle number follows without a gap.
	next, err := svc.CreateCycle(a.finance.ID, &CreateCycleRequest{
		SubscriptionID: sub.ID,
		StartDate:      time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, next.CycleNumber)
}

func TestCreateCycleRequiresActiveSubscription(t *testing.T) {
	db := newTestDB(t)
	a := seedActors(t, db)
	svc := newPaymentCycleServiceForTest(t, db)
	sub := seedSubscription(t, db, a, models.SubscriptionStatusPending)

	_, err := svc.CreateCycle(a.finance.ID, &CreateCycleRequest{
		SubscriptionID: sub.ID,
		StartDate:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestRecordPaymentLosesToInterleavedWriter(t *testing.T) {
	db := newTestDB(t)
	a := seedActors(t, db)
	svc := newPaymentCycleServiceForTest(t, db)
	sub := seedSubscription(t, db, a, models.SubscriptionStatusActive)
	cycle := seedCycle(t, db, sub, 1, models.CycleStatusPendingPayment)

	interleavedWriter(t, db, func() {
		require.NoError(t, db.Exec("UPDATE payment_cycles SET status = ? WHERE id = ?",
			models.CycleStatusCancelled, cycle.ID).Error)
	})

	_, err := svc.RecordPayment(cycle.ID, a.finance.ID, &RecordPaymentRequest{
		UTR:              "UTR123456789012",
		PaymentStatus:    models.PaymentStatusPaid,
		AccountingStatus: models.AccountingStatusPending,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	var fresh models.PaymentCycle
	require.NoError(t, db.First(&fresh, "id = ?", cycle.ID).Error)
	assert.Equal(t, models.CycleStatusCancelled, fresh.Status)
	assert.Empty(t, fresh.PaymentUTR)
}

func TestRejectRenewalCascadesToSubscription(t *testing.T) {
	db := newTestDB(t)
	a := seedActors(t, db)
	svc := newPaymentCycleServiceForTest(t, db)
	sub := seedSubscription(t, db, a, models.SubscriptionStatusActive)
	cycle := seedCycle(t, db, sub, 1, models.CycleStatusPaymentRecorded)

	declined, err := svc.RejectRenewal(cycle.ID, a.poc.ID, &RejectRenewalRequest{Reason: "tool is no longer in use"})
	require.NoError(t, err)
	assert.Equal(t, models.CycleStatusDeclined, declined.Status)
	assert.Equal(t, "tool is no longer in use", declined.POCRejectionReason)

	var fresh models.Subscription
	require.NoError(t, db.First(&fresh, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, fresh.Status)
	assert.Equal(t, 2, fresh.Version)
}

func TestApproveRenewalOutsideAssignedDepartmentDenied(t *testing.T) {
	db := newTestDB(t)
	a := seedActors(t, db)
	svc := newPaymentCycleServiceForTest(t, db)

	other := models.Department{Name: "Marketing", Code: "MKT", IsActive: true}
	require.NoError(t, db.Create(&other).Error)

	sub := seedSubscription(t, db, a, models.SubscriptionStatusActive)
	require.NoError(t, db.Model(sub).Update("department_id", other.ID).Error)
	cycle := seedCycle(t, db, sub, 1, models.CycleStatusPaymentRecorded)

	_, err := svc.ApproveRenewal(cycle.ID, a.poc.ID, &ApproveRenewalRequest{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePermission, apperrors.CodeOf(err))
}

func TestUploadInvoiceConflictRemovesOrphanedFile(t *testing.T) {
	db := newTestDB(t)
	a := seedActors(t, db)
	svc := newPaymentCycleServiceForTest(t, db)
	sub := seedSubscription(t, db, a, models.SubscriptionStatusActive)
	cycle := seedCycle(t, db, sub, 1, models.CycleStatusPaymentRecorded)

	t.Cleanup(func() { os.RemoveAll("uploads") })

	interleavedWriter(t, db, func() {
		require.NoError(t, db.Exec("UPDATE payment_cycles SET status = ? WHERE id = ?",
			models.CycleStatusCancelled, cycle.ID).Error)
	})

	file, header := makeInvoiceUpload(t, "jan.pdf", []byte("%PDF-1.4 test invoice"))
	_, err := svc.UploadInvoice(cycle.ID, a.poc.ID, file, header)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	// Neither the metadata row nor the blob survives the lost write.
	var n int64
	require.NoError(t, db.Model(&models.InvoiceFile{}).Count(&n).Error)
	assert.Zero(t, n)

	blobs, err := filepath.Glob(filepath.Join("uploads", "invoices", sub.ID.String(), "*"))
	require.NoError(t, err)
	assert.Empty(t, blobs)
}
