// internal/services/testdb_test.go
package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/config"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

// newTestDB opens a per-test in-memory database with the full schema.
// cache=shared keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.Location{},
		&models.Vendor{},
		&models.Product{},
		&models.Subscription{},
		&models.SubscriptionApproval{},
		&models.PaymentCycle{},
		&models.InvoiceFile{},
		&models.AuditLog{},
	))
	return db
}

type testActors struct {
	admin      models.User
	finance    models.User
	poc        models.User
	department models.Department
	vendor     models.Vendor
}

func seedActors(t *testing.T, db *gorm.DB) *testActors {
	t.Helper()

	a := &testActors{
		admin:      models.User{Username: "admin", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin, Status: models.UserStatusActive},
		finance:    models.User{Username: "finance", Email: "finance@example.com", PasswordHash: "x", Role: models.RoleFinance, Status: models.UserStatusActive},
		poc:        models.User{Username: "poc", Email: "poc@example.com", PasswordHash: "x", Role: models.RolePOC, Status: models.UserStatusActive},
		department: models.Department{Name: "Engineering", Code: "ENG", IsActive: true},
		vendor:     models.Vendor{Name: "Figma Inc", ContactEmail: "billing@figma.com", IsActive: true},
	}

	require.NoError(t, db.Create(&a.admin).Error)
	require.NoError(t, db.Create(&a.finance).Error)
	require.NoError(t, db.Create(&a.poc).Error)
	require.NoError(t, db.Create(&a.department).Error)
	require.NoError(t, db.Create(&a.vendor).Error)
	require.NoError(t, db.Model(&a.poc).Association("Departments").Append(&a.department))

	return a
}

func seedSubscription(t *testing.T, db *gorm.DB, a *testActors, status models.SubscriptionStatus) *models.Subscription {
	t.Helper()

	code, err := utils.GenerateSubscriptionCode()
	require.NoError(t, err)

	sub := &models.Subscription{
		Code:             code,
		ToolName:         "Figma",
		VendorID:         a.vendor.ID,
		DepartmentID:     a.department.ID,
		Amount:           1200,
		Currency:         "INR",
		AmountINR:        1200,
		BillingFrequency: models.BillingFrequencyMonthly,
		RequestType:      models.RequestTypeInvoice,
		StartDate:        time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		Version:          1,
		Status:           status,
		PaymentStatus:    models.PaymentStatusUnpaid,
		AccountingStatus: models.AccountingStatusPending,
		CreatedByID:      a.finance.ID,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func seedCycle(t *testing.T, db *gorm.DB, sub *models.Subscription, number int, status models.CycleStatus) *models.PaymentCycle {
	t.Helper()

	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	cycle := &models.PaymentCycle{
		SubscriptionID:   sub.ID,
		CycleNumber:      number,
		CycleStartDate:   start,
		CycleEndDate:     end,
		InvoiceDeadline:  models.InvoiceDeadlineFor(end),
		Status:           status,
		PaymentStatus:    models.PaymentStatusUnpaid,
		AccountingStatus: models.AccountingStatusPending,
	}
	require.NoError(t, db.Create(cycle).Error)
	return cycle
}

func newSubscriptionServiceForTest(db *gorm.DB) *SubscriptionService {
	authz := NewAuthorizationService(db)
	notif := NewNotificationService(db, &config.Config{})
	return NewSubscriptionService(db, authz, notif)
}

func newPaymentCycleServiceForTest(t *testing.T, db *gorm.DB) *PaymentCycleService {
	t.Helper()

	authz := NewAuthorizationService(db)
	notif := NewNotificationService(db, &config.Config{})
	storage, err := NewStorageService(&config.Config{})
	require.NoError(t, err)
	return NewPaymentCycleService(db, authz, storage, notif)
}

// interleavedWriter runs write exactly once, right before the next UPDATE
// the service issues, so the conditional write sees a row another writer
// has already moved.
func interleavedWriter(t *testing.T, db *gorm.DB, write func()) {
	t.Helper()

	fired := false
	name := "interleaved_writer_" + t.Name()
	err := db.Callback().Update().Before("gorm:update").Register(name, func(*gorm.DB) {
		if fired {
			return
		}
		fired = true
		write()
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Callback().Update().Remove(name))
	})
}
