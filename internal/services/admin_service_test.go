// internal/services/admin_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
)

func TestGetDashboardStatsCounts(t *testing.T) {
	db := newTestDB(t)
	a := seedActors(t, db)
	svc := NewAdminService(db, NewAuthorizationService(db))

	seedSubscription(t, db, a, models.SubscriptionStatusPending)
	active := seedSubscription(t, db, a, models.SubscriptionStatusActive)

	cycle := seedCycle(t, db, active, 1, models.CycleStatusPaymentRecorded)
	now := time.Now()
	require.NoError(t, db.Model(cycle).Update("payment_recorded_at", now).Error)

	stats, err := svc.GetDashboardStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSubscriptions)
	assert.Equal(t, int64(1), stats.PendingSubscriptions)
	assert.Equal(t, int64(1), stats.ActiveSubscriptions)
	assert.Equal(t, int64(0), stats.CancelledSubscriptions)
	assert.Equal(t, int64(1), stats.CyclesAwaitingApproval)
	assert.Equal(t, int64(0), stats.CyclesPendingPayment)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.InDelta(t, active.AmountINR, stats.MonthlySpendINR, 0.01)
}

func TestGetDashboardStatsReportsStorageError(t *testing.T) {
	// No migrations: every count hits a missing table.
	db, err := gorm.Open(sqlite.Open("file:dashboard_stats_err?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	svc := NewAdminService(db, NewAuthorizationService(db))

	_, err = svc.GetDashboardStats()
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStorage, apperrors.CodeOf(err))
}
