package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"fitness-tracker/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockMotionEventsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *MotionEventsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewMotionEventsRepository(db, zap.NewNop())
	return db, mock, repo
}

var fallAlertColumns = []string{
	"alert_id", "tenant_id", "device_id", "magnitude",
	"triggered_at", "notified", "created_at",
}

// ============================================
// 跌倒告警
// ============================================

func TestCreateFallAlert_GeneratesID(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	createdAt := time.Now()
	alert := &models.FallAlert{
		TenantID:    "tenant-1",
		DeviceID:    "dev-1",
		Magnitude:   30.2,
		TriggeredAt: time.Now(),
	}

	mock.ExpectQuery(`INSERT INTO motion_fall_alerts`).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "dev-1", 30.2, sqlmock.AnyArg(), false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	err := repo.CreateFallAlert(context.Background(), alert)
	require.NoError(t, err)

	_, err = uuid.Parse(alert.AlertID)
	assert.NoError(t, err)
	assert.Equal(t, createdAt, alert.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFallAlert_RequiresTenant(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	err := repo.CreateFallAlert(context.Background(), &models.FallAlert{DeviceID: "dev-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tenant_id is required")

	err = repo.CreateFallAlert(context.Background(), &models.FallAlert{TenantID: "t"})
	assert.Contains(t, err.Error(), "device_id is required")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNotified(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	alertID := uuid.New().String()

	mock.ExpectExec(`UPDATE motion_fall_alerts`).
		WithArgs(alertID, "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkNotified(context.Background(), "tenant-1", alertID))

	mock.ExpectExec(`UPDATE motion_fall_alerts`).
		WithArgs(alertID, "tenant-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkNotified(context.Background(), "tenant-2", alertID)
	assert.True(t, errors.Is(err, ErrAlertNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFallAlert_Success(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	alertID := uuid.New().String()
	triggeredAt := time.Now()

	rows := sqlmock.NewRows(fallAlertColumns).
		AddRow(alertID, "tenant-1", "dev-1", 27.5, triggeredAt, true, triggeredAt)

	mock.ExpectQuery(`SELECT`).
		WithArgs(alertID, "tenant-1").
		WillReturnRows(rows)

	alert, err := repo.GetFallAlert(context.Background(), "tenant-1", alertID)
	require.NoError(t, err)
	assert.Equal(t, alertID, alert.AlertID)
	assert.Equal(t, "dev-1", alert.DeviceID)
	assert.Equal(t, 27.5, alert.Magnitude)
	assert.True(t, alert.Notified)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFallAlert_NotFound(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	alertID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(alertID, "tenant-1").
		WillReturnError(sql.ErrNoRows)

	alert, err := repo.GetFallAlert(context.Background(), "tenant-1", alertID)
	assert.Nil(t, alert)
	assert.True(t, errors.Is(err, ErrAlertNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFallAlerts(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(fallAlertColumns).
		AddRow(uuid.New().String(), "tenant-1", "dev-1", 31.0, now, false, now).
		AddRow(uuid.New().String(), "tenant-1", "dev-1", 26.0, now.Add(-time.Minute), true, now)

	// 非法 limit 回落为 100
	mock.ExpectQuery(`SELECT`).
		WithArgs("tenant-1", "dev-1", 100).
		WillReturnRows(rows)

	alerts, err := repo.ListFallAlerts(context.Background(), "tenant-1", "dev-1", 0)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, 31.0, alerts[0].Magnitude)
	assert.True(t, alerts[1].Notified)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFallAlerts_RequiresTenant(t *testing.T) {
	db, _, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	_, err := repo.ListFallAlerts(context.Background(), "", "dev-1", 10)
	assert.Contains(t, err.Error(), "tenant_id is required")
}

// ============================================
// 活动摘要
// ============================================

func TestUpsertActivitySummary(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	s := &models.ActivitySummary{
		TenantID:  "tenant-1",
		DeviceID:  "dev-1",
		StepCount: 42,
		Activity:  models.ActivityWalking,
		Magnitude: 11.3,
	}

	mock.ExpectExec(`INSERT INTO motion_activity_summaries`).
		WithArgs("tenant-1", "dev-1", 42, "walking", 11.3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertActivitySummary(context.Background(), s))
	assert.False(t, s.UpdatedAt.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActivitySummaries(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"tenant_id", "device_id", "step_count", "activity_type", "magnitude", "updated_at",
	}).
		AddRow("tenant-1", "dev-1", 10, "running", 15.1, now).
		AddRow("tenant-1", "dev-2", 0, "stationary", 9.8, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("tenant-1").
		WillReturnRows(rows)

	summaries, err := repo.ListActivitySummaries(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, models.ActivityRunning, summaries[0].Activity)
	assert.Equal(t, models.ActivityStationary, summaries[1].Activity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, repo := setupMockMotionEventsDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS motion_fall_alerts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
