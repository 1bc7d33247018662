package report

import (
	"bytes"
	"testing"
	"time"

	"fitness-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteActivityReport(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	summaries := []models.ActivitySummary{
		{TenantID: "t", DeviceID: "dev-1", StepCount: 120, Activity: models.ActivityWalking, Magnitude: 11.5, UpdatedAt: at},
		{TenantID: "t", DeviceID: "dev-2", StepCount: 0, Activity: models.ActivityStationary, Magnitude: 9.8, UpdatedAt: at},
	}
	alerts := []models.FallAlert{
		{AlertID: "a-1", TenantID: "t", DeviceID: "dev-1", Magnitude: 31.2, TriggeredAt: at, Notified: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteActivityReport(&buf, summaries, alerts, 10))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ActivitySheet, AlertsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ActivitySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ActivityHeader, rows[0])
	assert.Equal(t, []string{"dev-1", "120", "walking", "11.5", "2024-03-01 08:30:00"}, rows[1])
	assert.Equal(t, "stationary", rows[2][2])

	rows, err = f.GetRows(AlertsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, AlertsHeader, rows[0])
	assert.Equal(t, "a-1", rows[1][0])
	assert.Equal(t, "Yes", rows[1][4])
}

func TestWriteActivityReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteActivityReport(&buf, nil, nil, 0))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(AlertsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestWriteActivityReport_NotesTruncation(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	alerts := []models.FallAlert{
		{AlertID: "a-2", DeviceID: "dev-1", Magnitude: 30, TriggeredAt: at.Add(time.Minute)},
		{AlertID: "a-1", DeviceID: "dev-1", Magnitude: 28, TriggeredAt: at},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteActivityReport(&buf, nil, alerts, 2))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(AlertsSheet)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{TruncatedNote(2)}, rows[len(rows)-1])
	assert.Equal(t, "a-1", rows[2][0])
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 30, 5, 0, time.UTC)
	assert.Equal(t, "activity_t1_20240301_083005.xlsx", Filename("t1", at))
}
