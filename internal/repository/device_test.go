package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var deviceRowColumns = []string{
	"device_id", "tenant_id", "serial_number", "uid", "device_name", "status",
}

func TestResolveDevice_BySerialNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeviceRepository(db, zap.NewNop())

	mock.ExpectQuery(`WHERE d.serial_number = \$1`).
		WithArgs("SN-001").
		WillReturnRows(sqlmock.NewRows(deviceRowColumns).
			AddRow("dev-1", "tenant-1", "SN-001", "UID-1", "wrist", nil))

	device, err := repo.ResolveDevice(context.Background(), "SN-001")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", device.DeviceID)
	assert.Equal(t, "tenant-1", device.TenantID)
	assert.Equal(t, "wrist", device.DeviceName)
	assert.Equal(t, "", device.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDevice_FallsBackToUID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeviceRepository(db, zap.NewNop())

	mock.ExpectQuery(`WHERE d.serial_number = \$1`).
		WithArgs("UID-9").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`WHERE d.uid = \$1`).
		WithArgs("UID-9").
		WillReturnRows(sqlmock.NewRows(deviceRowColumns).
			AddRow("dev-9", "tenant-1", "SN-009", "UID-9", nil, "online"))

	device, err := repo.ResolveDevice(context.Background(), "UID-9")
	require.NoError(t, err)
	assert.Equal(t, "dev-9", device.DeviceID)
	assert.Equal(t, "online", device.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDevice_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeviceRepository(db, zap.NewNop())

	mock.ExpectQuery(`serial_number`).WithArgs("x").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`uid`).WithArgs("x").WillReturnError(sql.ErrNoRows)

	_, err = repo.ResolveDevice(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrDeviceNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}
