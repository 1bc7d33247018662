package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrDeviceNotFound 设备不存在
var ErrDeviceNotFound = errors.New("device not found")

// Device 设备模型
type Device struct {
	DeviceID     string
	TenantID     string
	SerialNumber string
	UID          string
	DeviceName   string
	Status       string
}

// DeviceRepository 设备仓库
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

const deviceColumns = `
		SELECT
			d.device_id,
			d.tenant_id,
			d.serial_number,
			d.uid,
			d.device_name,
			d.status
		FROM devices d
`

// GetDeviceBySerialNumber 根据序列号获取设备
func (r *DeviceRepository) GetDeviceBySerialNumber(ctx context.Context, serialNumber string) (*Device, error) {
	return r.getDevice(ctx, deviceColumns+`WHERE d.serial_number = $1 LIMIT 1`, serialNumber)
}

// GetDeviceByUID 根据 UID 获取设备
func (r *DeviceRepository) GetDeviceByUID(ctx context.Context, uid string) (*Device, error) {
	return r.getDevice(ctx, deviceColumns+`WHERE d.uid = $1 LIMIT 1`, uid)
}

// ResolveDevice 先按序列号再按 UID 查询设备
func (r *DeviceRepository) ResolveDevice(ctx context.Context, identifier string) (*Device, error) {
	device, err := r.GetDeviceBySerialNumber(ctx, identifier)
	if err == nil {
		return device, nil
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}
	return r.GetDeviceByUID(ctx, identifier)
}

func (r *DeviceRepository) getDevice(ctx context.Context, query, identifier string) (*Device, error) {
	device := &Device{}
	var name, status sql.NullString
	err := r.db.QueryRowContext(ctx, query, identifier).Scan(
		&device.DeviceID,
		&device.TenantID,
		&device.SerialNumber,
		&device.UID,
		&name,
		&status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, identifier)
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	device.DeviceName = name.String
	device.Status = status.String

	return device, nil
}
