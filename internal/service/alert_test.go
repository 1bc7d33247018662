package service

import (
	"context"
	"errors"
	"testing"

	"fitness-tracker/internal/models"
	"fitness-tracker/internal/notifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAlertStore struct {
	created   []*models.FallAlert
	notified  []string
	createErr error
}

func (f *fakeAlertStore) CreateFallAlert(_ context.Context, a *models.FallAlert) error {
	if f.createErr != nil {
		return f.createErr
	}
	a.AlertID = "alert-1"
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAlertStore) MarkNotified(_ context.Context, _, alertID string) error {
	f.notified = append(f.notified, alertID)
	return nil
}

type fakeNotifier struct {
	sent []notifier.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n notifier.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

func fallEvent(tenantID string) models.DeviceEvent {
	return models.DeviceEvent{
		DeviceID: "dev-1",
		TenantID: tenantID,
		Event:    models.Event{Kind: models.EventFall, Magnitude: 29.5, Timestamp: 1_700_000_000_123},
	}
}

func TestHandleFall_PersistsAndNotifies(t *testing.T) {
	store := &fakeAlertStore{}
	n := &fakeNotifier{}
	s := NewFallAlertService(store, n, "Fall detected", zap.NewNop())

	require.NoError(t, s.HandleFall(context.Background(), fallEvent("tenant-1")))

	require.Len(t, store.created, 1)
	assert.Equal(t, "tenant-1", store.created[0].TenantID)
	assert.Equal(t, 29.5, store.created[0].Magnitude)
	assert.Equal(t, int64(1_700_000_000_123), store.created[0].TriggeredAt.UnixMilli())

	require.Len(t, n.sent, 1)
	assert.Equal(t, "Fall detected", n.sent[0].Title)
	assert.Equal(t, "dev-1", n.sent[0].DeviceID)
	assert.Equal(t, notifier.PriorityHigh, n.sent[0].Priority)

	assert.Equal(t, []string{"alert-1"}, store.notified)
}

func TestHandleFall_WithoutTenantOnlyNotifies(t *testing.T) {
	store := &fakeAlertStore{}
	n := &fakeNotifier{}
	s := NewFallAlertService(store, n, "", zap.NewNop())

	require.NoError(t, s.HandleFall(context.Background(), fallEvent("")))
	assert.Empty(t, store.created)
	require.Len(t, n.sent, 1)
	assert.Equal(t, notifier.DefaultTitle, n.sent[0].Title)
}

func TestHandleFall_NotifyFailureLeavesUnnotified(t *testing.T) {
	store := &fakeAlertStore{}
	n := &fakeNotifier{err: errors.New("offline")}
	s := NewFallAlertService(store, n, "x", zap.NewNop())

	err := s.HandleFall(context.Background(), fallEvent("tenant-1"))
	require.Error(t, err)
	assert.Len(t, store.created, 1)
	assert.Empty(t, store.notified)
}

func TestHandleFall_StoreFailure(t *testing.T) {
	store := &fakeAlertStore{createErr: errors.New("db down")}
	n := &fakeNotifier{}
	s := NewFallAlertService(store, n, "x", zap.NewNop())

	err := s.HandleFall(context.Background(), fallEvent("tenant-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, n.sent)
}

func TestHandleFall_RejectsSummary(t *testing.T) {
	s := NewFallAlertService(nil, nil, "x", zap.NewNop())
	err := s.HandleFall(context.Background(), models.DeviceEvent{Event: models.Event{Kind: models.EventSummary}})
	assert.Error(t, err)
}
