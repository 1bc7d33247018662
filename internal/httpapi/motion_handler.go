package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fitness-tracker/internal/consumer"
	"fitness-tracker/internal/models"
	"fitness-tracker/internal/notifier"
	"fitness-tracker/internal/report"
	"fitness-tracker/internal/session"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Sessions 设备会话（*session.Manager 实现）
type Sessions interface {
	Process(deviceID, tenantID string, samples ...models.Sample) []models.Event
	Command(deviceID, tenantID string, cmd session.Command) error
	Snapshot(deviceID string) (session.Snapshot, error)
	Close(deviceID string) error
}

// StateCache 设备状态缓存（*consumer.StateManager 实现）
type StateCache interface {
	SetState(ctx context.Context, snap session.Snapshot) error
	GetState(ctx context.Context, deviceID string) (*session.Snapshot, error)
	DeleteState(ctx context.Context, deviceID string) error
}

// MotionStore 告警与摘要查询（*repository.MotionEventsRepository 实现）
type MotionStore interface {
	ListFallAlerts(ctx context.Context, tenantID, deviceID string, limit int) ([]models.FallAlert, error)
	ListActivitySummaries(ctx context.Context, tenantID string) ([]models.ActivitySummary, error)
}

// MotionHandler 运动分类 HTTP 接口
type MotionHandler struct {
	Sessions      Sessions
	State         StateCache
	Store         MotionStore
	Alerts        consumer.AlertHandler
	Notifier      notifier.Notifier
	DefaultTenant string
	Logger        *zap.Logger

	now func() time.Time
}

func (h *MotionHandler) tenantID(r *http.Request) string {
	if t := r.URL.Query().Get("tenant_id"); t != "" {
		return t
	}
	if t := r.Header.Get("X-Tenant-Id"); t != "" {
		return t
	}
	return h.DefaultTenant
}

func (h *MotionHandler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

// Health 健康检查
func (h *MotionHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
}

// Command POST /devices/{id}/commands/{command}
func (h *MotionHandler) Command(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID := vars["id"]

	cmd, err := session.ParseCommand(vars["command"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	if err := h.Sessions.Command(deviceID, h.tenantID(r), cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	snap, err := h.Sessions.Snapshot(deviceID)
	if err != nil {
		// stop 不创建会话
		writeJSON(w, http.StatusOK, Ok(map[string]any{"device_id": deviceID, "command": cmd}))
		return
	}
	h.cacheState(r.Context(), snap)
	writeJSON(w, http.StatusOK, Ok(snap))
}

// Samples POST /devices/{id}/samples
func (h *MotionHandler) Samples(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	tenantID := h.tenantID(r)

	body, err := readBody(r, maxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to read body"))
		return
	}
	samples, err := models.ParseSamples(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	events := h.Sessions.Process(deviceID, tenantID, samples...)
	for _, e := range events {
		if e.Kind != models.EventFall || h.Alerts == nil {
			continue
		}
		de := models.DeviceEvent{DeviceID: deviceID, TenantID: tenantID, Event: e}
		if err := h.Alerts.HandleFall(r.Context(), de); err != nil {
			h.Logger.Error("Failed to handle fall alert",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		}
	}

	if snap, err := h.Sessions.Snapshot(deviceID); err == nil {
		h.cacheState(r.Context(), snap)
	}

	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"device_id": deviceID, "events": events}))
}

// Status GET /devices/{id}/status，无活动会话时读取 Redis 缓存
func (h *MotionHandler) Status(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	snap, err := h.Sessions.Snapshot(deviceID)
	if err == nil {
		writeJSON(w, http.StatusOK, Ok(snap))
		return
	}

	if h.State != nil {
		cached, err := h.State.GetState(r.Context(), deviceID)
		if err == nil {
			writeJSON(w, http.StatusOK, Ok(cached))
			return
		}
		if !errors.Is(err, consumer.ErrStateNotFound) {
			h.Logger.Error("Failed to read cached state", zap.String("device_id", deviceID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to read state"))
			return
		}
	}

	writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("no session for device %s", deviceID)))
}

// CloseSession DELETE /devices/{id}/session
func (h *MotionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	closeErr := h.Sessions.Close(deviceID)
	if h.State != nil {
		if err := h.State.DeleteState(r.Context(), deviceID); err != nil {
			h.Logger.Warn("Failed to delete cached state", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	if errors.Is(closeErr, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, Fail(closeErr.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"device_id": deviceID, "closed": true}))
}

// ListAlerts GET /devices/{id}/alerts?tenant_id=&limit=
func (h *MotionHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	tenantID := h.tenantID(r)
	if tenantID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("tenant_id is required"))
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	alerts, err := h.Store.ListFallAlerts(r.Context(), tenantID, mux.Vars(r)["id"], limit)
	if err != nil {
		h.Logger.Error("Failed to list fall alerts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list alerts"))
		return
	}
	if alerts == nil {
		alerts = []models.FallAlert{}
	}
	writeJSON(w, http.StatusOK, Ok(alerts))
}

// Notify POST /notifications
func (h *MotionHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var n notifier.Notification
	if err := readBodyJSON(r, maxBodyBytes, &n); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid notification body"))
		return
	}
	n = n.Normalize()

	if err := h.Notifier.Notify(r.Context(), n); err != nil {
		h.Logger.Error("Failed to send notification", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, Fail("failed to send notification"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

// 报表中告警条数上限
const (
	defaultReportAlertLimit = 1000
	maxReportAlertLimit     = 1000
)

// ActivityReport GET /reports/activity.xlsx?tenant_id=&limit=
func (h *MotionHandler) ActivityReport(w http.ResponseWriter, r *http.Request) {
	tenantID := h.tenantID(r)
	if tenantID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("tenant_id is required"))
		return
	}

	summaries, err := h.Store.ListActivitySummaries(r.Context(), tenantID)
	if err != nil {
		h.Logger.Error("Failed to list activity summaries", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to build report"))
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), defaultReportAlertLimit)
	if limit <= 0 || limit > maxReportAlertLimit {
		limit = maxReportAlertLimit
	}
	alerts, err := h.Store.ListFallAlerts(r.Context(), tenantID, "", limit)
	if err != nil {
		h.Logger.Error("Failed to list fall alerts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to build report"))
		return
	}

	var buf bytes.Buffer
	if err := report.WriteActivityReport(&buf, summaries, alerts, limit); err != nil {
		h.Logger.Error("Failed to write activity report", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to build report"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(tenantID, h.clock())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *MotionHandler) cacheState(ctx context.Context, snap session.Snapshot) {
	if h.State == nil {
		return
	}
	if err := h.State.SetState(ctx, snap); err != nil {
		h.Logger.Warn("Failed to cache state", zap.String("device_id", snap.DeviceID), zap.Error(err))
	}
}
