package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// APIPrefix 运动服务 API 前缀
const APIPrefix = "/motion/api/v1"

// NewRouter 注册运动服务路由
func NewRouter(h *MotionHandler, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// 按完整路径注册：方法不匹配时返回 405
	r.HandleFunc(APIPrefix+"/devices/{id}/commands/{command}", h.Command).Methods(http.MethodPost)
	r.HandleFunc(APIPrefix+"/devices/{id}/samples", h.Samples).Methods(http.MethodPost)
	r.HandleFunc(APIPrefix+"/devices/{id}/status", h.Status).Methods(http.MethodGet)
	r.HandleFunc(APIPrefix+"/devices/{id}/session", h.CloseSession).Methods(http.MethodDelete)
	r.HandleFunc(APIPrefix+"/devices/{id}/alerts", h.ListAlerts).Methods(http.MethodGet)
	r.HandleFunc(APIPrefix+"/notifications", h.Notify).Methods(http.MethodPost)
	r.HandleFunc(APIPrefix+"/reports/activity.xlsx", h.ActivityReport).Methods(http.MethodGet)

	return r
}
