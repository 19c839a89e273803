// Package server 路由配置与核心基础设施
//
// 本包组装各领域处理器并提供横切能力：
//   - handler.go: 路由配置、CORS
//   - metrics.go: Prometheus 指标
//   - dashboard.go: 管理面板 WebSocket 实时推送
//   - sweeper.go: 过期会话清理与指标刷新
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/objstore"
	"patriots-admin/internal/shared/storage"
	"patriots-admin/pkg/logging"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到各领域独立包
//   - 管理存储层与缓存连接
//   - 运行面板推送与后台清理任务
type Handler struct {
	store storage.PersistentStore // 持久化业务数据

	// 缓存接口（可为 nil，降级为直接回源）
	geocodeCache cache.GeocodeCache
	nearbyCache  cache.NearbyCache
	statsCache   cache.StatsCache

	objects  *objstore.Client // 对象存储（用户上传图片）
	geocoder *geocode.Client  // 地址补全网关

	authConfig auth.Config
	metrics    *Metrics
	dashboard  *DashboardHub // 管理面板 WebSocket 推送
	logger     *logging.Logger
}

// NewHandler 创建 Handler 实例
//
// objects、geocoder、appCache 均可为 nil，对应功能降级。
func NewHandler(store storage.PersistentStore, appCache cache.Cache, objects *objstore.Client, geocoder *geocode.Client, authCfg auth.Config) *Handler {
	h := &Handler{
		store:      store,
		objects:    objects,
		geocoder:   geocoder,
		authConfig: authCfg,
	}

	// 从组合缓存提取具体接口（接口隔离）
	if appCache != nil {
		h.geocodeCache = appCache
		h.nearbyCache = appCache
		h.statsCache = appCache
	}

	h.metrics = NewMetrics("patriots")
	h.dashboard = NewDashboardHub(authCfg, h.metrics)
	h.logger = logging.Default("api-server")
	return h
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// Dashboard 返回面板推送中心，供处理器作为事件接收端使用
func (h *Handler) Dashboard() *DashboardHub {
	return h.dashboard
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
// 返回 {"status": "ok"} 表示服务正常运行。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := pingStore(r.Context(), h.store); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pingStore 通过轻量查询探测存储层连通性
func pingStore(ctx context.Context, store storage.PersistentStore) error {
	if store == nil {
		return nil
	}
	_, err := store.ListUsers(ctx, storage.UserFilter{Limit: 1})
	return err
}
