// Package stats 面板统计 - HTTP 处理
//
// 统计查询开销大且容忍短暂陈旧，结果经缓存层（1 分钟 TTL）下发。
package stats

import (
	"encoding/json"
	"log"
	"net/http"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/storage"
)

// Handler 统计 HTTP 处理器
type Handler struct {
	store storage.StatsStore
	cache cache.StatsCache
}

// NewHandler 创建统计处理器，cache 可为 nil
func NewHandler(store storage.StatsStore, statsCache cache.StatsCache) *Handler {
	return &Handler{store: store, cache: statsCache}
}

// RegisterRoutes 注册统计路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/stats/admin", auth.AdminOnly(h.Admin))
	mux.HandleFunc("GET /api/v1/stats/me", h.Me)
}

// Admin 管理面板统计
func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if cached, err := h.cache.GetAdminStats(r.Context()); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	stats, err := h.store.AdminStats(r.Context())
	if err != nil {
		log.Printf("[stats.admin] AdminStats error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetAdminStats(r.Context(), stats); err != nil {
			log.Printf("[stats.admin] cache write error: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

// Me 个人面板统计（摄影师 / 老兵视角）
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller := auth.GetAuthUser(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if h.cache != nil {
		if cached, err := h.cache.GetMemberStats(r.Context(), caller.ID); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	stats, err := h.store.MemberStats(r.Context(), caller.ID)
	if err != nil {
		log.Printf("[stats.me] MemberStats error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetMemberStats(r.Context(), caller.ID, stats); err != nil {
			log.Printf("[stats.me] cache write error: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
