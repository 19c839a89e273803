package server

import (
	"net"
	"net/http"
	"time"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/apiserver/referral"
	"patriots-admin/internal/apiserver/session"
	"patriots-admin/internal/apiserver/stats"
	"patriots-admin/internal/apiserver/user"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 认证 (Auth):
//   - POST /api/v1/auth/signup              - 注册（老兵 / 摄影师）
//   - POST /api/v1/auth/signin              - 登录
//   - POST /api/v1/auth/refresh             - 刷新令牌
//   - GET  /api/v1/auth/me                  - 当前用户
//   - PUT  /api/v1/auth/password            - 修改密码
//   - POST /api/v1/auth/address-suggestions - 注册时地址补全
//
// 用户管理 (User):
//   - GET    /api/v1/users                  - 列出用户（管理员）
//   - POST   /api/v1/users                  - 创建用户（管理员）
//   - GET    /api/v1/users/suggestions      - 姓名/邮箱联想
//   - GET    /api/v1/users/{id}             - 获取用户详情
//   - PATCH  /api/v1/users/{id}             - 更新用户
//   - DELETE /api/v1/users/{id}             - 删除用户（管理员）
//   - PATCH  /api/v1/users/{id}/onboarding  - 提交入驻材料
//   - GET    /api/v1/users/{id}/images/{key...} - 下载上传图片
//   - GET    /api/v1/photographers/nearby   - 附近摄影师搜索
//
// 会话管理 (Session):
//   - GET    /api/v1/sessions          - 列出会话
//   - POST   /api/v1/sessions          - 创建会话 / 发起请求
//   - GET    /api/v1/sessions/recent   - 最近会话
//   - GET    /api/v1/sessions/{id}     - 获取会话详情
//   - PATCH  /api/v1/sessions/{id}     - 更新状态 / 反馈
//   - DELETE /api/v1/sessions/{id}     - 删除会话（管理员）
//
// 推荐匹配 (Referral):
//   - GET  /api/v1/referrals             - 列出推荐
//   - POST /api/v1/referrals             - 创建推荐
//   - GET  /api/v1/referrals/{id}        - 获取推荐详情
//   - POST /api/v1/referrals/{id}/cancel - 取消推荐（管理员）
//
// 统计 (Stats):
//   - GET /api/v1/stats/admin - 管理面板统计（管理员）
//   - GET /api/v1/stats/me    - 个人面板统计
//
// WebSocket:
//   - GET /ws/dashboard - 管理面板实时事件推送
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Auth 接口
	authHandler := auth.NewHandler(h.store, h.authConfig, h.geocoder, h.geocodeCache)
	authHandler.RegisterRoutes(mux)

	// User 接口
	userHandler := user.NewHandler(h.store, h.objects, h.nearbyCache, h.geocoder, h.geocodeCache)
	userHandler.SetEvents(h.dashboard)
	userHandler.RegisterRoutes(mux)

	// Session 接口，状态变更推送到面板
	sessionHandler := session.NewHandler(h.store, h.dashboard)
	sessionHandler.RegisterRoutes(mux)

	// Referral 接口
	referralHandler := referral.NewHandler(h.store)
	referralHandler.RegisterRoutes(mux)

	// Stats 接口
	statsHandler := stats.NewHandler(h.store, h.statsCache)
	statsHandler.RegisterRoutes(mux)

	// 应用指标中间件到 REST API
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用认证中间件
	authedHandler := auth.Middleware(h.authConfig)(apiHandler)

	// 应用 CORS 中间件
	corsHandler := corsMiddleware(authedHandler)

	// 应用请求日志中间件
	corsHandler = h.requestLogMiddleware(corsHandler)

	// 创建顶层路由，WebSocket 绕过 metrics 中间件（避免 http.Hijacker 问题）
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /ws/dashboard", h.dashboard.HandleWebSocket)
	topMux.Handle("/", corsHandler)

	return topMux
}

// requestLogMiddleware 记录结构化访问日志
func (h *Handler) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			clientIP = host
		}
		h.logger.HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP)
	})
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
