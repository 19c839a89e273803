// Package session 拍摄会话领域 - HTTP 处理
//
// 状态机约束（requested → scheduled → completed 等）由 model 层
// 定义，这里负责鉴权、反馈字段归属与载荷校验。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/apiserver/events"
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

const defaultRecentLimit = 5

// Store 会话处理器依赖的存储能力
type Store interface {
	storage.SessionStore
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Handler 会话领域 HTTP 处理器
type Handler struct {
	store  Store
	events events.Sink
}

// NewHandler 创建会话处理器
func NewHandler(store Store, sink events.Sink) *Handler {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Handler{store: store, events: sink}
}

// RegisterRoutes 注册会话相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/sessions", h.List)
	mux.HandleFunc("POST /api/v1/sessions", h.Create)
	mux.HandleFunc("GET /api/v1/sessions/recent", h.Recent)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.Get)
	mux.HandleFunc("PATCH /api/v1/sessions/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", auth.AdminOnly(h.Delete))
}

// ============================================================================
// 请求类型
// ============================================================================

type createSessionRequest struct {
	Name           string  `json:"name"`
	Note           *string `json:"note"`
	Date           string  `json:"date"` // RFC3339
	Status         string  `json:"status"`
	PhotographerID string  `json:"photographerId"`
	VeteranID      string  `json:"veteranId"`
}

// updateSessionRequest 指针字段区分"未提交"与"清空"
type updateSessionRequest struct {
	Name   *string `json:"name"`
	Note   *string `json:"note"`
	Date   *string `json:"date"`
	Status *string `json:"status"`

	OutcomePhotographer      *string `json:"outcomePhotographer"`
	OtherOutcomePhotographer *string `json:"otherOutcomePhotographer"`
	RatePhotographer         *int    `json:"ratePhotographer"`
	PhotographerFeedback     *string `json:"photographerFeedback"`
	OutcomeVeteran           *string `json:"outcomeVeteran"`
	OtherOutcomeVeteran      *string `json:"otherOutcomeVeteran"`
	RateVeteran              *int    `json:"rateVeteran"`
	VeteranFeedback          *string `json:"veteranFeedback"`
}

// ============================================================================
// Handlers
// ============================================================================

// List 会话列表
//
// 管理员可按任意过滤条件查询；其他角色只能看到自己参与的会话。
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := storage.SessionFilter{
		Status:         model.SessionStatus(q.Get("status")),
		PhotographerID: q.Get("photographerId"),
		VeteranID:      q.Get("veteranId"),
		Limit:          pageSize,
		Offset:         (page - 1) * pageSize,
	}

	caller := auth.GetAuthUser(r.Context())
	if caller != nil && caller.Role != auth.UserRoleAdmin {
		filter.PhotographerID = ""
		filter.VeteranID = ""
		filter.ParticipantID = caller.ID
	}

	result, err := h.store.ListSessions(r.Context(), filter)
	if err != nil {
		log.Printf("[session.list] ListSessions error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get 会话详情（参与方或管理员）
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.GetSessionByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	if !canAccess(r, sess) {
		writeError(w, http.StatusForbidden, "not a participant of this session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Create 创建会话
//
// 管理员可直接排期；老兵只能以自己为一方发起 requested 请求，
// 请求会话自动带上过期时间。
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.GetAuthUser(r.Context())
	isAdmin := caller == nil || caller.Role == auth.UserRoleAdmin

	status := model.SessionStatus(req.Status)
	if !isAdmin {
		if caller.Role != string(model.UserRoleVeteran) {
			writeError(w, http.StatusForbidden, "only veterans can request sessions")
			return
		}
		// 老兵请求固定为本人 + requested
		req.VeteranID = caller.ID
		status = model.SessionStatusRequested
	}
	if status == "" {
		status = model.SessionStatusScheduled
	}
	if !model.ValidSessionStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if req.Name == "" || req.PhotographerID == "" || req.VeteranID == "" {
		writeError(w, http.StatusBadRequest, "name, photographerId, veteranId are required")
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be RFC3339")
		return
	}

	if err := h.checkParty(r, w, req.PhotographerID, model.UserRolePhotographer); err != nil {
		return
	}
	if err := h.checkParty(r, w, req.VeteranID, model.UserRoleVeteran); err != nil {
		return
	}

	now := time.Now().UTC()
	sess := &model.Session{
		ID:             generateID("sess"),
		Name:           req.Name,
		Note:           req.Note,
		Status:         status,
		Date:           date,
		PhotographerID: req.PhotographerID,
		VeteranID:      req.VeteranID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.store.CreateSession(r.Context(), sess); err != nil {
		log.Printf("[session.create] CreateSession error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.events.Publish(events.SessionEvent{
		Type: "session.created", SessionID: sess.ID,
		Status: string(sess.Status), Name: sess.Name, At: now,
	})
	log.Printf("[session] Created session: %s (%s)", sess.ID, sess.Status)
	writeJSON(w, http.StatusCreated, sess)
}

// Update 编辑会话
//
// 状态转移走状态机校验；反馈字段只能由归属方本人或管理员修改。
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.GetSessionByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	if !canAccess(r, sess) {
		writeError(w, http.StatusForbidden, "not a participant of this session")
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.GetAuthUser(r.Context())
	callerRole := model.UserRoleAdmin
	if caller != nil {
		callerRole = model.UserRole(caller.Role)
	}

	if field, ok := feedbackViolation(callerRole, &req); ok {
		writeError(w, http.StatusForbidden, "cannot edit "+field)
		return
	}

	statusChanged := false
	if req.Status != nil {
		next := model.SessionStatus(*req.Status)
		if !model.ValidSessionStatus(next) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		if !sess.Status.CanTransitionTo(next) {
			writeError(w, http.StatusConflict, "invalid status transition")
			return
		}
		statusChanged = next != sess.Status
		if statusChanged && next == model.SessionStatusScheduled {
			// 排期后请求过期时间不再适用
			sess.ExpirationDate = nil
		}
		sess.Status = next
	}

	if req.Name != nil {
		sess.Name = *req.Name
	}
	if req.Note != nil {
		sess.Note = req.Note
	}
	if req.Date != nil {
		date, err := time.Parse(time.RFC3339, *req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be RFC3339")
			return
		}
		sess.Date = date
	}

	if msg := applyFeedback(sess, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	sess.UpdatedAt = time.Now().UTC()
	if err := h.store.UpdateSession(r.Context(), sess); err != nil {
		log.Printf("[session.update] UpdateSession error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update session")
		return
	}

	if statusChanged {
		h.events.Publish(events.SessionEvent{
			Type: "session.status_changed", SessionID: sess.ID,
			Status: string(sess.Status), Name: sess.Name, At: sess.UpdatedAt,
		})
		log.Printf("[session] Status changed: %s -> %s", sess.ID, sess.Status)
	}
	writeJSON(w, http.StatusOK, sess)
}

// Delete 删除会话（管理员）
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	log.Printf("[session] Deleted session: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// Recent 最近更新的会话（个人面板）
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 50 {
		limit = defaultRecentLimit
	}

	caller := auth.GetAuthUser(r.Context())
	participantID := r.URL.Query().Get("userId")
	if caller != nil && caller.Role != auth.UserRoleAdmin {
		participantID = caller.ID
	}

	sessions, err := h.store.RecentSessions(r.Context(), participantID, limit)
	if err != nil {
		log.Printf("[session.recent] RecentSessions error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list recent sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions, "count": len(sessions)})
}

// ============================================================================
// 辅助
// ============================================================================

// canAccess 参与方或管理员
func canAccess(r *http.Request, sess *model.Session) bool {
	caller := auth.GetAuthUser(r.Context())
	if caller == nil || caller.Role == auth.UserRoleAdmin {
		return true
	}
	return caller.ID == sess.PhotographerID || caller.ID == sess.VeteranID
}

// checkParty 校验会话一方存在且角色匹配，失败时写出响应
func (h *Handler) checkParty(r *http.Request, w http.ResponseWriter, id string, role model.UserRole) error {
	u, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, string(role)+" not found")
			return err
		}
		writeError(w, http.StatusInternalServerError, "failed to verify participants")
		return err
	}
	if u.Role != role {
		writeError(w, http.StatusBadRequest, "user "+id+" is not a "+string(role))
		return errors.New("role mismatch")
	}
	return nil
}

// feedbackViolation 返回第一个越权编辑的反馈字段
func feedbackViolation(role model.UserRole, req *updateSessionRequest) (string, bool) {
	checks := []struct {
		field string
		set   bool
	}{
		{"outcomePhotographer", req.OutcomePhotographer != nil},
		{"otherOutcomePhotographer", req.OtherOutcomePhotographer != nil},
		{"ratePhotographer", req.RatePhotographer != nil},
		{"photographerFeedback", req.PhotographerFeedback != nil},
		{"outcomeVeteran", req.OutcomeVeteran != nil},
		{"otherOutcomeVeteran", req.OtherOutcomeVeteran != nil},
		{"rateVeteran", req.RateVeteran != nil},
		{"veteranFeedback", req.VeteranFeedback != nil},
	}
	for _, c := range checks {
		if c.set && !model.CanEditFeedback(role, c.field) {
			return c.field, true
		}
	}
	return "", false
}

// applyFeedback 写入反馈字段，返回校验错误消息（空串为成功）
func applyFeedback(sess *model.Session, req *updateSessionRequest) string {
	if req.OutcomePhotographer != nil {
		o := model.SessionOutcome(*req.OutcomePhotographer)
		sess.OutcomePhotographer = &o
	}
	if req.OtherOutcomePhotographer != nil {
		sess.OtherOutcomePhotographer = req.OtherOutcomePhotographer
	}
	if req.RatePhotographer != nil {
		if *req.RatePhotographer < 1 || *req.RatePhotographer > 5 {
			return "ratePhotographer must be between 1 and 5"
		}
		sess.RatePhotographer = req.RatePhotographer
	}
	if req.PhotographerFeedback != nil {
		sess.PhotographerFeedback = req.PhotographerFeedback
	}
	if req.OutcomeVeteran != nil {
		o := model.SessionOutcome(*req.OutcomeVeteran)
		sess.OutcomeVeteran = &o
	}
	if req.OtherOutcomeVeteran != nil {
		sess.OtherOutcomeVeteran = req.OtherOutcomeVeteran
	}
	if req.RateVeteran != nil {
		if *req.RateVeteran < 1 || *req.RateVeteran > 5 {
			return "rateVeteran must be between 1 and 5"
		}
		sess.RateVeteran = req.RateVeteran
	}
	if req.VeteranFeedback != nil {
		sess.VeteranFeedback = req.VeteranFeedback
	}
	return ""
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
