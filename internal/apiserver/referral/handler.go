// Package referral 推荐匹配领域 - HTTP 处理
//
// 老兵从附近摄影师搜索结果中选定一位后创建推荐，
// 推荐创建后不可修改，仅管理员可取消。
package referral

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
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

// Store 推荐处理器依赖的存储能力
type Store interface {
	storage.ReferralStore
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Handler 推荐领域 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建推荐处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册推荐相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/referrals", h.List)
	mux.HandleFunc("POST /api/v1/referrals", h.Create)
	mux.HandleFunc("GET /api/v1/referrals/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/referrals/{id}/cancel", auth.AdminOnly(h.Cancel))
}

type createReferralRequest struct {
	PhotographerID string `json:"photographerId"`
	VeteranID      string `json:"veteranId"`
}

// List 推荐列表
//
// 管理员可任意过滤；其他角色只能看到与自己相关的推荐。
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

	filter := storage.ReferralFilter{
		Status:         model.ReferralStatus(q.Get("status")),
		PhotographerID: q.Get("photographerId"),
		VeteranID:      q.Get("veteranId"),
		Limit:          pageSize,
		Offset:         (page - 1) * pageSize,
	}

	caller := auth.GetAuthUser(r.Context())
	if caller != nil && caller.Role != auth.UserRoleAdmin {
		filter.PhotographerID = ""
		filter.VeteranID = ""
		switch caller.Role {
		case string(model.UserRolePhotographer):
			filter.PhotographerID = caller.ID
		default:
			filter.VeteranID = caller.ID
		}
	}

	result, err := h.store.ListReferrals(r.Context(), filter)
	if err != nil {
		log.Printf("[referral.list] ListReferrals error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list referrals")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get 推荐详情（相关方或管理员）
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ref, err := h.store.GetReferralByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "referral not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get referral")
		return
	}

	caller := auth.GetAuthUser(r.Context())
	if caller != nil && caller.Role != auth.UserRoleAdmin &&
		caller.ID != ref.PhotographerID && caller.ID != ref.VeteranID {
		writeError(w, http.StatusForbidden, "not a participant of this referral")
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// Create 创建推荐
//
// 老兵只能以自己为受荐方；摄影师必须已通过审核且开放推荐。
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.GetAuthUser(r.Context())
	if caller != nil && caller.Role == string(model.UserRolePhotographer) {
		writeError(w, http.StatusForbidden, "photographers cannot create referrals")
		return
	}
	if caller != nil && caller.Role == string(model.UserRoleVeteran) {
		req.VeteranID = caller.ID
	}

	if req.PhotographerID == "" || req.VeteranID == "" {
		writeError(w, http.StatusBadRequest, "photographerId and veteranId are required")
		return
	}

	photographer, err := h.store.GetUserByID(r.Context(), req.PhotographerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "photographer not found")
		return
	}
	if photographer.Role != model.UserRolePhotographer {
		writeError(w, http.StatusBadRequest, "user is not a photographer")
		return
	}
	if photographer.Status != model.UserStatusApproved || !photographer.OpenToReferrals {
		writeError(w, http.StatusConflict, "photographer is not open to referrals")
		return
	}

	veteran, err := h.store.GetUserByID(r.Context(), req.VeteranID)
	if err != nil || veteran.Role != model.UserRoleVeteran {
		writeError(w, http.StatusBadRequest, "veteran not found")
		return
	}

	now := time.Now().UTC()
	ref := &model.Referral{
		ID:             generateID("ref"),
		PhotographerID: req.PhotographerID,
		VeteranID:      req.VeteranID,
		Status:         model.ReferralStatusMatched,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.store.CreateReferral(r.Context(), ref); err != nil {
		log.Printf("[referral.create] CreateReferral error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create referral")
		return
	}

	log.Printf("[referral] Matched %s with %s (%s)", ref.VeteranID, ref.PhotographerID, ref.ID)
	writeJSON(w, http.StatusCreated, ref)
}

// Cancel 取消推荐（管理员）
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.CancelReferral(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "referral not found")
			return
		}
		log.Printf("[referral.cancel] CancelReferral error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel referral")
		return
	}

	log.Printf("[referral] Canceled referral: %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.ReferralStatusCanceled)})
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
