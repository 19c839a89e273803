package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/apiserver/events"
	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/objstore"
	"patriots-admin/internal/shared/storage"
	"patriots-admin/pkg/formkit"
)

// 附近摄影师搜索默认参数
const (
	defaultNearbyRadius = 50.0
	defaultNearbyLimit  = 50
	suggestionLimit     = 10
)

// ObjectStore 对象存储接口（影棚照片与保险证明）
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	DeleteUserObjects(ctx context.Context, userID string) error
}

// Geocoder 地址补全接口
type Geocoder interface {
	Suggest(ctx context.Context, query string) ([]geocode.Suggestion, error)
}

// Handler 用户领域 HTTP 处理器
type Handler struct {
	store    storage.UserStore
	objects  ObjectStore
	nearby   cache.NearbyCache
	geocoder Geocoder
	geocache cache.GeocodeCache
	events   events.Sink
}

// NewHandler 创建用户处理器
//
// objects / nearby / geocache 可为 nil（未启用对应基础设施）。
func NewHandler(store storage.UserStore, objects ObjectStore, nearby cache.NearbyCache, geocoder Geocoder, geocache cache.GeocodeCache) *Handler {
	return &Handler{store: store, objects: objects, nearby: nearby, geocoder: geocoder, geocache: geocache, events: events.Discard{}}
}

// SetEvents 设置事件接收端（管理面板推送）
func (h *Handler) SetEvents(sink events.Sink) {
	if sink == nil {
		sink = events.Discard{}
	}
	h.events = sink
}

// RegisterRoutes 注册用户相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/users", auth.AdminOnly(h.List))
	mux.HandleFunc("POST /api/v1/users", auth.AdminOnly(h.Create))
	mux.HandleFunc("GET /api/v1/users/suggestions", h.Suggestions)
	mux.HandleFunc("POST /api/v1/users/address-suggestions", h.AddressSuggestions)
	mux.HandleFunc("GET /api/v1/users/{id}", h.Get)
	mux.HandleFunc("PATCH /api/v1/users/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", auth.AdminOnly(h.Delete))
	mux.HandleFunc("PATCH /api/v1/users/{id}/onboarding", h.SubmitOnboarding)
	mux.HandleFunc("GET /api/v1/users/{id}/images/{key...}", h.DownloadImage)
	mux.HandleFunc("GET /api/v1/photographers/nearby", h.Nearby)
}

// ============================================================================
// CRUD
// ============================================================================

// List 用户列表（管理员）
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

	filter := storage.UserFilter{
		Role:   model.UserRole(q.Get("role")),
		Status: model.UserStatus(q.Get("status")),
		Search: q.Get("search"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	result, err := h.store.ListUsers(r.Context(), filter)
	if err != nil {
		log.Printf("[user.list] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get 用户详情
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Create 创建用户（管理员）
//
// 接受 JSON 或 multipart。载荷按角色策略复算校验，
// 附件上传后对象 key 按上传顺序记录在用户行上。
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := parsePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := model.UserRole(p.str(formkit.FieldRole))
	if !model.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	form := formkit.NewUserForm(formkit.VariantEdit, role)
	applyToForm(form, p)

	// 编辑变体密码可留空，创建时必填
	password := p.str(formkit.FieldPassword)
	fields := map[string][]string{}
	if form.Group().Invalid() {
		fields = fieldErrors(form.Group())
	}
	if password == "" {
		fields[formkit.FieldPassword] = append(fields[formkit.FieldPassword], formkit.ErrKeyRequired)
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           generateID("usr"),
		PasswordHash: hash,
		Role:         form.Role(),
		Status:       form.Status(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	userFromForm(form.Group(), user)

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("[user.create] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if len(p.files) > 0 {
		if err := h.attachUploads(r.Context(), user, p); err != nil {
			log.Printf("[user.create] upload error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to store images")
			return
		}
		if err := h.store.UpdateUser(r.Context(), user); err != nil {
			log.Printf("[user.create] persist image keys error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to store images")
			return
		}
	}

	h.invalidateNearby(r.Context(), user.Role)
	h.events.Publish(events.UserEvent{
		Type: "user.created", UserID: user.ID,
		Role: string(user.Role), Status: string(user.Status), At: now,
	})
	log.Printf("[user] Created user: %s (%s, %s)", user.Email, user.ID, user.Role)
	writeJSON(w, http.StatusCreated, user)
}

// Update 编辑用户
//
// 本人或管理员可编辑；角色与审核状态变更仅限管理员；
// 密码在此路由永不更新。
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.store.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	caller := auth.GetAuthUser(r.Context())
	isAdmin := caller != nil && caller.Role == auth.UserRoleAdmin
	if caller != nil && !isAdmin && caller.ID != existing.ID {
		writeError(w, http.StatusForbidden, "cannot edit another user")
		return
	}

	p, err := parsePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 密码不在此路由更新
	delete(p.values, formkit.FieldPassword)
	delete(p.values, formkit.FieldPasswordConfirm)

	if !isAdmin {
		if p.has(formkit.FieldRole) && p.str(formkit.FieldRole) != string(existing.Role) {
			writeError(w, http.StatusForbidden, "only admins can change roles")
			return
		}
		if p.has(formkit.FieldStatus) && p.str(formkit.FieldStatus) != string(existing.Status) {
			writeError(w, http.StatusForbidden, "only admins can change status")
			return
		}
	}

	form := formkit.NewUserForm(formkit.VariantEdit, existing.Role)
	form.LoadUser(existing)
	if p.has(formkit.FieldRole) {
		newRole := model.UserRole(p.str(formkit.FieldRole))
		if !model.ValidRole(newRole) {
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		form.SetRole(newRole)
	}
	applyToForm(form, p)

	if form.Group().Invalid() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": fieldErrors(form.Group()),
		})
		return
	}

	updated := *existing
	userFromForm(form.Group(), &updated)
	updated.Role = form.Role()
	updated.Status = form.Status()
	updated.UpdatedAt = time.Now().UTC()

	if err := h.attachUploads(r.Context(), &updated, p); err != nil {
		log.Printf("[user.update] upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store images")
		return
	}

	if err := h.store.UpdateUser(r.Context(), &updated); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, storage.ErrDuplicate):
			writeError(w, http.StatusConflict, "email already registered")
		default:
			log.Printf("[user.update] UpdateUser error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	h.invalidateNearby(r.Context(), updated.Role)
	if updated.Status != existing.Status {
		h.events.Publish(events.UserEvent{
			Type: "user.status_changed", UserID: updated.ID,
			Role: string(updated.Role), Status: string(updated.Status), At: updated.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, &updated)
}

// Delete 删除用户（管理员），连带清理对象存储
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	if h.objects != nil {
		if err := h.objects.DeleteUserObjects(r.Context(), id); err != nil {
			log.Printf("[user.delete] delete objects error: %v", err)
		}
	}
	h.invalidateNearby(r.Context(), model.UserRolePhotographer)

	log.Printf("[user] Deleted user: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// 摄影师入驻
// ============================================================================

// SubmitOnboarding 摄影师提交入驻材料
//
// 仅限 onboarding 状态的摄影师本人（或管理员代提交），
// 合规字段校验通过后状态回到 pending 等待复审。
func (h *Handler) SubmitOnboarding(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	caller := auth.GetAuthUser(r.Context())
	isAdmin := caller != nil && caller.Role == auth.UserRoleAdmin
	if caller != nil && !isAdmin && caller.ID != user.ID {
		writeError(w, http.StatusForbidden, "cannot submit onboarding for another user")
		return
	}
	if user.Role != model.UserRolePhotographer {
		writeError(w, http.StatusConflict, "only photographers have onboarding")
		return
	}
	if user.Status != model.UserStatusOnboarding {
		writeError(w, http.StatusConflict, "user is not in onboarding")
		return
	}

	p, err := parsePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	isHomeStudio := asBool(p.values["isHomeStudio"])
	if fields := validateOnboarding(p, isHomeStudio); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}

	applyOnboarding(user, p)
	user.Status = model.UserStatusPending
	user.UpdatedAt = time.Now().UTC()

	if err := h.attachUploads(r.Context(), user, p); err != nil {
		log.Printf("[user.onboarding] upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store images")
		return
	}

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		log.Printf("[user.onboarding] UpdateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	h.events.Publish(events.UserEvent{
		Type: "user.status_changed", UserID: user.ID,
		Role: string(user.Role), Status: string(user.Status), At: user.UpdatedAt,
	})
	log.Printf("[user] Photographer onboarding submitted: %s (%s)", user.Email, user.ID)
	writeJSON(w, http.StatusOK, user)
}

// validateOnboarding 校验入驻合规字段
func validateOnboarding(p *payload, isHomeStudio bool) map[string][]string {
	g := formkit.NewGroup()
	for _, name := range formkit.OnboardingRequiredFields(isHomeStudio) {
		switch name {
		case "agreeToCriminalBackgroundCheck", "agreeToVolunteerAgreement", "acknowledgeHomeStudioAgreement":
			g.Add(name, p.values[name], formkit.RequiredTrue())
		default:
			g.Add(name, p.values[name], formkit.Required())
		}
	}
	if !g.Invalid() {
		return nil
	}
	return fieldErrors(g)
}

// applyOnboarding 把入驻载荷写入用户模型
func applyOnboarding(u *model.User, p *payload) {
	u.MailingStreetAddress1 = asStringPtr(p.values["mailingStreetAddress1"])
	u.MailingStreetAddress2 = asStringPtr(p.values["mailingStreetAddress2"])
	u.MailingCity = asStringPtr(p.values["mailingCity"])
	u.MailingState = asStringPtr(p.values["mailingState"])
	u.MailingPostalCode = asStringPtr(p.values["mailingPostalCode"])
	u.ClosestBase = asStringPtr(p.values["closestBase"])
	u.AgreeToCriminalBackgroundCheck = asBoolPtr(p.values["agreeToCriminalBackgroundCheck"])
	u.SocialMedia = asStringPtr(p.values["socialMedia"])
	u.IsHomeStudio = asBoolPtr(p.values["isHomeStudio"])
	u.PartOfHomeStudio = asStringPtr(p.values["partOfHomeStudio"])
	u.IsSeparateEntrance = asBoolPtr(p.values["isSeparateEntrance"])
	u.AcknowledgeHomeStudioAgreement = asBoolPtr(p.values["acknowledgeHomeStudioAgreement"])
	u.IsStudioAdaAccessible = asBoolPtr(p.values["isStudioAdaAccessible"])
	u.AgreeToVolunteerAgreement = asBoolPtr(p.values["agreeToVolunteerAgreement"])
}

// ============================================================================
// 附近摄影师 / 搜索建议
// ============================================================================

// Nearby 按坐标查找附近开放推荐的摄影师
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	radius := defaultNearbyRadius
	if v, err := strconv.ParseFloat(q.Get("radius"), 64); err == nil && v > 0 {
		radius = v
	}

	key := fmt.Sprintf("%.4f,%.4f,%.1f", lat, lng, radius)
	if h.nearby != nil {
		if cached, err := h.nearby.GetNearby(r.Context(), key); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"photographers": cached, "count": len(cached)})
			return
		}
	}

	photographers, err := h.store.NearbyPhotographers(r.Context(), lat, lng, radius, defaultNearbyLimit)
	if err != nil {
		log.Printf("[user.nearby] NearbyPhotographers error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to search photographers")
		return
	}

	if h.nearby != nil {
		if err := h.nearby.SetNearby(r.Context(), key, photographers); err != nil {
			log.Printf("[user.nearby] cache write error: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"photographers": photographers, "count": len(photographers)})
}

// Suggestions 按姓名/邮箱前缀搜索用户（推荐与会话双方选择）
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	users, err := h.store.SearchUsers(r.Context(), model.UserRole(q.Get("role")), query, suggestionLimit)
	if err != nil {
		log.Printf("[user.suggestions] SearchUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to search users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

// AddressSuggestions 地址补全（编辑表单使用）
func (h *Handler) AddressSuggestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	if h.geocache != nil {
		if cached, err := h.geocache.GetSuggestions(r.Context(), req.Query); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": cached})
			return
		}
	}

	suggestions, err := h.geocoder.Suggest(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, geocode.ErrStreetRequired) {
			writeError(w, http.StatusUnprocessableEntity, "street number is required")
			return
		}
		log.Printf("[user.suggestions] geocode error: %v", err)
		writeError(w, http.StatusBadGateway, "address lookup failed")
		return
	}

	if h.geocache != nil {
		if err := h.geocache.SetSuggestions(r.Context(), req.Query, suggestions); err != nil {
			log.Printf("[user.suggestions] cache write error: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// ============================================================================
// 图片
// ============================================================================

// DownloadImage 下载用户图片（本人或管理员）
func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	caller := auth.GetAuthUser(r.Context())
	if caller != nil && caller.Role != auth.UserRoleAdmin && caller.ID != id {
		writeError(w, http.StatusForbidden, "cannot access another user's images")
		return
	}
	if h.objects == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage not configured")
		return
	}

	key := "users/" + id + "/" + r.PathValue("key")
	rc, contentType, err := h.objects.Download(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	io.Copy(w, rc)
}

// attachUploads 上传附件并把对象 key 追加到用户模型
//
// 序号接在已有 key 之后，保证展示顺序与上传顺序一致。
// 只修改内存中的模型，持久化由调用方完成。
func (h *Handler) attachUploads(ctx context.Context, u *model.User, p *payload) error {
	if h.objects == nil || len(p.files) == 0 {
		return nil
	}

	if headers := p.files["studioSpaceImages"]; len(headers) > 0 {
		keys, err := h.uploadImages(ctx, u.ID, "studioSpaceImages", headers, len(u.StudioSpaceImages))
		if err != nil {
			return err
		}
		u.StudioSpaceImages = append(u.StudioSpaceImages, keys...)
	}
	if headers := p.files["proofOfInsuranceImages"]; len(headers) > 0 {
		keys, err := h.uploadImages(ctx, u.ID, "proofOfInsuranceImages", headers, len(u.ProofOfInsuranceImages))
		if err != nil {
			return err
		}
		u.ProofOfInsuranceImages = append(u.ProofOfInsuranceImages, keys...)
	}

	return nil
}

// uploadImages 按顺序上传一组文件，返回对象 key 列表
func (h *Handler) uploadImages(ctx context.Context, userID, field string, headers []*multipart.FileHeader, startSeq int) ([]string, error) {
	keys := make([]string, 0, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		key := objstore.UserImageKey(userID, field, startSeq+i, fh.Filename)
		err = h.objects.Upload(ctx, key, f, fh.Size, fh.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// invalidateNearby 摄影师数据变更后失效附近搜索缓存
func (h *Handler) invalidateNearby(ctx context.Context, role model.UserRole) {
	if h.nearby == nil || role != model.UserRolePhotographer {
		return
	}
	if err := h.nearby.InvalidateNearby(ctx); err != nil {
		log.Printf("[user] nearby cache invalidate error: %v", err)
	}
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
