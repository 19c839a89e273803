package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
	"patriots-admin/pkg/formkit"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
}

// Geocoder 地址补全接口
type Geocoder interface {
	Suggest(ctx context.Context, query string) ([]geocode.Suggestion, error)
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store    UserStore
	cfg      Config
	geocoder Geocoder
	geocache cache.GeocodeCache
}

// NewHandler 创建认证处理器
func NewHandler(store UserStore, cfg Config, geocoder Geocoder, geocache cache.GeocodeCache) *Handler {
	return &Handler{store: store, cfg: cfg, geocoder: geocoder, geocache: geocache}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/v1/auth/signin", h.Signin)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/auth/me", h.Me)
	mux.HandleFunc("PUT /api/v1/auth/password", h.ChangePassword)
	mux.HandleFunc("POST /api/v1/auth/address-suggestions", h.AddressSuggestions)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type signupRequest struct {
	Role            string `json:"role"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	PhoneNumber     string `json:"phoneNumber"`

	StreetAddress1 string   `json:"streetAddress1"`
	StreetAddress2 *string  `json:"streetAddress2"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	PostalCode     string   `json:"postalCode"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	ReferredBy     *string  `json:"referredBy"`

	// Photographer
	Website *string `json:"website"`

	// Veteran
	SeekingEmployment *bool   `json:"seekingEmployment"`
	LinkedinProfile   *string `json:"linkedinProfile"`
	Eligibility       *string `json:"eligibility"`
	MilitaryBranch    *string `json:"militaryBranchAffiliation"`
	MilitaryETSDate   *string `json:"militaryETSDate"`
	Certified         bool    `json:"certified"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type suggestionsRequest struct {
	Query string `json:"query"`
}

type authResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
}

// ============================================================================
// Handlers
// ============================================================================

// Signup 用户注册
//
// 按角色校验注册表单（老兵必须勾选 certified），初始状态由角色决定：
// 摄影师进入待审核，老兵注册即通过。
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	body := json.NewDecoder(r.Body)
	var req signupRequest
	if err := body.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := model.UserRole(req.Role)
	if role != model.UserRolePhotographer && role != model.UserRoleVeteran {
		writeError(w, http.StatusBadRequest, "role must be photographer or veteran")
		return
	}

	if fieldErrors := validateSignup(role, &req); len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": fieldErrors,
		})
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[auth.signup] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:             generateID("usr"),
		Email:          req.Email,
		PasswordHash:   hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           role,
		Status:         model.DefaultStatusForRole(role),
		PhoneNumber:    req.PhoneNumber,
		StreetAddress1: req.StreetAddress1,
		StreetAddress2: req.StreetAddress2,
		City:           req.City,
		State:          req.State,
		PostalCode:     req.PostalCode,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		ReferredBy:     req.ReferredBy,
		Website:        req.Website,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if role == model.UserRoleVeteran {
		user.SeekingEmployment = req.SeekingEmployment
		user.LinkedinProfile = req.LinkedinProfile
		if req.Eligibility != nil {
			e := model.Eligibility(*req.Eligibility)
			user.Eligibility = &e
		}
		if req.MilitaryBranch != nil {
			b := model.MilitaryBranch(*req.MilitaryBranch)
			user.MilitaryBranch = &b
		}
		user.MilitaryETSDate = req.MilitaryETSDate
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("[auth.signup] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(user)
	if err != nil {
		log.Printf("[auth.signup] token error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] User signed up: %s (%s, %s)", user.Email, user.ID, user.Role)
	writeJSON(w, http.StatusCreated, authResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Signin 用户登录
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		log.Printf("[auth.signin] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if user.Status == model.UserStatusDenied {
		writeError(w, http.StatusForbidden, "account has been denied")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] User signed in: %s", user.Email)
	writeJSON(w, http.StatusOK, authResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Refresh 刷新令牌
//
// 访问令牌和刷新令牌一并轮换，旧刷新令牌在 TTL 内仍然有效。
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	claims, err := ParseToken(h.cfg, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if claims.Type != "refresh" {
		writeError(w, http.StatusUnauthorized, "invalid token type")
		return
	}

	// 查询用户确保仍然存在且有效
	user, err := h.store.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	if user.Status == model.UserStatusDenied {
		writeError(w, http.StatusForbidden, "account has been denied")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Me 获取当前用户信息
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ChangePassword 修改密码
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if !CheckPassword(req.OldPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "incorrect old password")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	log.Printf("[auth] Password changed: %s", user.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// AddressSuggestions 地址补全（注册页公开使用）
//
// 查询必须以门牌号开头。命中缓存不回源，零结果正常返回空列表。
func (h *Handler) AddressSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
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
		log.Printf("[auth.suggestions] geocode error: %v", err)
		writeError(w, http.StatusBadGateway, "address lookup failed")
		return
	}

	if h.geocache != nil {
		if err := h.geocache.SetSuggestions(r.Context(), req.Query, suggestions); err != nil {
			log.Printf("[auth.suggestions] cache write error: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// ============================================================================
// 注册校验
// ============================================================================

// validateSignup 用表单策略校验注册载荷，返回字段错误 key 列表
func validateSignup(role model.UserRole, req *signupRequest) map[string][]string {
	form := formkit.NewUserForm(formkit.VariantRegistration, role)
	g := form.Group()

	g.Set(formkit.FieldFirstName, req.FirstName)
	g.Set(formkit.FieldLastName, req.LastName)
	g.Set(formkit.FieldEmail, req.Email)
	g.Set(formkit.FieldPassword, req.Password)
	g.Set(formkit.FieldPasswordConfirm, req.PasswordConfirm)
	g.Set(formkit.FieldPhoneNumber, req.PhoneNumber)
	g.Set(formkit.FieldStreetAddress1, req.StreetAddress1)
	g.Set(formkit.FieldCity, req.City)
	g.Set(formkit.FieldState, req.State)
	g.Set(formkit.FieldPostalCode, req.PostalCode)
	if req.Latitude != nil {
		g.Set(formkit.FieldLatitude, *req.Latitude)
	}
	if req.Longitude != nil {
		g.Set(formkit.FieldLongitude, *req.Longitude)
	}
	if req.Website != nil {
		g.Set("website", *req.Website)
	}
	if req.SeekingEmployment != nil {
		g.Set("seekingEmployment", *req.SeekingEmployment)
	}
	if req.Eligibility != nil {
		g.Set("eligibility", *req.Eligibility)
	}
	if req.MilitaryBranch != nil {
		g.Set("militaryBranchAffiliation", *req.MilitaryBranch)
	}
	if req.MilitaryETSDate != nil {
		g.Set("militaryETSDate", *req.MilitaryETSDate)
	}
	g.Set(formkit.FieldCertified, req.Certified)

	if !g.Invalid() {
		return nil
	}

	fieldErrors := map[string][]string{}
	for _, name := range g.Names() {
		if f := g.Field(name); f != nil && f.Invalid() {
			fieldErrors[name] = append([]string{}, f.Errors()...)
		}
	}
	if g.HasGroupError(formkit.ErrKeyPasswordsMismatch) {
		fieldErrors["passwordConfirm"] = append(fieldErrors["passwordConfirm"], formkit.ErrKeyPasswordsMismatch)
	}
	return fieldErrors
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// EnsureAdminUser 确保管理员用户存在（启动时调用）
// 如果配置了 adminEmail 且数据库中不存在该用户，则自动创建
func EnsureAdminUser(store UserStore, adminEmail, adminPassword string) error {
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	ctx := context.Background()
	existing, err := store.GetUserByEmail(ctx, adminEmail)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		log.Printf("[auth] Admin user already exists: %s (%s)", adminEmail, existing.ID)
		return nil
	}

	hash, err := HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        adminEmail,
		PasswordHash: hash,
		FirstName:    "Site",
		LastName:     "Admin",
		Role:         model.UserRoleAdmin,
		Status:       model.UserStatusApproved,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("[auth] Created admin user: %s (%s)", adminEmail, user.ID)
	return nil
}

// ============================================================================
// 工具函数
// ============================================================================

// issueTokens 签发访问令牌 + 刷新令牌
func (h *Handler) issueTokens(user *model.User) (access, refresh string, err error) {
	access, err = GenerateAccessToken(h.cfg, user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", "", err
	}
	refresh, err = GenerateRefreshToken(h.cfg, user.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

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
