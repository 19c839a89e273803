package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

// fakeStore 内存用户存储
type fakeStore struct {
	byEmail map[string]*model.User
	byID    map[string]*model.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{byEmail: map[string]*model.User{}, byID: map[string]*model.User{}}
}

func (s *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	key := strings.ToLower(u.Email)
	if _, exists := s.byEmail[key]; exists {
		return storage.ErrDuplicate
	}
	s.byEmail[key] = u
	s.byID[u.ID] = u
	return nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) UpdateUserPassword(_ context.Context, id, hash string) error {
	u, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type fakeGeocoder struct {
	suggestions []geocode.Suggestion
	err         error
	calls       int
}

func (g *fakeGeocoder) Suggest(_ context.Context, _ string) ([]geocode.Suggestion, error) {
	g.calls++
	return g.suggestions, g.err
}

func testConfig() Config {
	return Config{JWTSecret: "unit-test-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
}

func newTestHandler(t *testing.T) (*Handler, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewHandler(store, testConfig(), &fakeGeocoder{}, nil), store
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func veteranSignupPayload() map[string]any {
	return map[string]any{
		"role":                      "veteran",
		"firstName":                 "Sam",
		"lastName":                  "Carter",
		"email":                     "sam.carter@example.com",
		"password":                  "hunter2hunter2",
		"passwordConfirm":           "hunter2hunter2",
		"phoneNumber":               "555-0101",
		"streetAddress1":            "100 Main St",
		"city":                      "Dallas",
		"state":                     "TX",
		"postalCode":                "75201",
		"latitude":                  32.78,
		"longitude":                 -96.8,
		"seekingEmployment":         true,
		"eligibility":               "transitioning_service_member",
		"militaryBranchAffiliation": "us_army",
		"militaryETSDate":           "2026-06-01",
		"certified":                 true,
	}
}

func photographerSignupPayload() map[string]any {
	return map[string]any{
		"role":            "photographer",
		"firstName":       "Alex",
		"lastName":        "Reed",
		"email":           "alex.reed@example.com",
		"password":        "hunter2hunter2",
		"passwordConfirm": "hunter2hunter2",
		"phoneNumber":     "555-0102",
		"streetAddress1":  "200 Elm St",
		"city":            "Dallas",
		"state":           "TX",
		"postalCode":      "75201",
		"latitude":        32.79,
		"longitude":       -96.81,
		"website":         "https://reedphoto.example.com",
	}
}

func TestSignupVeteran(t *testing.T) {
	h, store := newTestHandler(t)

	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", veteranSignupPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	// 老兵注册即通过
	assert.Equal(t, model.UserStatusApproved, resp.User.Status)
	assert.Equal(t, model.UserRoleVeteran, resp.User.Role)

	stored, err := store.GetUserByEmail(context.Background(), "sam.carter@example.com")
	require.NoError(t, err)
	assert.True(t, CheckPassword("hunter2hunter2", stored.PasswordHash))
	require.NotNil(t, stored.Eligibility)
	assert.Equal(t, model.EligibilityTransitioningServiceMember, *stored.Eligibility)
}

func TestSignupVeteranRequiresCertified(t *testing.T) {
	h, _ := newTestHandler(t)

	payload := veteranSignupPayload()
	payload["certified"] = false
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string][]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields["certified"], "requiredTrue")
}

func TestSignupPhotographerPending(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", photographerSignupPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 摄影师需要管理员审核
	assert.Equal(t, model.UserStatusPending, resp.User.Status)
}

func TestSignupPhotographerRequiresWebsite(t *testing.T) {
	h, _ := newTestHandler(t)

	payload := photographerSignupPayload()
	delete(payload, "website")
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string][]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields["website"], "required")
}

func TestSignupRejectsAdminRole(t *testing.T) {
	h, _ := newTestHandler(t)
	payload := veteranSignupPayload()
	payload["role"] = "admin"
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupPasswordMismatch(t *testing.T) {
	h, _ := newTestHandler(t)
	payload := veteranSignupPayload()
	payload["passwordConfirm"] = "somethingelse1"
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string][]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields["passwordConfirm"], "passwordsMismatch")
}

func TestSignupDuplicateEmail(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", veteranSignupPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = postJSON(t, h.Signup, "/api/v1/auth/signup", veteranSignupPayload())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignin(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", veteranSignupPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("success", func(t *testing.T) {
		rec := postJSON(t, h.Signin, "/api/v1/auth/signin", map[string]string{
			"email": "sam.carter@example.com", "password": "hunter2hunter2",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp authResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := postJSON(t, h.Signin, "/api/v1/auth/signin", map[string]string{
			"email": "sam.carter@example.com", "password": "wrongwrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := postJSON(t, h.Signin, "/api/v1/auth/signin", map[string]string{
			"email": "nobody@example.com", "password": "hunter2hunter2",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSigninDeniedAccount(t *testing.T) {
	h, store := newTestHandler(t)
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", veteranSignupPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	u, err := store.GetUserByEmail(context.Background(), "sam.carter@example.com")
	require.NoError(t, err)
	u.Status = model.UserStatusDenied

	rec = postJSON(t, h.Signin, "/api/v1/auth/signin", map[string]string{
		"email": "sam.carter@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefreshRotatesBothTokens(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", veteranSignupPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	var signup authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signup))

	rec = postJSON(t, h.Refresh, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": signup.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	assert.NotEmpty(t, resp["refresh_token"])

	// 访问令牌不能当刷新令牌用
	rec = postJSON(t, h.Refresh, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": signup.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeAndChangePassword(t *testing.T) {
	h, store := newTestHandler(t)
	rec := postJSON(t, h.Signup, "/api/v1/auth/signup", veteranSignupPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	u, err := store.GetUserByEmail(context.Background(), "sam.carter@example.com")
	require.NoError(t, err)
	authCtx := WithAuthUser(context.Background(), &AuthUser{ID: u.ID, Email: u.Email, Role: string(u.Role)})

	t.Run("me", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/me", nil).WithContext(authCtx)
		rec := httptest.NewRecorder()
		h.Me(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var got model.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, u.ID, got.ID)
		// 密码哈希绝不下发
		assert.NotContains(t, rec.Body.String(), "password_hash")
	})

	t.Run("change password", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"old_password": "hunter2hunter2", "new_password": "newpassword99",
		})
		req := httptest.NewRequest("PUT", "/api/v1/auth/password", bytes.NewReader(body)).WithContext(authCtx)
		rec := httptest.NewRecorder()
		h.ChangePassword(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, CheckPassword("newpassword99", u.PasswordHash))
	})

	t.Run("wrong old password", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"old_password": "nope-nope-nope", "new_password": "anotherpass99",
		})
		req := httptest.NewRequest("PUT", "/api/v1/auth/password", bytes.NewReader(body)).WithContext(authCtx)
		rec := httptest.NewRecorder()
		h.ChangePassword(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAddressSuggestions(t *testing.T) {
	store := newFakeStore()

	t.Run("success", func(t *testing.T) {
		geo := &fakeGeocoder{suggestions: []geocode.Suggestion{
			{Text: "100 Main St, Dallas, TX 75201", City: "Dallas", State: "TX", Latitude: 32.78, Longitude: -96.8},
		}}
		h := NewHandler(store, testConfig(), geo, nil)
		rec := postJSON(t, h.AddressSuggestions, "/api/v1/auth/address-suggestions", map[string]string{
			"query": "100 Main St",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Suggestions []geocode.Suggestion `json:"suggestions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Suggestions, 1)
		assert.Equal(t, "Dallas", resp.Suggestions[0].City)
		assert.Equal(t, 1, geo.calls)
	})

	t.Run("street number required", func(t *testing.T) {
		geo := &fakeGeocoder{err: geocode.ErrStreetRequired}
		h := NewHandler(store, testConfig(), geo, nil)
		rec := postJSON(t, h.AddressSuggestions, "/api/v1/auth/address-suggestions", map[string]string{
			"query": "Main St",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("empty query", func(t *testing.T) {
		h := NewHandler(store, testConfig(), &fakeGeocoder{}, nil)
		rec := postJSON(t, h.AddressSuggestions, "/api/v1/auth/address-suggestions", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEnsureAdminUser(t *testing.T) {
	store := newFakeStore()

	require.NoError(t, EnsureAdminUser(store, "admin@example.com", "adminpass99"))
	u, err := store.GetUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleAdmin, u.Role)
	assert.Equal(t, model.UserStatusApproved, u.Status)

	// 幂等：已存在时不重复创建
	require.NoError(t, EnsureAdminUser(store, "admin@example.com", "adminpass99"))

	// 未配置时跳过
	require.NoError(t, EnsureAdminUser(store, "", ""))
}
