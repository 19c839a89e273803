package referral

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

type fakeStore struct {
	referrals  map[string]*model.Referral
	users      map[string]*model.User
	lastFilter storage.ReferralFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{referrals: map[string]*model.Referral{}, users: map[string]*model.User{}}
}

func (s *fakeStore) CreateReferral(_ context.Context, r *model.Referral) error {
	cp := *r
	s.referrals[r.ID] = &cp
	return nil
}

func (s *fakeStore) GetReferralByID(_ context.Context, id string) (*model.Referral, error) {
	r, ok := s.referrals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) CancelReferral(_ context.Context, id string) error {
	r, ok := s.referrals[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.Status = model.ReferralStatusCanceled
	return nil
}

func (s *fakeStore) ListReferrals(_ context.Context, filter storage.ReferralFilter) (*storage.Page[*model.Referral], error) {
	s.lastFilter = filter
	items := make([]*model.Referral, 0, len(s.referrals))
	for _, r := range s.referrals {
		items = append(items, r)
	}
	return &storage.Page[*model.Referral]{Items: items, Total: len(items)}, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func seedUsers(store *fakeStore) {
	store.users["usr-ph1"] = &model.User{
		ID: "usr-ph1", Role: model.UserRolePhotographer,
		Status: model.UserStatusApproved, OpenToReferrals: true,
	}
	store.users["usr-ph-closed"] = &model.User{
		ID: "usr-ph-closed", Role: model.UserRolePhotographer,
		Status: model.UserStatusApproved, OpenToReferrals: false,
	}
	store.users["usr-ph-pending"] = &model.User{
		ID: "usr-ph-pending", Role: model.UserRolePhotographer,
		Status: model.UserStatusPending, OpenToReferrals: true,
	}
	store.users["usr-vet1"] = &model.User{ID: "usr-vet1", Role: model.UserRoleVeteran, Status: model.UserStatusApproved}
}

func ctxAs(id, role string) context.Context {
	return auth.WithAuthUser(context.Background(), &auth.AuthUser{ID: id, Role: role})
}

func post(ctx context.Context, h http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateReferral(t *testing.T) {
	store := newFakeStore()
	seedUsers(store)
	h := NewHandler(store)

	rec := post(ctxAs("usr-vet1", "veteran"), h.Create, "/api/v1/referrals", map[string]string{
		"photographerId": "usr-ph1",
		// 老兵只能以自己为受荐方，传入的其它 ID 被忽略
		"veteranId": "usr-impersonated",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ref model.Referral
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ref))
	assert.Equal(t, model.ReferralStatusMatched, ref.Status)
	assert.Equal(t, "usr-vet1", ref.VeteranID)
	assert.Equal(t, "usr-ph1", ref.PhotographerID)
}

func TestCreateReferralGuards(t *testing.T) {
	store := newFakeStore()
	seedUsers(store)
	h := NewHandler(store)

	t.Run("closed photographer rejected", func(t *testing.T) {
		rec := post(ctxAs("usr-vet1", "veteran"), h.Create, "/api/v1/referrals", map[string]string{
			"photographerId": "usr-ph-closed",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("pending photographer rejected", func(t *testing.T) {
		rec := post(ctxAs("usr-vet1", "veteran"), h.Create, "/api/v1/referrals", map[string]string{
			"photographerId": "usr-ph-pending",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown photographer", func(t *testing.T) {
		rec := post(ctxAs("usr-vet1", "veteran"), h.Create, "/api/v1/referrals", map[string]string{
			"photographerId": "usr-nope",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("photographer cannot create", func(t *testing.T) {
		rec := post(ctxAs("usr-ph1", "photographer"), h.Create, "/api/v1/referrals", map[string]string{
			"photographerId": "usr-ph1", "veteranId": "usr-vet1",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCancelReferral(t *testing.T) {
	store := newFakeStore()
	seedUsers(store)
	h := NewHandler(store)

	now := time.Now().UTC()
	store.referrals["ref-1"] = &model.Referral{
		ID: "ref-1", PhotographerID: "usr-ph1", VeteranID: "usr-vet1",
		Status: model.ReferralStatusMatched, CreatedAt: now, UpdatedAt: now,
	}

	req := httptest.NewRequest("POST", "/api/v1/referrals/ref-1/cancel", nil).WithContext(ctxAs("usr-a", "admin"))
	req.SetPathValue("id", "ref-1")
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, _ := store.GetReferralByID(context.Background(), "ref-1")
	assert.Equal(t, model.ReferralStatusCanceled, stored.Status)
}

func TestListReferralsScoped(t *testing.T) {
	store := newFakeStore()
	seedUsers(store)
	h := NewHandler(store)

	t.Run("photographer scoped to self", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/referrals?veteranId=usr-x", nil).
			WithContext(ctxAs("usr-ph1", "photographer"))
		rec := httptest.NewRecorder()
		h.List(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "usr-ph1", store.lastFilter.PhotographerID)
		assert.Empty(t, store.lastFilter.VeteranID)
	})

	t.Run("admin filters pass through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/referrals?photographerId=usr-ph1&status=matched", nil).
			WithContext(ctxAs("usr-a", "admin"))
		rec := httptest.NewRecorder()
		h.List(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "usr-ph1", store.lastFilter.PhotographerID)
		assert.Equal(t, model.ReferralStatusMatched, store.lastFilter.Status)
	})
}
