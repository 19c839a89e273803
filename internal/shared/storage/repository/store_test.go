// Package repository SQLite 集成测试
//
// 使用 SQLite 内存数据库验证 repository 层所有存储接口的正确性。
// 无需外部数据库依赖，可在任何环境下运行。
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
	"patriots-admin/internal/shared/storage/dbutil"
	sqlitedriver "patriots-admin/internal/shared/storage/driver/sqlite"
)

// newTestStore 创建用于测试的 SQLite 内存数据库 Store
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func newVeteran(id, email string) *model.User {
	return &model.User{
		ID:             id,
		Email:          email,
		PasswordHash:   "x",
		FirstName:      "Vet",
		LastName:       id,
		Role:           model.UserRoleVeteran,
		Status:         model.UserStatusApproved,
		StreetAddress1: "1 Veteran Way",
		City:           "Dallas",
		State:          "TX",
		PostalCode:     "75201",
	}
}

func newPhotographer(id, email string, lat, lng float64) *model.User {
	return &model.User{
		ID:              id,
		Email:           email,
		PasswordHash:    "x",
		FirstName:       "Photo",
		LastName:        id,
		Role:            model.UserRolePhotographer,
		Status:          model.UserStatusApproved,
		OpenToReferrals: true,
		Latitude:        &lat,
		Longitude:       &lng,
	}
}

// ============================================================================
// Dialect 基础测试
// ============================================================================

func TestDialectTypes(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, dbutil.DriverSQLite, d.DriverType())
	assert.Equal(t, "datetime('now')", d.CurrentTimestamp())
	assert.Equal(t, "1", d.BooleanLiteral(true))
	assert.Equal(t, "0", d.BooleanLiteral(false))
}

func TestRebind(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, "SELECT * FROM t WHERE id = ? AND name = ?",
		d.Rebind("SELECT * FROM t WHERE id = $1 AND name = $2"))
	// 应去除 PG 类型转换
	assert.Equal(t, "UPDATE t SET status = ? WHERE id = ?",
		d.Rebind("UPDATE t SET status = $1::varchar WHERE id = $2"))
}

// ============================================================================
// User 测试
// ============================================================================

func TestUserCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u := newPhotographer("usr-1", "jane@example.com", 32.7767, -96.797)
	u.Website = ptr("https://jane.photo")
	u.IsHomeStudio = ptr(true)
	u.StudioSpaceImages = []string{"usr-1/studio/0-front.jpg", "usr-1/studio/1-back.jpg"}
	require.NoError(t, store.CreateUser(ctx, u))

	got, err := store.GetUserByID(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, model.UserRolePhotographer, got.Role)
	require.NotNil(t, got.Website)
	assert.Equal(t, "https://jane.photo", *got.Website)
	require.NotNil(t, got.IsHomeStudio)
	assert.True(t, *got.IsHomeStudio)
	// 图片 key 保持上传顺序
	assert.Equal(t, []string{"usr-1/studio/0-front.jpg", "usr-1/studio/1-back.jpg"}, got.StudioSpaceImages)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 32.7767, *got.Latitude, 1e-6)

	got.Status = model.UserStatusDenied
	got.ReasonForDenying = ptr("incomplete portfolio")
	require.NoError(t, store.UpdateUser(ctx, got))

	got, err = store.GetUserByID(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusDenied, got.Status)
	require.NotNil(t, got.ReasonForDenying)

	require.NoError(t, store.DeleteUser(ctx, "usr-1"))
	_, err = store.GetUserByID(ctx, "usr-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserEmailUniqueAndCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newVeteran("usr-1", "Vet@Example.com")))

	err := store.CreateUser(ctx, newVeteran("usr-2", "vet@example.com"))
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := store.GetUserByEmail(ctx, "VET@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", got.ID)
}

func TestListUsersFilterAndPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newVeteran("usr-1", "a@example.com")))
	require.NoError(t, store.CreateUser(ctx, newVeteran("usr-2", "b@example.com")))
	p := newPhotographer("usr-3", "c@example.com", 30, -97)
	p.Status = model.UserStatusPending
	require.NoError(t, store.CreateUser(ctx, p))

	page, err := store.ListUsers(ctx, storage.UserFilter{Role: model.UserRoleVeteran})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = store.ListUsers(ctx, storage.UserFilter{Status: model.UserStatusPending})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// 分页：total 是过滤后的全量
	page, err = store.ListUsers(ctx, storage.UserFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = store.ListUsers(ctx, storage.UserFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	// 搜索匹配邮箱
	page, err = store.ListUsers(ctx, storage.UserFilter{Search: "b@"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "usr-2", page.Items[0].ID)
}

func TestSearchUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u := newVeteran("usr-1", "smith@example.com")
	u.FirstName = "John"
	u.LastName = "Smith"
	require.NoError(t, store.CreateUser(ctx, u))

	got, err := store.SearchUsers(ctx, model.UserRoleVeteran, "smi", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "usr-1", got[0].ID)

	// 角色不匹配则无结果
	got, err = store.SearchUsers(ctx, model.UserRolePhotographer, "smi", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNearbyPhotographers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// 达拉斯市中心附近
	require.NoError(t, store.CreateUser(ctx, newPhotographer("ph-near", "near@example.com", 32.78, -96.80)))
	// 约 30 英里外
	require.NoError(t, store.CreateUser(ctx, newPhotographer("ph-mid", "mid@example.com", 33.15, -96.82)))
	// 休斯顿，约 225 英里外
	require.NoError(t, store.CreateUser(ctx, newPhotographer("ph-far", "far@example.com", 29.76, -95.37)))
	// 附近但不开放推荐
	closed := newPhotographer("ph-closed", "closed@example.com", 32.79, -96.79)
	closed.OpenToReferrals = false
	require.NoError(t, store.CreateUser(ctx, closed))
	// 附近但待审核
	pending := newPhotographer("ph-pending", "pending@example.com", 32.77, -96.80)
	pending.Status = model.UserStatusPending
	require.NoError(t, store.CreateUser(ctx, pending))

	got, err := store.NearbyPhotographers(ctx, 32.7767, -96.797, 50, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// 距离升序
	assert.Equal(t, "ph-near", got[0].ID)
	assert.Equal(t, "ph-mid", got[1].ID)
	assert.Less(t, got[0].Distance, got[1].Distance)
	assert.Less(t, got[0].Distance, 1.0)
	assert.InDelta(t, 26, got[1].Distance, 5)
}

// ============================================================================
// Session 测试
// ============================================================================

func seedParties(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, newPhotographer("ph-1", "ph@example.com", 32, -96)))
	require.NoError(t, store.CreateUser(ctx, newVeteran("vet-1", "vet@example.com")))
}

func TestSessionCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedParties(t, store)

	sess := &model.Session{
		ID:             "ses-1",
		Name:           "Headshot session",
		Status:         model.SessionStatusRequested,
		Date:           time.Now().UTC().Add(48 * time.Hour),
		PhotographerID: "ph-1",
		VeteranID:      "vet-1",
	}
	require.NoError(t, store.CreateSession(ctx, sess))
	// requested 自动写入过期时间
	require.NotNil(t, sess.ExpirationDate)

	got, err := store.GetSessionByID(ctx, "ses-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusRequested, got.Status)
	// 双方摘要已补全
	require.NotNil(t, got.Photographer)
	require.NotNil(t, got.Veteran)
	assert.Equal(t, "ph@example.com", got.Photographer.Email)

	got.Status = model.SessionStatusScheduled
	got.RatePhotographer = ptr(5)
	got.PhotographerFeedback = ptr("great to work with")
	require.NoError(t, store.UpdateSession(ctx, got))

	got, err = store.GetSessionByID(ctx, "ses-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusScheduled, got.Status)
	require.NotNil(t, got.RatePhotographer)
	assert.Equal(t, 5, *got.RatePhotographer)

	require.NoError(t, store.DeleteSession(ctx, "ses-1"))
	_, err = store.GetSessionByID(ctx, "ses-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListSessionsByParticipant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedParties(t, store)
	require.NoError(t, store.CreateUser(ctx, newVeteran("vet-2", "vet2@example.com")))

	for i, vet := range []string{"vet-1", "vet-2", "vet-1"} {
		require.NoError(t, store.CreateSession(ctx, &model.Session{
			ID:             "ses-" + string(rune('a'+i)),
			Name:           "Session",
			Status:         model.SessionStatusScheduled,
			Date:           time.Now().UTC(),
			PhotographerID: "ph-1",
			VeteranID:      vet,
		}))
	}

	page, err := store.ListSessions(ctx, storage.SessionFilter{ParticipantID: "vet-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = store.ListSessions(ctx, storage.SessionFilter{ParticipantID: "ph-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
}

func TestExpireRequestedSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedParties(t, store)

	expired := &model.Session{
		ID:             "ses-old",
		Name:           "Stale request",
		Status:         model.SessionStatusRequested,
		Date:           time.Now().UTC(),
		ExpirationDate: ptr(time.Now().UTC().Add(-time.Hour)),
		PhotographerID: "ph-1",
		VeteranID:      "vet-1",
	}
	require.NoError(t, store.CreateSession(ctx, expired))

	fresh := &model.Session{
		ID:             "ses-new",
		Name:           "Fresh request",
		Status:         model.SessionStatusRequested,
		Date:           time.Now().UTC(),
		PhotographerID: "ph-1",
		VeteranID:      "vet-1",
	}
	require.NoError(t, store.CreateSession(ctx, fresh))

	n, err := store.ExpireRequestedSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetSessionByID(ctx, "ses-old")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCanceled, got.Status)

	got, err = store.GetSessionByID(ctx, "ses-new")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusRequested, got.Status)
}

// ============================================================================
// Referral 测试
// ============================================================================

func TestReferralLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedParties(t, store)

	r := &model.Referral{ID: "ref-1", PhotographerID: "ph-1", VeteranID: "vet-1"}
	require.NoError(t, store.CreateReferral(ctx, r))
	assert.Equal(t, model.ReferralStatusMatched, r.Status)

	got, err := store.GetReferralByID(ctx, "ref-1")
	require.NoError(t, err)
	require.NotNil(t, got.Photographer)
	assert.Equal(t, "ph@example.com", got.Photographer.Email)

	page, err := store.ListReferrals(ctx, storage.ReferralFilter{VeteranID: "vet-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, store.CancelReferral(ctx, "ref-1"))
	got, err = store.GetReferralByID(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusCanceled, got.Status)

	assert.ErrorIs(t, store.CancelReferral(ctx, "ref-missing"), storage.ErrNotFound)
}

// ============================================================================
// Stats 测试
// ============================================================================

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedParties(t, store)

	pending := newPhotographer("ph-2", "ph2@example.com", 33, -96)
	pending.Status = model.UserStatusPending
	require.NoError(t, store.CreateUser(ctx, pending))

	require.NoError(t, store.CreateSession(ctx, &model.Session{
		ID: "ses-1", Name: "Done", Status: model.SessionStatusCompleted,
		Date: time.Now().UTC().Add(-24 * time.Hour), PhotographerID: "ph-1", VeteranID: "vet-1",
	}))
	require.NoError(t, store.CreateSession(ctx, &model.Session{
		ID: "ses-2", Name: "Upcoming", Status: model.SessionStatusScheduled,
		Date: time.Now().UTC().Add(24 * time.Hour), PhotographerID: "ph-1", VeteranID: "vet-1",
	}))
	require.NoError(t, store.CreateReferral(ctx, &model.Referral{
		ID: "ref-1", PhotographerID: "ph-1", VeteranID: "vet-1",
	}))

	admin, err := store.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, admin.TotalUsers)
	assert.Equal(t, 1, admin.PendingPhotographers)
	assert.Equal(t, 2, admin.UsersByRole["photographer"])
	assert.Equal(t, 1, admin.SessionsByStatus["completed"])
	assert.Equal(t, 1, admin.ActiveReferrals)

	member, err := store.MemberStats(ctx, "vet-1")
	require.NoError(t, err)
	assert.Equal(t, 1, member.CompletedTotal)
	assert.Equal(t, 1, member.UpcomingTotal)
	assert.Equal(t, 1, member.ActiveReferrals)
}
