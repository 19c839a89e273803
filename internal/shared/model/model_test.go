// Package model 核心数据模型测试
package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// User 枚举与辅助方法
// ============================================================================

func TestDefaultStatusForRole(t *testing.T) {
	assert.Equal(t, UserStatusPending, DefaultStatusForRole(UserRolePhotographer))
	assert.Equal(t, UserStatusApproved, DefaultStatusForRole(UserRoleVeteran))
	assert.Equal(t, UserStatusApproved, DefaultStatusForRole(UserRoleAdmin))
}

func TestRoleLabels(t *testing.T) {
	assert.Equal(t, "Photographer", UserRolePhotographer.Label())
	assert.Equal(t, "Veteran", UserRoleVeteran.Label())
	assert.Equal(t, "Unknown", UserRole("bogus").Label())
	assert.Equal(t, "Reschedule Requested", SessionStatusRescheduleRequested.Label())
	assert.Equal(t, "US Space Force", BranchSpaceForce.Label())
}

func TestUserHelpers(t *testing.T) {
	apt := "Apt 4"
	u := &User{
		FirstName:      "Jane",
		LastName:       "Doe",
		StreetAddress1: "100 Main St",
		StreetAddress2: &apt,
		City:           "Dallas",
		State:          "TX",
		PostalCode:     "75201",
	}
	assert.Equal(t, "Jane Doe", u.FullName())
	assert.Equal(t, "100 Main St, Apt 4, Dallas, TX, 75201", u.LocationText())

	// seekingEmployment 三态
	assert.Equal(t, "", u.SeekingEmploymentText())
	yes := true
	u.SeekingEmployment = &yes
	assert.Equal(t, "Yes", u.SeekingEmploymentText())
	no := false
	u.SeekingEmployment = &no
	assert.Equal(t, "No", u.SeekingEmploymentText())
}

// TestUserJSON_PasswordNeverExposed 密码哈希绝不出现在 JSON 中
func TestUserJSON_PasswordNeverExposed(t *testing.T) {
	u := &User{ID: "usr-1", Email: "a@b.com", PasswordHash: "secret-hash"}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
	assert.NotContains(t, string(data), "password")
}

// ============================================================================
// Session 状态机
// ============================================================================

func TestSessionTransitions(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		ok       bool
	}{
		{SessionStatusRequested, SessionStatusScheduled, true},
		{SessionStatusRequested, SessionStatusCanceled, true},
		{SessionStatusRequested, SessionStatusCompleted, false},
		{SessionStatusScheduled, SessionStatusCompleted, true},
		{SessionStatusScheduled, SessionStatusRescheduleRequested, true},
		{SessionStatusRescheduleRequested, SessionStatusScheduled, true},
		{SessionStatusRescheduleRequested, SessionStatusCompleted, false},
		{SessionStatusCompleted, SessionStatusScheduled, false},
		{SessionStatusCanceled, SessionStatusScheduled, false},
		// 自转移总是允许（幂等 PATCH）
		{SessionStatusScheduled, SessionStatusScheduled, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSessionTerminal(t *testing.T) {
	assert.True(t, SessionStatusCompleted.Terminal())
	assert.True(t, SessionStatusCanceled.Terminal())
	assert.False(t, SessionStatusScheduled.Terminal())
	assert.False(t, SessionStatusRequested.Terminal())
}

// ============================================================================
// 反馈字段归属
// ============================================================================

func TestCanEditFeedback(t *testing.T) {
	// 摄影师不能碰老兵侧反馈，反之亦然
	assert.False(t, CanEditFeedback(UserRolePhotographer, "veteranFeedback"))
	assert.False(t, CanEditFeedback(UserRoleVeteran, "photographerFeedback"))

	// 本方字段可编辑
	assert.True(t, CanEditFeedback(UserRolePhotographer, "photographerFeedback"))
	assert.True(t, CanEditFeedback(UserRolePhotographer, "ratePhotographer"))
	assert.True(t, CanEditFeedback(UserRoleVeteran, "rateVeteran"))

	// 管理员全部可编辑
	assert.True(t, CanEditFeedback(UserRoleAdmin, "veteranFeedback"))
	assert.True(t, CanEditFeedback(UserRoleAdmin, "photographerFeedback"))

	// 非反馈字段不受限
	assert.True(t, CanEditFeedback(UserRoleVeteran, "note"))
}
