package formkit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"patriots-admin/internal/shared/model"
)

// TestRequiredFields_Deterministic 相同输入恒返回相同有序结果
func TestRequiredFields_Deterministic(t *testing.T) {
	roles := []model.UserRole{model.UserRoleAdmin, model.UserRolePhotographer, model.UserRoleVeteran}
	statuses := []model.UserStatus{
		model.UserStatusOnboarding, model.UserStatusPending,
		model.UserStatusApproved, model.UserStatusDenied,
	}
	for _, role := range roles {
		for _, status := range statuses {
			for _, home := range []bool{false, true} {
				first := RequiredFields(role, status, home)
				second := RequiredFields(role, status, home)
				assert.Equal(t, first, second, "%s/%s/home=%v", role, status, home)
			}
		}
	}
}

func TestRequiredFields_Admin(t *testing.T) {
	keys := RequiredFields(model.UserRoleAdmin, model.UserStatusApproved, false)
	assert.ElementsMatch(t, baseRequired, keys)
}

func TestRequiredFields_PhotographerPending(t *testing.T) {
	keys := RequiredFields(model.UserRolePhotographer, model.UserStatusPending, false)
	assert.Contains(t, keys, "website")
	assert.NotContains(t, keys, "closestBase")
	assert.NotContains(t, keys, "agreeToVolunteerAgreement")
}

func TestRequiredFields_PhotographerApproved(t *testing.T) {
	keys := RequiredFields(model.UserRolePhotographer, model.UserStatusApproved, false)
	for _, k := range photographerApprovedRequired {
		assert.Contains(t, keys, k)
	}
	// 未声明家庭影棚时不要求影棚子集
	for _, k := range homeStudioRequired {
		assert.NotContains(t, keys, k)
	}
}

func TestRequiredFields_HomeStudioSubset(t *testing.T) {
	keys := RequiredFields(model.UserRolePhotographer, model.UserStatusApproved, true)
	for _, k := range homeStudioRequired {
		assert.Contains(t, keys, k)
	}

	// 家庭影棚子集仅对通过审核的摄影师生效
	keys = RequiredFields(model.UserRolePhotographer, model.UserStatusPending, true)
	for _, k := range homeStudioRequired {
		assert.NotContains(t, keys, k)
	}
	keys = RequiredFields(model.UserRoleVeteran, model.UserStatusApproved, true)
	for _, k := range homeStudioRequired {
		assert.NotContains(t, keys, k)
	}
}

func TestRequiredFields_Veteran(t *testing.T) {
	keys := RequiredFields(model.UserRoleVeteran, model.UserStatusApproved, false)
	for _, k := range veteranRequired {
		assert.Contains(t, keys, k)
	}
	assert.NotContains(t, keys, "website")
	assert.NotContains(t, keys, FieldCertified)
}

func TestRequiredFields_Denied(t *testing.T) {
	for _, role := range []model.UserRole{model.UserRolePhotographer, model.UserRoleVeteran} {
		keys := RequiredFields(role, model.UserStatusDenied, false)
		assert.Contains(t, keys, "reasonForDenying", "role=%s", role)
	}
	keys := RequiredFields(model.UserRolePhotographer, model.UserStatusApproved, false)
	assert.NotContains(t, keys, "reasonForDenying")
}

func TestRegistrationRequiredFields_VeteranCertified(t *testing.T) {
	keys := RegistrationRequiredFields(model.UserRoleVeteran, model.UserStatusApproved, false)
	assert.Contains(t, keys, FieldCertified)

	keys = RegistrationRequiredFields(model.UserRolePhotographer, model.UserStatusPending, false)
	assert.NotContains(t, keys, FieldCertified)
}

// TestManagedFields_CoverAllConditional 托管集合覆盖全部条件字段
//
// 策略可能新增的每个条件字段都必须在 ManagedFields 内，
// 否则切换角色后旧校验器会残留。
func TestManagedFields_CoverAllConditional(t *testing.T) {
	managed := map[string]bool{}
	for _, k := range ManagedFields {
		managed[k] = true
	}
	base := map[string]bool{}
	for _, k := range baseRequired {
		base[k] = true
	}

	roles := []model.UserRole{model.UserRoleAdmin, model.UserRolePhotographer, model.UserRoleVeteran}
	statuses := []model.UserStatus{
		model.UserStatusOnboarding, model.UserStatusPending,
		model.UserStatusApproved, model.UserStatusDenied,
	}
	for _, role := range roles {
		for _, status := range statuses {
			for _, home := range []bool{false, true} {
				for _, k := range RegistrationRequiredFields(role, status, home) {
					if base[k] {
						continue
					}
					assert.True(t, managed[k], "conditional field %q not managed", k)
				}
			}
		}
	}
}
