package formkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patriots-admin/internal/shared/model"
)

func TestController_RoleSwitchResetsStatusAndInteraction(t *testing.T) {
	c := NewUserForm(VariantEdit, model.UserRolePhotographer)
	assert.Equal(t, model.UserStatusPending, c.Status())

	// 制造交互痕迹
	c.Group().Set("website", "")
	assert.True(t, c.Group().ShowError("website"))

	c.SetRole(model.UserRoleVeteran)
	assert.Equal(t, model.UserStatusApproved, c.Status())
	assert.Equal(t, "veteran", c.Group().Value(FieldRole))

	// website 不再必填，老兵字段变为必填
	c.Group().UpdateValidity("website")
	assert.False(t, c.Group().HasError("website", ErrKeyRequired))
	assert.True(t, c.Group().HasError("eligibility", ErrKeyRequired))

	// 交互状态被整体重置，错误暂不展示
	assert.False(t, c.Group().ShowError("eligibility"))
	assert.False(t, c.Group().Field("website").Touched())
}

func TestController_StatusDeniedRequiresReason(t *testing.T) {
	c := NewUserForm(VariantEdit, model.UserRoleVeteran)
	assert.False(t, c.Group().HasError("reasonForDenying", ErrKeyRequired))

	c.SetStatus(model.UserStatusDenied)
	assert.True(t, c.Group().HasError("reasonForDenying", ErrKeyRequired))

	c.SetStatus(model.UserStatusApproved)
	assert.False(t, c.Group().HasError("reasonForDenying", ErrKeyRequired))
}

func TestController_HomeStudioFlip(t *testing.T) {
	c := NewUserForm(VariantEdit, model.UserRolePhotographer)
	c.SetStatus(model.UserStatusApproved)
	assert.False(t, c.Group().HasError("partOfHomeStudio", ErrKeyRequired))

	c.SetHomeStudio(true)
	for _, k := range homeStudioRequired {
		assert.True(t, c.Group().HasError(k, ErrKeyRequired), k)
	}
	assert.Equal(t, true, c.Group().Value("isHomeStudio"))

	c.SetHomeStudio(false)
	for _, k := range homeStudioRequired {
		assert.False(t, c.Group().HasError(k, ErrKeyRequired), k)
	}
}

// TestController_ApplyIdempotent 同一输入重复 Apply 结果不变
func TestController_ApplyIdempotent(t *testing.T) {
	c := NewUserForm(VariantEdit, model.UserRolePhotographer)
	c.SetStatus(model.UserStatusApproved)
	c.SetHomeStudio(true)

	snapshot := func() map[string][]string {
		out := map[string][]string{}
		for _, name := range c.Group().Names() {
			out[name] = append([]string{}, c.Group().Field(name).Errors()...)
		}
		return out
	}
	before := snapshot()
	c.Apply()
	c.Apply()
	assert.Equal(t, before, snapshot())
}

func TestController_AgreementFieldsRequireTrue(t *testing.T) {
	c := NewUserForm(VariantEdit, model.UserRolePhotographer)
	c.SetStatus(model.UserStatusApproved)

	g := c.Group()
	g.Set("agreeToVolunteerAgreement", false)
	assert.True(t, g.HasError("agreeToVolunteerAgreement", ErrKeyRequiredTrue))
	g.Set("agreeToVolunteerAgreement", true)
	assert.False(t, g.HasError("agreeToVolunteerAgreement", ErrKeyRequiredTrue))
}

func TestController_RegistrationVeteranCertified(t *testing.T) {
	c := NewUserForm(VariantRegistration, model.UserRoleVeteran)
	assert.True(t, c.Group().HasError(FieldCertified, ErrKeyRequiredTrue))
	c.Group().Set(FieldCertified, true)
	assert.False(t, c.Group().HasError(FieldCertified, ErrKeyRequiredTrue))

	// 注册表单密码必填
	assert.True(t, c.Group().HasError(FieldPassword, ErrKeyRequired))
}

func TestController_EditPasswordOptional(t *testing.T) {
	c := NewUserForm(VariantEdit, model.UserRoleAdmin)
	assert.False(t, c.Group().HasError(FieldPassword, ErrKeyRequired))

	c.Group().Set(FieldPassword, "short")
	assert.True(t, c.Group().HasError(FieldPassword, ErrKeyMinLength))
}

func TestController_LoadUser(t *testing.T) {
	website := "https://jane.photo"
	home := true
	u := &model.User{
		ID:             "usr-1",
		Email:          "jane@example.com",
		FirstName:      "Jane",
		LastName:       "Doe",
		Role:           model.UserRolePhotographer,
		Status:         model.UserStatusApproved,
		PhoneNumber:    "555-0100",
		StreetAddress1: "100 Main St",
		City:           "Dallas",
		State:          "TX",
		PostalCode:     "75201",
		Website:        &website,
		IsHomeStudio:   &home,
	}

	c := NewUserForm(VariantEdit, model.UserRoleAdmin)
	c.LoadUser(u)

	require.Equal(t, model.UserRolePhotographer, c.Role())
	require.Equal(t, model.UserStatusApproved, c.Status())
	assert.Equal(t, "jane@example.com", c.Group().Value(FieldEmail))
	assert.Equal(t, true, c.Group().Value("isHomeStudio"))

	// 家庭影棚子集按用户数据激活
	assert.True(t, c.Group().HasError("partOfHomeStudio", ErrKeyRequired))
	// 回填不产生交互痕迹
	assert.False(t, c.Group().ShowError("partOfHomeStudio"))
}
