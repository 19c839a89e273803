package formkit

import "patriots-admin/internal/shared/model"

// 字段 key 与后端 DTO 字段名一一对应
const (
	FieldRole            = "role"
	FieldStatus          = "status"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "passwordConfirm"
	FieldPhoneNumber     = "phoneNumber"
	FieldStreetAddress1  = "streetAddress1"
	FieldCity            = "city"
	FieldState           = "state"
	FieldPostalCode      = "postalCode"
	FieldLatitude        = "latitude"
	FieldLongitude       = "longitude"
	FieldCertified       = "certified"
)

// baseRequired 所有角色共同的必填字段（身份 + 地址 + 坐标）
//
// 两个历史表单变体对 ADMIN 是否必填电话/地址存在分歧，
// 本实现统一采用用户编辑表单的口径：基础集合对所有角色必填，
// ADMIN 不追加任何角色专属字段。
var baseRequired = []string{
	FieldRole, FieldStatus,
	FieldFirstName, FieldLastName, FieldEmail,
	FieldPhoneNumber,
	FieldStreetAddress1, FieldCity, FieldState, FieldPostalCode,
	FieldLatitude, FieldLongitude,
}

// photographerApprovedRequired 摄影师通过审核后追加的入驻合规字段
var photographerApprovedRequired = []string{
	"mailingStreetAddress1",
	"closestBase",
	"agreeToCriminalBackgroundCheck",
	"socialMedia",
	"isHomeStudio",
	"agreeToVolunteerAgreement",
}

// homeStudioRequired 家庭影棚追加字段
var homeStudioRequired = []string{
	"partOfHomeStudio",
	"isSeparateEntrance",
	"acknowledgeHomeStudioAgreement",
}

// veteranRequired 老兵角色必填字段
var veteranRequired = []string{
	"seekingEmployment",
	"eligibility",
	"militaryBranchAffiliation",
	"militaryETSDate",
}

// ManagedFields 策略托管的角色条件字段全集
//
// 每次重算策略时先清除这批字段的校验器再按需设置，
// 保证切换角色/状态后不残留旧的 required 错误。
var ManagedFields = []string{
	"website",
	"seekingEmployment",
	"eligibility",
	"militaryBranchAffiliation",
	"militaryETSDate",
	"reasonForDenying",
	"mailingStreetAddress1",
	"closestBase",
	"agreeToCriminalBackgroundCheck",
	"socialMedia",
	"isHomeStudio",
	"partOfHomeStudio",
	"isSeparateEntrance",
	"acknowledgeHomeStudioAgreement",
	"agreeToVolunteerAgreement",
	FieldCertified,
}

// RequiredFields 计算 (role, status, isHomeStudio) 对应的必填字段集合
//
// 纯函数：相同输入恒返回相同的有序结果。返回值包含基础集合，
// 调用方据此同步字段校验器。
func RequiredFields(role model.UserRole, status model.UserStatus, isHomeStudio bool) []string {
	keys := make([]string, 0, len(baseRequired)+12)
	keys = append(keys, baseRequired...)

	switch role {
	case model.UserRoleAdmin:
		// ADMIN 无追加字段
	case model.UserRolePhotographer:
		keys = append(keys, "website")
		if status == model.UserStatusApproved {
			keys = append(keys, photographerApprovedRequired...)
			if isHomeStudio {
				keys = append(keys, homeStudioRequired...)
			}
		}
	case model.UserRoleVeteran:
		keys = append(keys, veteranRequired...)
	}

	if status == model.UserStatusDenied {
		keys = append(keys, "reasonForDenying")
	}

	return keys
}

// OnboardingRequiredFields 摄影师入驻提交的必填字段集合
//
// 与审核通过后的合规集合同源，家庭影棚追加其子集。
func OnboardingRequiredFields(isHomeStudio bool) []string {
	keys := append([]string{}, photographerApprovedRequired...)
	if isHomeStudio {
		keys = append(keys, homeStudioRequired...)
	}
	return keys
}

// RegistrationRequiredFields 注册表单变体
//
// 在 RequiredFields 基础上，老兵注册额外要求勾选 certified 声明。
func RegistrationRequiredFields(role model.UserRole, status model.UserStatus, isHomeStudio bool) []string {
	keys := RequiredFields(role, status, isHomeStudio)
	if role == model.UserRoleVeteran {
		keys = append(keys, FieldCertified)
	}
	return keys
}
