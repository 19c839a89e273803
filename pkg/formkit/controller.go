package formkit

import "patriots-admin/internal/shared/model"

// FormVariant 表单变体
type FormVariant int

const (
	// VariantEdit 管理端编辑表单（密码可留空）
	VariantEdit FormVariant = iota
	// VariantRegistration 注册表单（老兵需勾选 certified）
	VariantRegistration
)

// allFormFields 用户表单全部字段，按提交载荷顺序注册
var allFormFields = []string{
	FieldRole, FieldStatus,
	FieldFirstName, FieldLastName, FieldEmail,
	FieldPassword, FieldPasswordConfirm,
	FieldPhoneNumber,
	FieldStreetAddress1, "streetAddress2",
	FieldCity, FieldState, FieldPostalCode,
	FieldLatitude, FieldLongitude,
	"referredBy", "reasonForDenying",
	"website", "openToReferrals",
	"mailingStreetAddress1", "mailingStreetAddress2",
	"mailingCity", "mailingState", "mailingPostalCode",
	"closestBase",
	"agreeToCriminalBackgroundCheck",
	"socialMedia",
	"isHomeStudio", "partOfHomeStudio", "isSeparateEntrance",
	"acknowledgeHomeStudioAgreement",
	"isStudioAdaAccessible",
	"agreeToVolunteerAgreement",
	"seekingEmployment", "linkedinProfile",
	"eligibility", "militaryBranchAffiliation", "militaryETSDate",
	FieldCertified,
}

// Controller 用户表单控制器
//
// 持有字段集合与当前的 (role, status, isHomeStudio) 策略输入，
// 任一输入变化时重算必填字段。角色或状态切换会重置全部字段的
// 交互状态，避免为用户尚未见过的字段显示错误。
type Controller struct {
	group   *Group
	variant FormVariant

	role         model.UserRole
	status       model.UserStatus
	isHomeStudio bool
}

// NewUserForm 创建用户表单控制器
//
// 初始策略按 (role, DefaultStatusForRole(role)) 计算。
func NewUserForm(variant FormVariant, role model.UserRole) *Controller {
	g := NewGroup()
	for _, name := range allFormFields {
		g.Add(name, nil)
	}
	g.SetValidators(FieldEmail, Required(), Email())
	if variant == VariantRegistration {
		g.SetValidators(FieldPassword, Required(), MinLength(8))
		g.SetValidators(FieldPasswordConfirm, Required())
	} else {
		// 编辑表单密码留空表示不修改
		g.SetValidators(FieldPassword, MinLength(8))
	}
	g.AddGroupValidator(PasswordsMatch)

	c := &Controller{
		group:   g,
		variant: variant,
		role:    role,
		status:  model.DefaultStatusForRole(role),
	}
	g.Patch(FieldRole, string(role))
	g.Patch(FieldStatus, string(c.status))
	c.Apply()
	return c
}

// Group 底层字段集合
func (c *Controller) Group() *Group { return c.group }

// Role 当前角色
func (c *Controller) Role() model.UserRole { return c.role }

// Status 当前审核状态
func (c *Controller) Status() model.UserStatus { return c.status }

// Apply 按当前策略输入重算校验器
//
// 固定顺序：先清除全部托管字段的校验器，再为必填集合设置
// Required，最后统一重算有效性。同一输入重复调用结果不变。
func (c *Controller) Apply() {
	c.group.ClearValidators(ManagedFields...)

	var required []string
	if c.variant == VariantRegistration {
		required = RegistrationRequiredFields(c.role, c.status, c.isHomeStudio)
	} else {
		required = RequiredFields(c.role, c.status, c.isHomeStudio)
	}
	for _, name := range required {
		switch name {
		case "agreeToCriminalBackgroundCheck", "agreeToVolunteerAgreement",
			"acknowledgeHomeStudioAgreement", FieldCertified:
			c.group.SetValidators(name, RequiredTrue())
		case FieldEmail:
			c.group.SetValidators(name, Required(), Email())
		default:
			c.group.SetValidators(name, Required())
		}
	}

	c.group.UpdateValidity(append(append([]string{}, ManagedFields...), required...)...)
}

// SetRole 切换角色
//
// 同步动作：状态回到角色默认值、重算策略、全部字段重置为
// 未交互（pristine + untouched）。
func (c *Controller) SetRole(role model.UserRole) {
	if role == c.role {
		return
	}
	c.role = role
	c.status = model.DefaultStatusForRole(role)
	c.group.Patch(FieldRole, string(role))
	c.group.Patch(FieldStatus, string(c.status))
	c.Apply()
	c.group.MarkAllUntouched()
}

// SetStatus 切换审核状态
//
// DENIED 会追加 reasonForDenying 必填。与角色切换相同，
// 重置交互状态。
func (c *Controller) SetStatus(status model.UserStatus) {
	if status == c.status {
		return
	}
	c.status = status
	c.group.Patch(FieldStatus, string(status))
	c.Apply()
	c.group.MarkAllUntouched()
}

// SetHomeStudio 切换家庭影棚标记
//
// 仅影响家庭影棚子集的必填策略，同样重置交互状态。
func (c *Controller) SetHomeStudio(isHomeStudio bool) {
	if isHomeStudio == c.isHomeStudio {
		return
	}
	c.isHomeStudio = isHomeStudio
	c.group.Patch("isHomeStudio", isHomeStudio)
	c.Apply()
	c.group.MarkAllUntouched()
}

// LoadUser 用已有用户数据回填表单（编辑场景）
//
// 回填走 Patch，不改变交互状态；策略输入取自用户当前的
// 角色 / 状态 / 家庭影棚标记。
func (c *Controller) LoadUser(u *model.User) {
	c.role = u.Role
	c.status = u.Status
	c.isHomeStudio = u.IsHomeStudio != nil && *u.IsHomeStudio

	g := c.group
	g.Patch(FieldRole, string(u.Role))
	g.Patch(FieldStatus, string(u.Status))
	g.Patch(FieldFirstName, u.FirstName)
	g.Patch(FieldLastName, u.LastName)
	g.Patch(FieldEmail, u.Email)
	g.Patch(FieldPhoneNumber, u.PhoneNumber)
	g.Patch(FieldStreetAddress1, u.StreetAddress1)
	g.Patch("streetAddress2", strOrNil(u.StreetAddress2))
	g.Patch(FieldCity, u.City)
	g.Patch(FieldState, u.State)
	g.Patch(FieldPostalCode, u.PostalCode)
	g.Patch(FieldLatitude, floatOrNil(u.Latitude))
	g.Patch(FieldLongitude, floatOrNil(u.Longitude))
	g.Patch("referredBy", strOrNil(u.ReferredBy))
	g.Patch("reasonForDenying", strOrNil(u.ReasonForDenying))
	g.Patch("website", strOrNil(u.Website))
	g.Patch("openToReferrals", u.OpenToReferrals)
	g.Patch("mailingStreetAddress1", strOrNil(u.MailingStreetAddress1))
	g.Patch("mailingStreetAddress2", strOrNil(u.MailingStreetAddress2))
	g.Patch("mailingCity", strOrNil(u.MailingCity))
	g.Patch("mailingState", strOrNil(u.MailingState))
	g.Patch("mailingPostalCode", strOrNil(u.MailingPostalCode))
	g.Patch("closestBase", strOrNil(u.ClosestBase))
	g.Patch("agreeToCriminalBackgroundCheck", boolOrNil(u.AgreeToCriminalBackgroundCheck))
	g.Patch("socialMedia", strOrNil(u.SocialMedia))
	g.Patch("isHomeStudio", boolOrNil(u.IsHomeStudio))
	g.Patch("partOfHomeStudio", strOrNil(u.PartOfHomeStudio))
	g.Patch("isSeparateEntrance", boolOrNil(u.IsSeparateEntrance))
	g.Patch("acknowledgeHomeStudioAgreement", boolOrNil(u.AcknowledgeHomeStudioAgreement))
	g.Patch("isStudioAdaAccessible", boolOrNil(u.IsStudioAdaAccessible))
	g.Patch("agreeToVolunteerAgreement", boolOrNil(u.AgreeToVolunteerAgreement))
	g.Patch("seekingEmployment", boolOrNil(u.SeekingEmployment))
	g.Patch("linkedinProfile", strOrNil(u.LinkedinProfile))
	if u.Eligibility != nil {
		g.Patch("eligibility", string(*u.Eligibility))
	}
	if u.MilitaryBranch != nil {
		g.Patch("militaryBranchAffiliation", string(*u.MilitaryBranch))
	}
	g.Patch("militaryETSDate", strOrNil(u.MilitaryETSDate))

	c.Apply()
	c.group.MarkAllUntouched()
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolOrNil(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
