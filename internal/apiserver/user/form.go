// Package user 用户领域 - HTTP 处理
//
// 创建与编辑走同一套表单必填策略（pkg/formkit），服务端对提交载荷
// 复算校验，前端的策略结果仅用于展示。
package user

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"patriots-admin/internal/shared/model"
	"patriots-admin/pkg/formkit"
)

// maxUploadSize multipart 请求体上限
const maxUploadSize = 32 << 20

// 布尔字段：multipart 编码约定 "true"/缺省
var boolFields = map[string]bool{
	"openToReferrals":                true,
	"agreeToCriminalBackgroundCheck": true,
	"isHomeStudio":                   true,
	"isSeparateEntrance":             true,
	"acknowledgeHomeStudioAgreement": true,
	"isStudioAdaAccessible":          true,
	"agreeToVolunteerAgreement":      true,
	"seekingEmployment":              true,
	"certified":                      true,
}

var floatFields = map[string]bool{
	"latitude":  true,
	"longitude": true,
}

// 附件字段：二进制部分，不进入表单值
var fileFields = map[string]bool{
	"studioSpaceImages":      true,
	"proofOfInsuranceImages": true,
}

// payload 解析后的提交载荷
type payload struct {
	values map[string]any
	files  map[string][]*multipart.FileHeader
}

// has 字段是否出现在载荷中
func (p *payload) has(name string) bool {
	_, ok := p.values[name]
	return ok
}

func (p *payload) str(name string) string {
	s, _ := p.values[name].(string)
	return s
}

// parsePayload 解析 JSON 或 multipart 请求体
//
// multipart 中布尔字段按 "true"/缺省解码，经纬度解析为 float64，
// 附件字段收集为有序文件头列表。
func parsePayload(r *http.Request) (*payload, error) {
	p := &payload{values: map[string]any{}, files: map[string][]*multipart.FileHeader{}}

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, err
		}
		for name, vals := range r.MultipartForm.Value {
			if len(vals) == 0 {
				continue
			}
			p.values[name] = coerceFormValue(name, vals[0])
		}
		for name, headers := range r.MultipartForm.File {
			if fileFields[name] && len(headers) > 0 {
				p.files[name] = headers
			}
		}
		return p, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&p.values); err != nil {
		return nil, err
	}
	return p, nil
}

// coerceFormValue multipart 字符串值转为表单值类型
func coerceFormValue(name, s string) any {
	switch {
	case boolFields[name]:
		return s == "true"
	case floatFields[name]:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	default:
		return s
	}
}

// applyToForm 将载荷写入表单控制器
//
// 角色 / 状态 / 家庭影棚走控制器入口以触发策略重算，其余字段按
// 表单注册顺序写入，保证校验结果与载荷顺序无关。
func applyToForm(c *formkit.Controller, p *payload) {
	if p.has(formkit.FieldStatus) {
		c.SetStatus(model.UserStatus(p.str(formkit.FieldStatus)))
	}
	if v, ok := p.values["isHomeStudio"].(bool); ok {
		c.SetHomeStudio(v)
	}

	g := c.Group()
	for _, name := range g.Names() {
		if name == formkit.FieldRole || name == formkit.FieldStatus || name == "isHomeStudio" {
			continue
		}
		if v, ok := p.values[name]; ok {
			g.Set(name, v)
		}
	}
}

// fieldErrors 收集校验失败字段及其错误 key
func fieldErrors(g *formkit.Group) map[string][]string {
	out := map[string][]string{}
	for _, name := range g.Names() {
		if f := g.Field(name); f != nil && f.Invalid() {
			out[name] = append([]string{}, f.Errors()...)
		}
	}
	if g.HasGroupError(formkit.ErrKeyPasswordsMismatch) {
		out[formkit.FieldPasswordConfirm] = append(out[formkit.FieldPasswordConfirm], formkit.ErrKeyPasswordsMismatch)
	}
	return out
}

// ============================================================================
// 表单值 → 模型
// ============================================================================

// userFromForm 把表单当前值写回用户模型
//
// 不触碰 ID / PasswordHash / 图片 key / CreatedAt，密码由调用方
// 单独处理。
func userFromForm(g *formkit.Group, u *model.User) {
	u.FirstName = asString(g.Value(formkit.FieldFirstName))
	u.LastName = asString(g.Value(formkit.FieldLastName))
	u.Email = asString(g.Value(formkit.FieldEmail))
	u.PhoneNumber = asString(g.Value(formkit.FieldPhoneNumber))

	u.StreetAddress1 = asString(g.Value(formkit.FieldStreetAddress1))
	u.StreetAddress2 = asStringPtr(g.Value("streetAddress2"))
	u.City = asString(g.Value(formkit.FieldCity))
	u.State = asString(g.Value(formkit.FieldState))
	u.PostalCode = asString(g.Value(formkit.FieldPostalCode))
	u.Latitude = asFloatPtr(g.Value(formkit.FieldLatitude))
	u.Longitude = asFloatPtr(g.Value(formkit.FieldLongitude))

	u.ReferredBy = asStringPtr(g.Value("referredBy"))
	u.ReasonForDenying = asStringPtr(g.Value("reasonForDenying"))

	u.Website = asStringPtr(g.Value("website"))
	u.OpenToReferrals = asBool(g.Value("openToReferrals"))

	u.MailingStreetAddress1 = asStringPtr(g.Value("mailingStreetAddress1"))
	u.MailingStreetAddress2 = asStringPtr(g.Value("mailingStreetAddress2"))
	u.MailingCity = asStringPtr(g.Value("mailingCity"))
	u.MailingState = asStringPtr(g.Value("mailingState"))
	u.MailingPostalCode = asStringPtr(g.Value("mailingPostalCode"))
	u.ClosestBase = asStringPtr(g.Value("closestBase"))
	u.AgreeToCriminalBackgroundCheck = asBoolPtr(g.Value("agreeToCriminalBackgroundCheck"))
	u.SocialMedia = asStringPtr(g.Value("socialMedia"))
	u.IsHomeStudio = asBoolPtr(g.Value("isHomeStudio"))
	u.PartOfHomeStudio = asStringPtr(g.Value("partOfHomeStudio"))
	u.IsSeparateEntrance = asBoolPtr(g.Value("isSeparateEntrance"))
	u.AcknowledgeHomeStudioAgreement = asBoolPtr(g.Value("acknowledgeHomeStudioAgreement"))
	u.IsStudioAdaAccessible = asBoolPtr(g.Value("isStudioAdaAccessible"))
	u.AgreeToVolunteerAgreement = asBoolPtr(g.Value("agreeToVolunteerAgreement"))

	u.SeekingEmployment = asBoolPtr(g.Value("seekingEmployment"))
	u.LinkedinProfile = asStringPtr(g.Value("linkedinProfile"))
	if s := asString(g.Value("eligibility")); s != "" {
		e := model.Eligibility(s)
		u.Eligibility = &e
	} else {
		u.Eligibility = nil
	}
	if s := asString(g.Value("militaryBranchAffiliation")); s != "" {
		b := model.MilitaryBranch(s)
		u.MilitaryBranch = &b
	} else {
		u.MilitaryBranch = nil
	}
	u.MilitaryETSDate = asStringPtr(g.Value("militaryETSDate"))
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asBoolPtr(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}

func asFloatPtr(v any) *float64 {
	switch f := v.(type) {
	case float64:
		return &f
	case int:
		val := float64(f)
		return &val
	}
	return nil
}
