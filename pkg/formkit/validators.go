// Package formkit 动态表单校验引擎
//
// 本包实现用户编辑 / 注册 / 入驻 / 会话表单共用的校验模型：
//   - Field / Group：带校验器与交互状态（touched/dirty）的字段集合
//   - Validator：命名校验器，校验失败时产生错误 key
//   - RequiredFields：角色条件化必填字段策略（见 policy.go）
//   - Controller：策略与字段集合的同步控制器（见 controller.go）
//   - Payload / EncodeMultipart：提交载荷构造（见 payload.go）
package formkit

import (
	"regexp"
	"strings"
)

// 校验错误 key
const (
	ErrKeyRequired          = "required"
	ErrKeyRequiredTrue      = "requiredTrue"
	ErrKeyEmail             = "email"
	ErrKeyMinLength         = "minlength"
	ErrKeyPasswordsMismatch = "passwordsMismatch"
)

// Validator 命名校验器
// Check 返回 true 表示通过
type Validator struct {
	Key   string
	Check func(v any) bool
}

// GroupValidator 跨字段校验器，返回错误 key，"" 表示通过
type GroupValidator func(g *Group) string

// isEmpty 判断值是否为空
//
// nil 与空字符串视为空；false 不是空值（布尔答案"否"仍然是回答）。
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Required 非空校验
func Required() Validator {
	return Validator{Key: ErrKeyRequired, Check: func(v any) bool {
		return !isEmpty(v)
	}}
}

// RequiredTrue 必须勾选（同意类复选框）
func RequiredTrue() Validator {
	return Validator{Key: ErrKeyRequiredTrue, Check: func(v any) bool {
		b, ok := v.(bool)
		return ok && b
	}}
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email 邮箱格式校验（空值放行，由 Required 负责空检查）
func Email() Validator {
	return Validator{Key: ErrKeyEmail, Check: func(v any) bool {
		s, ok := v.(string)
		if !ok || s == "" {
			return true
		}
		return emailRe.MatchString(s)
	}}
}

// MinLength 最小长度校验（空值放行）
func MinLength(n int) Validator {
	return Validator{Key: ErrKeyMinLength, Check: func(v any) bool {
		s, ok := v.(string)
		if !ok || s == "" {
			return true
		}
		return len(s) >= n
	}}
}

// PasswordsMatch 跨字段校验：password 与 passwordConfirm 一致
//
// 两者都非空且不同时失败；任一为空则通过 —— 编辑表单允许
// 两个密码框都留空表示"不修改密码"，这是有意的策略而非漏判。
func PasswordsMatch(g *Group) string {
	password, _ := g.Value("password").(string)
	confirm, _ := g.Value("passwordConfirm").(string)
	if password != "" && confirm != "" && password != confirm {
		return ErrKeyPasswordsMismatch
	}
	return ""
}
