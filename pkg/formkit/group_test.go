package formkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredValidator(t *testing.T) {
	v := Required()
	assert.False(t, v.Check(nil))
	assert.False(t, v.Check(""))
	assert.False(t, v.Check("   "))
	assert.True(t, v.Check("x"))
	// false 是布尔答案"否"，不算空
	assert.True(t, v.Check(false))
	assert.True(t, v.Check(0.0))
}

func TestRequiredTrueValidator(t *testing.T) {
	v := RequiredTrue()
	assert.True(t, v.Check(true))
	assert.False(t, v.Check(false))
	assert.False(t, v.Check(nil))
	assert.False(t, v.Check("true"))
}

func TestEmailValidator(t *testing.T) {
	v := Email()
	assert.True(t, v.Check("a@b.com"))
	assert.True(t, v.Check("")) // 空值由 Required 负责
	assert.False(t, v.Check("not-an-email"))
	assert.False(t, v.Check("a@b"))
}

// TestPasswordsMatch 真值表：仅双方都非空且不同才失败
func TestPasswordsMatch(t *testing.T) {
	tests := []struct {
		password, confirm string
		wantErr           bool
	}{
		{"", "", false},
		{"secret12", "", false},
		{"", "secret12", false},
		{"secret12", "secret12", false},
		{"secret12", "different", true},
	}
	for _, tt := range tests {
		g := NewGroup().
			Add("password", tt.password).
			Add("passwordConfirm", tt.confirm).
			AddGroupValidator(PasswordsMatch)
		assert.Equal(t, tt.wantErr, g.HasGroupError(ErrKeyPasswordsMismatch),
			"password=%q confirm=%q", tt.password, tt.confirm)
	}
}

func TestGroup_SetMarksTouchedAndDirty(t *testing.T) {
	g := NewGroup().Add("name", nil, Required())
	f := g.Field("name")
	require.NotNil(t, f)

	assert.False(t, f.Touched())
	assert.False(t, f.Dirty())
	assert.True(t, f.Invalid())
	assert.False(t, g.ShowError("name")) // invalid 但未交互，不展示

	g.Set("name", "Jane")
	assert.True(t, f.Touched())
	assert.True(t, f.Dirty())
	assert.False(t, f.Invalid())

	g.Set("name", "")
	assert.True(t, g.ShowError("name"))
}

func TestGroup_PatchKeepsInteractionState(t *testing.T) {
	g := NewGroup().Add("name", nil, Required())
	g.Patch("name", "Jane")
	f := g.Field("name")
	assert.False(t, f.Touched())
	assert.False(t, f.Dirty())
	assert.False(t, f.Invalid())
}

// TestGroup_ClearValidators 清除语义：错误随下一次重算消失
func TestGroup_ClearValidators(t *testing.T) {
	g := NewGroup().Add("website", nil, Required())
	assert.True(t, g.HasError("website", ErrKeyRequired))

	g.ClearValidators("website")
	// 清除不立即重算
	assert.True(t, g.HasError("website", ErrKeyRequired))

	g.UpdateValidity("website")
	assert.False(t, g.HasError("website", ErrKeyRequired))
	assert.False(t, g.Invalid())
}

func TestGroup_MarkAllTouchedUntouched(t *testing.T) {
	g := NewGroup().Add("a", nil, Required()).Add("b", "x")
	g.Set("b", "y")

	g.MarkAllTouched()
	assert.True(t, g.Field("a").Touched())
	assert.True(t, g.ShowError("a"))

	g.MarkAllUntouched()
	assert.False(t, g.Field("a").Touched())
	assert.False(t, g.Field("b").Dirty())
	assert.False(t, g.ShowError("a"))
	// 交互状态重置不影响校验结果本身
	assert.True(t, g.Invalid())
}

func TestGroup_NamesOrdered(t *testing.T) {
	g := NewGroup().Add("z", nil).Add("a", nil).Add("m", nil)
	assert.Equal(t, []string{"z", "a", "m"}, g.Names())
}
