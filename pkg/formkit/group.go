package formkit

// Field 单个表单字段
//
// 交互状态语义沿用常见响应式表单约定：
//   - touched：用户已离开过该字段（或被强制标记，用于显示错误）
//   - dirty：字段值被修改过
type Field struct {
	value      any
	validators []Validator
	touched    bool
	dirty      bool
	errors     []string // 错误 key 列表
}

// Value 当前值
func (f *Field) Value() any { return f.value }

// Touched 是否已交互
func (f *Field) Touched() bool { return f.touched }

// Dirty 是否被修改过
func (f *Field) Dirty() bool { return f.dirty }

// Errors 当前错误 key 列表
func (f *Field) Errors() []string { return f.errors }

// Invalid 是否校验失败
func (f *Field) Invalid() bool { return len(f.errors) > 0 }

// validate 按当前校验器重算错误
func (f *Field) validate() {
	f.errors = f.errors[:0]
	for _, v := range f.validators {
		if !v.Check(f.value) {
			f.errors = append(f.errors, v.Key)
		}
	}
}

// Group 有序字段集合
//
// 字段按注册顺序迭代，保证载荷构造与校验输出的确定性。
type Group struct {
	names           []string
	fields          map[string]*Field
	groupValidators []GroupValidator
	groupErrors     []string
}

// NewGroup 创建空字段集合
func NewGroup() *Group {
	return &Group{fields: map[string]*Field{}}
}

// Add 注册字段及其初始校验器
func (g *Group) Add(name string, value any, validators ...Validator) *Group {
	if _, exists := g.fields[name]; !exists {
		g.names = append(g.names, name)
	}
	f := &Field{value: value, validators: validators}
	f.validate()
	g.fields[name] = f
	return g
}

// AddGroupValidator 注册跨字段校验器
func (g *Group) AddGroupValidator(v GroupValidator) *Group {
	g.groupValidators = append(g.groupValidators, v)
	g.validateGroup()
	return g
}

// Field 取字段，不存在返回 nil
func (g *Group) Field(name string) *Field {
	return g.fields[name]
}

// Names 按注册顺序返回字段名
func (g *Group) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Value 取字段当前值，字段不存在返回 nil
func (g *Group) Value(name string) any {
	if f := g.fields[name]; f != nil {
		return f.value
	}
	return nil
}

// Set 写入字段值：标记 dirty + touched 并立即重校验
func (g *Group) Set(name string, value any) {
	f := g.fields[name]
	if f == nil {
		return
	}
	f.value = value
	f.dirty = true
	f.touched = true
	f.validate()
	g.validateGroup()
}

// Patch 写入字段值但不改变交互状态（程序化回填）
func (g *Group) Patch(name string, value any) {
	f := g.fields[name]
	if f == nil {
		return
	}
	f.value = value
	f.validate()
	g.validateGroup()
}

// SetValidators 替换字段校验器（不立即重校验，与 UpdateValidity 配合）
func (g *Group) SetValidators(name string, validators ...Validator) {
	if f := g.fields[name]; f != nil {
		f.validators = validators
	}
}

// SetRequired 将一组字段设为必填
func (g *Group) SetRequired(names ...string) {
	for _, name := range names {
		g.SetValidators(name, Required())
	}
}

// ClearValidators 清除一组字段的全部校验器
//
// 清除而非忽略：字段此前的 required 错误随下一次 UpdateValidity 消失，
// 不会在角色切换后残留。
func (g *Group) ClearValidators(names ...string) {
	for _, name := range names {
		if f := g.fields[name]; f != nil {
			f.validators = nil
		}
	}
}

// UpdateValidity 按当前校验器重算一组字段的错误
func (g *Group) UpdateValidity(names ...string) {
	for _, name := range names {
		if f := g.fields[name]; f != nil {
			f.validate()
		}
	}
	g.validateGroup()
}

// MarkAllTouched 标记全部字段为已交互（提交失败时强制显示错误）
func (g *Group) MarkAllTouched() {
	for _, f := range g.fields {
		f.touched = true
	}
}

// MarkAllUntouched 重置全部字段为未交互（pristine + untouched）
//
// 角色/状态切换后调用，避免为用户尚未见过的字段显示错误。
func (g *Group) MarkAllUntouched() {
	for _, f := range g.fields {
		f.touched = false
		f.dirty = false
	}
}

// validateGroup 重算跨字段错误
func (g *Group) validateGroup() {
	g.groupErrors = g.groupErrors[:0]
	for _, v := range g.groupValidators {
		if key := v(g); key != "" {
			g.groupErrors = append(g.groupErrors, key)
		}
	}
}

// Invalid 集合整体是否校验失败（含跨字段错误）
func (g *Group) Invalid() bool {
	if len(g.groupErrors) > 0 {
		return true
	}
	for _, f := range g.fields {
		if f.Invalid() {
			return true
		}
	}
	return false
}

// HasError 字段是否带有指定错误 key
func (g *Group) HasError(name, key string) bool {
	f := g.fields[name]
	if f == nil {
		return false
	}
	for _, e := range f.errors {
		if e == key {
			return true
		}
	}
	return false
}

// HasGroupError 是否存在指定跨字段错误
func (g *Group) HasGroupError(key string) bool {
	for _, e := range g.groupErrors {
		if e == key {
			return true
		}
	}
	return false
}

// ShowError 字段错误是否应当展示（touched 且 invalid）
func (g *Group) ShowError(name string) bool {
	f := g.fields[name]
	return f != nil && f.touched && f.Invalid()
}
