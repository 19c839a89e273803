package formkit

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
)

// ErrFormInvalid 表单存在校验错误，提交被拦截
var ErrFormInvalid = errors.New("form has validation errors")

// Mode 提交模式
type Mode int

const (
	// ModeCreate 新建用户
	ModeCreate Mode = iota
	// ModeUpdate 更新已有用户
	ModeUpdate
)

// Attachment 待上传文件
type Attachment struct {
	FieldName string // 表单字段名，如 studioSpaceImages
	FileName  string
	Data      []byte
}

// Payload 从字段集合构造提交载荷
//
// 规则：
//   - passwordConfirm 永不进入载荷
//   - password 仅在新建、或更新且非空时进入
//   - nil 值跳过
//   - 布尔值保留原值（JSON 载荷用），multipart 编码时另行处理
func Payload(g *Group, mode Mode) map[string]any {
	out := make(map[string]any, len(g.names))
	for _, name := range g.Names() {
		if name == FieldPasswordConfirm {
			continue
		}
		v := g.Value(name)
		if v == nil {
			continue
		}
		if name == FieldPassword {
			// 更新模式下空密码表示不修改
			if s, _ := v.(string); s == "" && mode == ModeUpdate {
				continue
			}
		}
		out[name] = v
	}
	return out
}

// EncodeMultipart 将载荷与附件写入 multipart 流
//
// 字段按注册顺序写出。布尔编码沿用既有线上协议：true 写作
// 字符串 "true"，false 直接省略。附件按切片顺序写出，服务端
// 依赖该顺序保持图片排序。
func EncodeMultipart(w *multipart.Writer, g *Group, mode Mode, attachments []Attachment) error {
	payload := Payload(g, mode)
	for _, name := range g.Names() {
		v, ok := payload[name]
		if !ok {
			continue
		}
		var text string
		switch val := v.(type) {
		case bool:
			if !val {
				continue
			}
			text = "true"
		case string:
			if val == "" {
				continue
			}
			text = val
		case float64:
			text = strconv.FormatFloat(val, 'f', -1, 64)
		case int:
			text = strconv.Itoa(val)
		default:
			text = fmt.Sprintf("%v", val)
		}
		if err := w.WriteField(name, text); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, a := range attachments {
		part, err := w.CreateFormFile(a.FieldName, a.FileName)
		if err != nil {
			return fmt.Errorf("create file part %s: %w", a.FieldName, err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return fmt.Errorf("write file part %s: %w", a.FieldName, err)
		}
	}
	return nil
}

// PreviewDataURL 生成本地预览用 data URL
func PreviewDataURL(contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read preview data: %w", err)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
