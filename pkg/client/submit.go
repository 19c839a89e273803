package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"patriots-admin/internal/shared/model"
	"patriots-admin/pkg/formkit"
)

// ErrSubmitInProgress 已有提交在进行中
var ErrSubmitInProgress = errors.New("submission already in progress")

// SubmitUser 提交用户表单
//
// 提交前本地拦截：表单无效时不发起网络请求，所有字段标记
// 为已触碰以展示错误，返回 formkit.ErrFormInvalid。
// submitting 标志防止重复提交。
//
// mode 为 ModeCreate 时走 POST /api/v1/users（管理员创建），
// ModeUpdate 时走 PATCH /api/v1/users/{userID}。
// 有附件时以 multipart 编码，否则提交 JSON 载荷。
func (c *Client) SubmitUser(ctx context.Context, g *formkit.Group, mode formkit.Mode, userID string, attachments []formkit.Attachment) (*model.User, error) {
	c.submitMu.Lock()
	if c.submitting {
		c.submitMu.Unlock()
		return nil, ErrSubmitInProgress
	}
	c.submitting = true
	c.submitMu.Unlock()

	defer func() {
		c.submitMu.Lock()
		c.submitting = false
		c.submitMu.Unlock()
	}()

	if g.Invalid() {
		g.MarkAllTouched()
		return nil, formkit.ErrFormInvalid
	}

	method := http.MethodPost
	path := "/api/v1/users"
	if mode == formkit.ModeUpdate {
		method = http.MethodPatch
		path = "/api/v1/users/" + userID
	}

	var user model.User
	var err error
	if len(attachments) > 0 {
		err = c.doMultipart(ctx, method, path, g, mode, attachments, &user)
	} else {
		err = c.do(ctx, method, path, formkit.Payload(g, mode), &user)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// doMultipart 以 multipart 编码发送表单与附件
func (c *Client) doMultipart(ctx context.Context, method, path string, g *formkit.Group, mode formkit.Mode, attachments []formkit.Attachment, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := formkit.EncodeMultipart(w, g, mode, attachments); err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.attachAuth(req, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens.Refresh() != "" {
		resp.Body.Close()
		if err := c.refreshTokens(ctx); err != nil {
			c.tokens.Clear()
			return ErrLoggedOut
		}
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		c.attachAuth(req, path)
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}
