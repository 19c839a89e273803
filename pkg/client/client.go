// Package client Patriots Admin API 客户端
//
// 管理前端与移动端共用的 API 访问层：负责令牌管理、
// 自动附加 Authorization 头、401 时单次刷新重试。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"patriots-admin/internal/shared/model"
)

// ErrLoggedOut 刷新失败后令牌已清空，需要重新登录
var ErrLoggedOut = errors.New("session expired, please sign in again")

// APIError 服务端返回的业务错误
type APIError struct {
	Status  int                 `json:"-"`
	Message string              `json:"error"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// TokenStore 线程安全的令牌存储
type TokenStore struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

// Set 保存一对令牌
func (t *TokenStore) Set(access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = access
	if refresh != "" {
		t.refreshToken = refresh
	}
}

// Access 当前访问令牌
func (t *TokenStore) Access() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accessToken
}

// Refresh 当前刷新令牌
func (t *TokenStore) Refresh() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refreshToken
}

// Clear 清空令牌（登出）
func (t *TokenStore) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = ""
	t.refreshToken = ""
}

// LoggedIn 是否持有访问令牌
func (t *TokenStore) LoggedIn() bool {
	return t.Access() != ""
}

// excludedPaths 不附加 Authorization 头的端点
var excludedPaths = []string{
	"/api/v1/auth/signup",
	"/api/v1/auth/signin",
	"/api/v1/auth/refresh",
	"/api/v1/auth/address-suggestions",
}

func isExcluded(path string) bool {
	for _, p := range excludedPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Client API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenStore

	// submitting 表单提交重入保护
	submitMu   sync.Mutex
	submitting bool
}

// New 创建 API 客户端
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     &TokenStore{},
	}
}

// Tokens 返回令牌存储（持久化到本地时使用）
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// do 发送请求并解码响应
//
// 非排除端点自动附加 Bearer 头；收到 401 时用刷新令牌
// 换取新令牌并重试一次，刷新失败则清空令牌。
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isExcluded(path) && c.tokens.Refresh() != "" {
		resp.Body.Close()
		if err := c.refreshTokens(ctx); err != nil {
			c.tokens.Clear()
			return ErrLoggedOut
		}
		resp, err = c.send(ctx, method, path, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachAuth(req, path)

	return c.httpClient.Do(req)
}

func (c *Client) attachAuth(req *http.Request, path string) {
	if isExcluded(path) {
		return
	}
	if token := c.tokens.Access(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// refreshTokens 用刷新令牌换取新令牌对
func (c *Client) refreshTokens(ctx context.Context) error {
	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": c.tokens.Refresh(),
	}, &result)
	if err != nil {
		return err
	}
	c.tokens.Set(result.AccessToken, result.RefreshToken)
	return nil
}

// decodeResponse 解码成功响应或构造 APIError
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		json.Unmarshal(data, apiErr)
	}
	return apiErr
}

// ============================================================================
// 认证
// ============================================================================

// AuthResult 登录/注册结果
type AuthResult struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

// Signin 登录并保存令牌
func (c *Client) Signin(ctx context.Context, email, password string) (*model.User, error) {
	var result AuthResult
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}
	c.tokens.Set(result.AccessToken, result.RefreshToken)
	return result.User, nil
}

// Signup 注册并保存令牌
func (c *Client) Signup(ctx context.Context, payload map[string]any) (*model.User, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", payload, &result); err != nil {
		return nil, err
	}
	c.tokens.Set(result.AccessToken, result.RefreshToken)
	return result.User, nil
}

// Signout 清空本地令牌
func (c *Client) Signout() {
	c.tokens.Clear()
}

// Me 当前登录用户
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
