package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/model"
)

// ListOptions 列表查询参数
type ListOptions struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// UserList 用户分页结果
type UserList struct {
	Items []*model.User `json:"items"`
	Total int           `json:"total"`
}

// SessionList 会话分页结果
type SessionList struct {
	Items []*model.Session `json:"items"`
	Total int              `json:"total"`
}

// ReferralList 推荐分页结果
type ReferralList struct {
	Items []*model.Referral `json:"items"`
	Total int               `json:"total"`
}

// ============================================================================
// 用户
// ============================================================================

// ListUsers 用户列表（管理员）
func (c *Client) ListUsers(ctx context.Context, opts ListOptions, role string) (*UserList, error) {
	q := opts.query()
	if role != "" {
		q.Set("role", role)
	}
	var result UserList
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/users", q), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUser 用户详情
func (c *Client) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+id, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser 删除用户（管理员）
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/users/"+id, nil, nil)
}

// UserSuggestions 按姓名/邮箱前缀联想用户
func (c *Client) UserSuggestions(ctx context.Context, query, role string) ([]*model.User, error) {
	q := url.Values{"q": {query}}
	if role != "" {
		q.Set("role", role)
	}
	var result struct {
		Users []*model.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/users/suggestions", q), nil, &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// AddressSuggestions 地址补全
func (c *Client) AddressSuggestions(ctx context.Context, query string) ([]geocode.Suggestion, error) {
	var result struct {
		Suggestions []geocode.Suggestion `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/address-suggestions", map[string]string{"query": query}, &result)
	if err != nil {
		return nil, err
	}
	return result.Suggestions, nil
}

// NearbyPhotographers 按坐标查找附近开放推荐的摄影师
func (c *Client) NearbyPhotographers(ctx context.Context, lat, lng, radius float64) ([]*model.NearbyPhotographer, error) {
	q := url.Values{
		"latitude":  {fmt.Sprintf("%f", lat)},
		"longitude": {fmt.Sprintf("%f", lng)},
	}
	if radius > 0 {
		q.Set("radius", fmt.Sprintf("%f", radius))
	}
	var result struct {
		Photographers []*model.NearbyPhotographer `json:"photographers"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/photographers/nearby", q), nil, &result); err != nil {
		return nil, err
	}
	return result.Photographers, nil
}

// ============================================================================
// 会话
// ============================================================================

// ListSessions 会话列表
func (c *Client) ListSessions(ctx context.Context, opts ListOptions) (*SessionList, error) {
	var result SessionList
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/sessions", opts.query()), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSession 会话详情
func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+id, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// CreateSession 创建会话（管理员排期或老兵请求）
func (c *Client) CreateSession(ctx context.Context, payload map[string]any) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateSession 更新会话状态或反馈
func (c *Client) UpdateSession(ctx context.Context, id string, payload map[string]any) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodPatch, "/api/v1/sessions/"+id, payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// RecentSessions 最近会话
func (c *Client) RecentSessions(ctx context.Context, limit int) ([]*model.Session, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result struct {
		Sessions []*model.Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/sessions/recent", q), nil, &result); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

// ============================================================================
// 推荐
// ============================================================================

// CreateReferral 创建推荐
func (c *Client) CreateReferral(ctx context.Context, photographerID, veteranID string) (*model.Referral, error) {
	var ref model.Referral
	err := c.do(ctx, http.MethodPost, "/api/v1/referrals", map[string]string{
		"photographerId": photographerID,
		"veteranId":      veteranID,
	}, &ref)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListReferrals 推荐列表
func (c *Client) ListReferrals(ctx context.Context, opts ListOptions) (*ReferralList, error) {
	var result ReferralList
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/referrals", opts.query()), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelReferral 取消推荐（管理员）
func (c *Client) CancelReferral(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/referrals/"+id+"/cancel", nil, nil)
}
