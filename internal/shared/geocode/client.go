// Package geocode 地址解析客户端
//
// 封装外部地理编码服务：地址自动补全（返回候选地址及坐标）。
// 推荐匹配依赖坐标做距离计算，所以用户保存地址前必须先经过
// 这里解析出经纬度。
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"patriots-admin/pkg/logging"
)

// ErrStreetRequired 查询缺少门牌号，本地拦截不发请求
var ErrStreetRequired = errors.New("street number is required for address lookup")

// Suggestion 候选地址
type Suggestion struct {
	Text           string  `json:"text"` // 单行显示文本
	StreetAddress1 string  `json:"streetAddress1"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	PostalCode     string  `json:"postalCode"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

// Client 地理编码客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient 创建客户端
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.Default("geocode"),
	}
}

// hasStreetNumber 查询是否以门牌号开头
func hasStreetNumber(query string) bool {
	for _, r := range strings.TrimSpace(query) {
		return unicode.IsDigit(r)
	}
	return false
}

// Suggest 地址自动补全
//
// 查询必须以门牌号开头，否则返回 ErrStreetRequired 且不发起
// 网络请求。零结果不是错误，返回空切片。
func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	if !hasStreetNumber(query) {
		return nil, ErrStreetRequired
	}

	start := time.Now()

	q := url.Values{}
	q.Set("q", query)
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/autocomplete?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.GeocodeLog(query, 0, time.Since(start), err)
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("geocode service returned status %d", resp.StatusCode)
		c.logger.GeocodeLog(query, 0, time.Since(start), err)
		return nil, err
	}

	var out struct {
		Results []Suggestion `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if out.Results == nil {
		out.Results = []Suggestion{}
	}
	c.logger.GeocodeLog(query, len(out.Results), time.Since(start), nil)
	return out.Results, nil
}
