// Package redis 地址补全缓存操作
package redis

import (
	"context"
	"strings"

	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/geocode"
)

// normalizeQuery 标准化查询串作为缓存 key
func normalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// GetSuggestions 读取地址补全缓存
func (s *Store) GetSuggestions(ctx context.Context, query string) ([]geocode.Suggestion, error) {
	var out []geocode.Suggestion
	hit, err := s.getJSON(ctx, cache.KeyGeocode+normalizeQuery(query), &out)
	if err != nil || !hit {
		return nil, err
	}
	return out, nil
}

// SetSuggestions 写入地址补全缓存
func (s *Store) SetSuggestions(ctx context.Context, query string, suggestions []geocode.Suggestion) error {
	if suggestions == nil {
		suggestions = []geocode.Suggestion{}
	}
	return s.setJSON(ctx, cache.KeyGeocode+normalizeQuery(query), suggestions, cache.TTLGeocode)
}
