// Package cache 提供缓存层抽象
//
// mock.go 提供空操作实现，用于测试和未配置 Redis 的部署。
package cache

import (
	"context"

	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

// NoOpCache 空操作缓存：读恒未命中，写恒成功
type NoOpCache struct{}

var _ Cache = (*NoOpCache)(nil)

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetSuggestions(ctx context.Context, query string) ([]geocode.Suggestion, error) {
	return nil, nil
}

func (c *NoOpCache) SetSuggestions(ctx context.Context, query string, suggestions []geocode.Suggestion) error {
	return nil
}

func (c *NoOpCache) GetNearby(ctx context.Context, key string) ([]*model.NearbyPhotographer, error) {
	return nil, nil
}

func (c *NoOpCache) SetNearby(ctx context.Context, key string, photographers []*model.NearbyPhotographer) error {
	return nil
}

func (c *NoOpCache) InvalidateNearby(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) GetAdminStats(ctx context.Context) (*storage.AdminStats, error) {
	return nil, nil
}

func (c *NoOpCache) SetAdminStats(ctx context.Context, stats *storage.AdminStats) error {
	return nil
}

func (c *NoOpCache) GetMemberStats(ctx context.Context, userID string) (*storage.MemberStats, error) {
	return nil, nil
}

func (c *NoOpCache) SetMemberStats(ctx context.Context, userID string, stats *storage.MemberStats) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
