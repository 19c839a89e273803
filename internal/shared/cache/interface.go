package cache

import (
	"context"

	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

// 未命中约定：返回 (nil, nil)，调用方回源后写回。

// GeocodeCache 地址补全结果缓存
type GeocodeCache interface {
	GetSuggestions(ctx context.Context, query string) ([]geocode.Suggestion, error)
	SetSuggestions(ctx context.Context, query string, suggestions []geocode.Suggestion) error
}

// NearbyCache 附近摄影师查询缓存
type NearbyCache interface {
	GetNearby(ctx context.Context, key string) ([]*model.NearbyPhotographer, error)
	SetNearby(ctx context.Context, key string, photographers []*model.NearbyPhotographer) error
	// InvalidateNearby 摄影师地址或开放状态变更后整体失效
	InvalidateNearby(ctx context.Context) error
}

// StatsCache 面板统计缓存
type StatsCache interface {
	GetAdminStats(ctx context.Context) (*storage.AdminStats, error)
	SetAdminStats(ctx context.Context, stats *storage.AdminStats) error
	GetMemberStats(ctx context.Context, userID string) (*storage.MemberStats, error)
	SetMemberStats(ctx context.Context, userID string, stats *storage.MemberStats) error
}

// Cache 缓存组合接口
type Cache interface {
	GeocodeCache
	NearbyCache
	StatsCache
	Close() error
}
