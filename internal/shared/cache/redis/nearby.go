// Package redis 附近摄影师缓存操作
package redis

import (
	"context"

	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/model"
)

// GetNearby 读取附近摄影师缓存
func (s *Store) GetNearby(ctx context.Context, key string) ([]*model.NearbyPhotographer, error) {
	var out []*model.NearbyPhotographer
	hit, err := s.getJSON(ctx, cache.KeyNearby+key, &out)
	if err != nil || !hit {
		return nil, err
	}
	return out, nil
}

// SetNearby 写入附近摄影师缓存
func (s *Store) SetNearby(ctx context.Context, key string, photographers []*model.NearbyPhotographer) error {
	if photographers == nil {
		photographers = []*model.NearbyPhotographer{}
	}
	return s.setJSON(ctx, cache.KeyNearby+key, photographers, cache.TTLNearby)
}

// InvalidateNearby 摄影师地址或开放状态变更后整体失效
func (s *Store) InvalidateNearby(ctx context.Context) error {
	return s.deleteByPattern(ctx, cache.KeyNearby+"*")
}
