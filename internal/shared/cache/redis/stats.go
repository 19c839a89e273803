// Package redis 面板统计缓存操作
package redis

import (
	"context"

	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/storage"
)

// GetAdminStats 读取管理面板统计缓存
func (s *Store) GetAdminStats(ctx context.Context) (*storage.AdminStats, error) {
	var out storage.AdminStats
	hit, err := s.getJSON(ctx, cache.KeyAdminStats, &out)
	if err != nil || !hit {
		return nil, err
	}
	return &out, nil
}

// SetAdminStats 写入管理面板统计缓存
func (s *Store) SetAdminStats(ctx context.Context, stats *storage.AdminStats) error {
	return s.setJSON(ctx, cache.KeyAdminStats, stats, cache.TTLStats)
}

// GetMemberStats 读取个人面板统计缓存
func (s *Store) GetMemberStats(ctx context.Context, userID string) (*storage.MemberStats, error) {
	var out storage.MemberStats
	hit, err := s.getJSON(ctx, cache.KeyMemberStats+userID, &out)
	if err != nil || !hit {
		return nil, err
	}
	return &out, nil
}

// SetMemberStats 写入个人面板统计缓存
func (s *Store) SetMemberStats(ctx context.Context, userID string, stats *storage.MemberStats) error {
	return s.setJSON(ctx, cache.KeyMemberStats+userID, stats, cache.TTLStats)
}
