// Package cache 缓存层抽象接口
//
// types.go 定义键前缀与 TTL 常量，由 Redis 实现使用。
package cache

import "time"

// 键前缀
const (
	// KeyGeocode 地址补全缓存，key 为标准化后的查询串
	KeyGeocode = "patriots:geocode:"
	// KeyNearby 附近摄影师缓存，key 为 "lat,lng,radius"
	KeyNearby = "patriots:nearby:"
	// KeyAdminStats 管理面板统计缓存
	KeyAdminStats = "patriots:stats:admin"
	// KeyMemberStats 个人面板统计缓存，key 为用户 ID
	KeyMemberStats = "patriots:stats:member:"
)

// TTL
const (
	// TTLGeocode 地址解析结果基本不变，缓存一天
	TTLGeocode = 24 * time.Hour
	// TTLNearby 摄影师坐标与开放状态低频变化
	TTLNearby = 5 * time.Minute
	// TTLStats 面板统计允许一分钟延迟
	TTLStats = time.Minute
)
