// Package storage 定义持久化存储层抽象接口
//
// 调用方只依赖接口，具体实现在 repository/ 子包，
// 初始化时通过依赖注入传入。
package storage

import (
	"context"

	"patriots-admin/internal/shared/model"
)

// UserFilter 用户列表过滤条件
type UserFilter struct {
	Role   model.UserRole
	Status model.UserStatus
	Search string // 匹配姓名或邮箱
	Limit  int
	Offset int
}

// Page 分页结果
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// UserStore 用户存储
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, filter UserFilter) (*Page[*model.User], error)
	// SearchUsers 按姓名/邮箱前缀匹配，用于推荐人与会话双方选择
	SearchUsers(ctx context.Context, role model.UserRole, query string, limit int) ([]*model.User, error)
	// NearbyPhotographers 按球面距离升序返回附近开放推荐的摄影师
	NearbyPhotographers(ctx context.Context, lat, lng float64, radiusMiles float64, limit int) ([]*model.NearbyPhotographer, error)
}

// SessionFilter 会话列表过滤条件
type SessionFilter struct {
	Status         model.SessionStatus
	PhotographerID string
	VeteranID      string
	// ParticipantID 匹配任一方，用于个人面板
	ParticipantID string
	Limit         int
	Offset        int
}

// SessionStore 会话存储
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	UpdateSession(ctx context.Context, s *model.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, filter SessionFilter) (*Page[*model.Session], error)
	// RecentSessions 按更新时间倒序
	RecentSessions(ctx context.Context, participantID string, limit int) ([]*model.Session, error)
	// ExpireRequestedSessions 取消超过有效期仍未排期的请求
	ExpireRequestedSessions(ctx context.Context) (int, error)
}

// ReferralFilter 推荐列表过滤条件
type ReferralFilter struct {
	Status         model.ReferralStatus
	PhotographerID string
	VeteranID      string
	Limit          int
	Offset         int
}

// ReferralStore 推荐存储
type ReferralStore interface {
	CreateReferral(ctx context.Context, r *model.Referral) error
	GetReferralByID(ctx context.Context, id string) (*model.Referral, error)
	CancelReferral(ctx context.Context, id string) error
	ListReferrals(ctx context.Context, filter ReferralFilter) (*Page[*model.Referral], error)
}

// AdminStats 管理面板统计
type AdminStats struct {
	TotalUsers           int            `json:"totalUsers"`
	PendingPhotographers int            `json:"pendingPhotographers"`
	UsersByRole          map[string]int `json:"usersByRole"`
	UsersByStatus        map[string]int `json:"usersByStatus"`
	SessionsByStatus     map[string]int `json:"sessionsByStatus"`
	ActiveReferrals      int            `json:"activeReferrals"`
}

// MemberStats 个人面板统计（摄影师 / 老兵视角）
type MemberStats struct {
	SessionsByStatus map[string]int `json:"sessionsByStatus"`
	CompletedTotal   int            `json:"completedTotal"`
	UpcomingTotal    int            `json:"upcomingTotal"`
	ActiveReferrals  int            `json:"activeReferrals"`
}

// StatsStore 统计查询
type StatsStore interface {
	AdminStats(ctx context.Context) (*AdminStats, error)
	MemberStats(ctx context.Context, userID string) (*MemberStats, error)
}

// PersistentStore 聚合存储接口
type PersistentStore interface {
	UserStore
	SessionStore
	ReferralStore
	StatsStore
	Close() error
}
