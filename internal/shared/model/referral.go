// Package model 定义核心数据模型
//
// referral.go 包含推荐匹配模型：老兵从附近摄影师搜索结果中
// 选定一位后创建 Referral，作为后续 Session 的前置介绍。
package model

import "time"

// ReferralStatus 推荐状态
type ReferralStatus string

const (
	ReferralStatusMatched  ReferralStatus = "matched"
	ReferralStatusCanceled ReferralStatus = "canceled"
)

// Referral 推荐匹配
//
// 创建后对客户端不可变，仅管理员可取消。
type Referral struct {
	ID             string         `json:"id" db:"id"`
	PhotographerID string         `json:"photographerId" db:"photographer_id"`
	VeteranID      string         `json:"veteranId" db:"veteran_id"`
	Status         ReferralStatus `json:"status" db:"status"`

	Photographer *SessionParty `json:"photographer,omitempty" db:"-"`
	Veteran      *SessionParty `json:"veteran,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var referralStatusLabels = map[ReferralStatus]string{
	ReferralStatusMatched:  "Matched",
	ReferralStatusCanceled: "Canceled",
}

// Label 状态显示名
func (s ReferralStatus) Label() string {
	if l, ok := referralStatusLabels[s]; ok {
		return l
	}
	return "Unknown"
}
