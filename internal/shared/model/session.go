// Package model 定义核心数据模型
//
// session.go 包含拍摄会话相关的数据模型：
//   - Session：老兵与摄影师之间的一次预约拍摄
//   - SessionStatus：会话状态枚举与状态机
//   - SessionOutcome：拍摄结果枚举
//   - SessionParty：会话双方的联系人摘要
package model

import "time"

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionStatusRequested           SessionStatus = "requested"
	SessionStatusScheduled           SessionStatus = "scheduled"
	SessionStatusRescheduleRequested SessionStatus = "reschedule_requested"
	SessionStatusCompleted           SessionStatus = "completed"
	SessionStatusCanceled            SessionStatus = "canceled"
)

// SessionOutcome 拍摄结果
type SessionOutcome string

const (
	OutcomePhotosProvided     SessionOutcome = "photos_provided"
	OutcomePhotosNotYet       SessionOutcome = "photos_not_provided_yet"
	OutcomeNoShow             SessionOutcome = "no_show"
	OutcomeUnableToSchedule   SessionOutcome = "unable_to_schedule"
	OutcomeOther              SessionOutcome = "other"
)

// SessionParty 会话一方的联系人摘要（冗余存储，列表页免 JOIN 用户详情）
type SessionParty struct {
	ID             string  `json:"id"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Email          string  `json:"email"`
	PhoneNumber    string  `json:"phoneNumber"`
	StreetAddress1 string  `json:"streetAddress1"`
	StreetAddress2 *string `json:"streetAddress2,omitempty"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	PostalCode     string  `json:"postalCode"`
}

// Session 拍摄会话
type Session struct {
	ID             string        `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	Note           *string       `json:"note,omitempty" db:"note"`
	Status         SessionStatus `json:"status" db:"status"`
	Date           time.Time     `json:"date" db:"date"`
	ExpirationDate *time.Time    `json:"expirationDate,omitempty" db:"expiration_date"`

	// 双方各自的结果/评分/反馈，只能由本方（或管理员）编辑
	OutcomePhotographer      *SessionOutcome `json:"outcomePhotographer,omitempty" db:"outcome_photographer"`
	OtherOutcomePhotographer *string         `json:"otherOutcomePhotographer,omitempty" db:"other_outcome_photographer"`
	RatePhotographer         *int            `json:"ratePhotographer,omitempty" db:"rate_photographer"`
	PhotographerFeedback     *string         `json:"photographerFeedback,omitempty" db:"photographer_feedback"`
	OutcomeVeteran           *SessionOutcome `json:"outcomeVeteran,omitempty" db:"outcome_veteran"`
	OtherOutcomeVeteran      *string         `json:"otherOutcomeVeteran,omitempty" db:"other_outcome_veteran"`
	RateVeteran              *int            `json:"rateVeteran,omitempty" db:"rate_veteran"`
	VeteranFeedback          *string         `json:"veteranFeedback,omitempty" db:"veteran_feedback"`

	PhotographerID string        `json:"photographerId" db:"photographer_id"`
	VeteranID      string        `json:"veteranId" db:"veteran_id"`
	Photographer   *SessionParty `json:"photographer,omitempty" db:"-"`
	Veteran        *SessionParty `json:"veteran,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RequestedSessionTTL 请求状态会话的有效期，超时未排期即过期
const RequestedSessionTTL = 7 * 24 * time.Hour

var sessionStatusLabels = map[SessionStatus]string{
	SessionStatusRequested:           "Requested",
	SessionStatusScheduled:           "Scheduled",
	SessionStatusRescheduleRequested: "Reschedule Requested",
	SessionStatusCompleted:           "Completed",
	SessionStatusCanceled:            "Canceled",
}

var sessionOutcomeLabels = map[SessionOutcome]string{
	OutcomePhotosProvided:   "Photos have been provided to the Patriot",
	OutcomePhotosNotYet:     "Photographer has not provided photos yet",
	OutcomeNoShow:           "Patriot did not show up for appointment",
	OutcomeUnableToSchedule: "No communication, unable to schedule",
	OutcomeOther:            "Other",
}

// Label 状态显示名
func (s SessionStatus) Label() string {
	if l, ok := sessionStatusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// Label 结果显示名
func (o SessionOutcome) Label() string {
	return sessionOutcomeLabels[o]
}

// ValidSessionStatus 判断会话状态是否合法
func ValidSessionStatus(s SessionStatus) bool {
	_, ok := sessionStatusLabels[s]
	return ok
}

// Terminal 是否终态（终态会话不再转移）
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCanceled
}

// sessionTransitions 会话状态机
//
// requested → scheduled | canceled
// scheduled → reschedule_requested | completed | canceled
// reschedule_requested → scheduled | canceled
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusRequested:           {SessionStatusScheduled, SessionStatusCanceled},
	SessionStatusScheduled:           {SessionStatusRescheduleRequested, SessionStatusCompleted, SessionStatusCanceled},
	SessionStatusRescheduleRequested: {SessionStatusScheduled, SessionStatusCanceled},
}

// CanTransitionTo 判断状态转移是否允许
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// FeedbackOwner 反馈字段归属方
//
// photographerFeedback 系列字段只能由摄影师本人编辑，
// veteranFeedback 系列只能由老兵本人编辑，管理员不受限。
func FeedbackOwner(field string) UserRole {
	switch field {
	case "outcomePhotographer", "otherOutcomePhotographer", "ratePhotographer", "photographerFeedback":
		return UserRolePhotographer
	case "outcomeVeteran", "otherOutcomeVeteran", "rateVeteran", "veteranFeedback":
		return UserRoleVeteran
	}
	return ""
}

// CanEditFeedback 判断 role 是否可以编辑指定反馈字段
func CanEditFeedback(role UserRole, field string) bool {
	owner := FeedbackOwner(field)
	if owner == "" {
		return true // 非反馈字段不在此约束内
	}
	return role == UserRoleAdmin || role == owner
}
