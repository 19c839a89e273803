// Package model 定义核心数据模型
//
// user.go 包含用户相关的数据模型定义：
//   - User：用户（管理员 / 摄影师 / 老兵）
//   - UserRole / UserStatus：角色与审核状态枚举
//   - Eligibility / MilitaryBranch：老兵资格与军种枚举
//   - NearbyPhotographer：附近摄影师查询结果（含距离）
package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRolePhotographer UserRole = "photographer"
	UserRoleVeteran      UserRole = "veteran"
)

// UserStatus 用户审核状态
type UserStatus string

const (
	UserStatusOnboarding UserStatus = "onboarding"
	UserStatusPending    UserStatus = "pending"
	UserStatusApproved   UserStatus = "approved"
	UserStatusDenied     UserStatus = "denied"
)

// Eligibility 老兵资格类别
type Eligibility string

const (
	EligibilityTransitioningServiceMember Eligibility = "transitioning_service_member"
	EligibilityGoldStarFamilyMember       Eligibility = "gold_star_family_member"
	EligibilityMilitarySpouse             Eligibility = "military_spouse"
)

// MilitaryBranch 军种
type MilitaryBranch string

const (
	BranchAirForce    MilitaryBranch = "us_air_force"
	BranchArmy        MilitaryBranch = "us_army"
	BranchCoastGuard  MilitaryBranch = "us_coast_guard"
	BranchNavy        MilitaryBranch = "us_navy"
	BranchMarineCorps MilitaryBranch = "us_marine_corps"
	BranchSpaceForce  MilitaryBranch = "us_space_force"
)

// User 用户
//
// 三种角色共用一张表：基础身份 + 地址字段对所有角色有效，
// Photographer/Veteran 专属字段按角色填写，其余为 NULL。
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // never expose in JSON
	FirstName    string     `json:"firstName" db:"first_name"`
	LastName     string     `json:"lastName" db:"last_name"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	PhoneNumber  string     `json:"phoneNumber" db:"phone_number"`

	// === 地址 ===
	StreetAddress1 string   `json:"streetAddress1" db:"street_address1"`
	StreetAddress2 *string  `json:"streetAddress2,omitempty" db:"street_address2"`
	City           string   `json:"city" db:"city"`
	State          string   `json:"state" db:"state"`
	PostalCode     string   `json:"postalCode" db:"postal_code"`
	Latitude       *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64 `json:"longitude,omitempty" db:"longitude"`

	ReferredBy       *string `json:"referredBy,omitempty" db:"referred_by"`
	ReasonForDenying *string `json:"reasonForDenying,omitempty" db:"reason_for_denying"`

	// === Photographer ===
	Website         *string `json:"website,omitempty" db:"website"`
	OpenToReferrals bool    `json:"openToReferrals" db:"open_to_referrals"`

	// === Photographer Onboarding ===
	MailingStreetAddress1          *string `json:"mailingStreetAddress1,omitempty" db:"mailing_street_address1"`
	MailingStreetAddress2          *string `json:"mailingStreetAddress2,omitempty" db:"mailing_street_address2"`
	MailingCity                    *string `json:"mailingCity,omitempty" db:"mailing_city"`
	MailingState                   *string `json:"mailingState,omitempty" db:"mailing_state"`
	MailingPostalCode              *string `json:"mailingPostalCode,omitempty" db:"mailing_postal_code"`
	ClosestBase                    *string `json:"closestBase,omitempty" db:"closest_base"`
	AgreeToCriminalBackgroundCheck *bool   `json:"agreeToCriminalBackgroundCheck,omitempty" db:"agree_to_criminal_background_check"`
	SocialMedia                    *string `json:"socialMedia,omitempty" db:"social_media"`
	IsHomeStudio                   *bool   `json:"isHomeStudio,omitempty" db:"is_home_studio"`
	PartOfHomeStudio               *string `json:"partOfHomeStudio,omitempty" db:"part_of_home_studio"`
	IsSeparateEntrance             *bool   `json:"isSeparateEntrance,omitempty" db:"is_separate_entrance"`
	AcknowledgeHomeStudioAgreement *bool   `json:"acknowledgeHomeStudioAgreement,omitempty" db:"acknowledge_home_studio_agreement"`
	IsStudioAdaAccessible          *bool   `json:"isStudioAdaAccessible,omitempty" db:"is_studio_ada_accessible"`
	AgreeToVolunteerAgreement      *bool   `json:"agreeToVolunteerAgreement,omitempty" db:"agree_to_volunteer_agreement"`

	// 对象存储 key，保持上传顺序
	StudioSpaceImages      []string `json:"studioSpaceImages,omitempty" db:"studio_space_images"`
	ProofOfInsuranceImages []string `json:"proofOfInsuranceImages,omitempty" db:"proof_of_insurance_images"`

	// === Veteran ===
	SeekingEmployment *bool           `json:"seekingEmployment,omitempty" db:"seeking_employment"` // 三态：yes/no/未填
	LinkedinProfile   *string         `json:"linkedinProfile,omitempty" db:"linkedin_profile"`
	Eligibility       *Eligibility    `json:"eligibility,omitempty" db:"eligibility"`
	MilitaryBranch    *MilitaryBranch `json:"militaryBranchAffiliation,omitempty" db:"military_branch"`
	MilitaryETSDate   *string         `json:"militaryETSDate,omitempty" db:"military_ets_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NearbyPhotographer 附近摄影师查询结果
type NearbyPhotographer struct {
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
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Distance       float64 `json:"distance"` // miles
}

// ============================================================================
// 枚举辅助
// ============================================================================

// ValidRole 判断角色是否合法
func ValidRole(r UserRole) bool {
	switch r {
	case UserRoleAdmin, UserRolePhotographer, UserRoleVeteran:
		return true
	}
	return false
}

// ValidUserStatus 判断用户状态是否合法
func ValidUserStatus(s UserStatus) bool {
	switch s {
	case UserStatusOnboarding, UserStatusPending, UserStatusApproved, UserStatusDenied:
		return true
	}
	return false
}

// DefaultStatusForRole 角色对应的初始审核状态
// 摄影师需要管理员审核，老兵注册即通过
func DefaultStatusForRole(r UserRole) UserStatus {
	if r == UserRolePhotographer {
		return UserStatusPending
	}
	return UserStatusApproved
}

var roleLabels = map[UserRole]string{
	UserRoleAdmin:        "Admin",
	UserRolePhotographer: "Photographer",
	UserRoleVeteran:      "Veteran",
}

var userStatusLabels = map[UserStatus]string{
	UserStatusOnboarding: "Onboarding",
	UserStatusPending:    "Pending",
	UserStatusApproved:   "Approved",
	UserStatusDenied:     "Denied",
}

var eligibilityLabels = map[Eligibility]string{
	EligibilityTransitioningServiceMember: "Transitioning Service Member",
	EligibilityGoldStarFamilyMember:       "Gold Star Family Member",
	EligibilityMilitarySpouse:             "Military Spouse",
}

var branchLabels = map[MilitaryBranch]string{
	BranchAirForce:    "US Air Force",
	BranchArmy:        "US Army",
	BranchCoastGuard:  "US Coast Guard",
	BranchNavy:        "US Navy",
	BranchMarineCorps: "US Marine Corps",
	BranchSpaceForce:  "US Space Force",
}

// Label 角色显示名
func (r UserRole) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return "Unknown"
}

// Label 状态显示名
func (s UserStatus) Label() string {
	if l, ok := userStatusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// Label 资格显示名
func (e Eligibility) Label() string {
	return eligibilityLabels[e]
}

// Label 军种显示名
func (b MilitaryBranch) Label() string {
	return branchLabels[b]
}

// ============================================================================
// User 辅助方法
// ============================================================================

// FullName 全名
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// LocationText 单行地址文本
func (u *User) LocationText() string {
	street := u.StreetAddress1
	if u.StreetAddress2 != nil && *u.StreetAddress2 != "" {
		street += ", " + *u.StreetAddress2
	}
	return street + ", " + u.City + ", " + u.State + ", " + u.PostalCode
}

// SeekingEmploymentText 求职意向显示文本（三态）
func (u *User) SeekingEmploymentText() string {
	if u.SeekingEmployment == nil {
		return ""
	}
	if *u.SeekingEmployment {
		return "Yes"
	}
	return "No"
}

// HasCoordinates 地址是否已解析出坐标
func (u *User) HasCoordinates() bool {
	return u.Latitude != nil && u.Longitude != nil
}
