package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

// userColumns 用户表全部列，与 scanUser 的扫描顺序严格一致
const userColumns = `id, email, password_hash, first_name, last_name, role, status, phone_number,
	street_address1, street_address2, city, state, postal_code, latitude, longitude,
	referred_by, reason_for_denying, website, open_to_referrals,
	mailing_street_address1, mailing_street_address2, mailing_city, mailing_state, mailing_postal_code,
	closest_base, agree_to_criminal_background_check, social_media,
	is_home_studio, part_of_home_studio, is_separate_entrance, acknowledge_home_studio_agreement,
	is_studio_ada_accessible, agree_to_volunteer_agreement,
	studio_space_images, proof_of_insurance_images,
	seeking_employment, linkedin_profile, eligibility, military_branch, military_ets_date,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser 按 userColumns 顺序扫描一行用户
func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var studioImages, insuranceImages sql.NullString
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.Status, &u.PhoneNumber,
		&u.StreetAddress1, &u.StreetAddress2, &u.City, &u.State, &u.PostalCode, &u.Latitude, &u.Longitude,
		&u.ReferredBy, &u.ReasonForDenying, &u.Website, &u.OpenToReferrals,
		&u.MailingStreetAddress1, &u.MailingStreetAddress2, &u.MailingCity, &u.MailingState, &u.MailingPostalCode,
		&u.ClosestBase, &u.AgreeToCriminalBackgroundCheck, &u.SocialMedia,
		&u.IsHomeStudio, &u.PartOfHomeStudio, &u.IsSeparateEntrance, &u.AcknowledgeHomeStudioAgreement,
		&u.IsStudioAdaAccessible, &u.AgreeToVolunteerAgreement,
		&studioImages, &insuranceImages,
		&u.SeekingEmployment, &u.LinkedinProfile, &u.Eligibility, &u.MilitaryBranch, &u.MilitaryETSDate,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.StudioSpaceImages = unmarshalStrings(studioImages)
	u.ProofOfInsuranceImages = unmarshalStrings(insuranceImages)
	return u, nil
}

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22, $23, $24,
			$25, $26, $27,
			$28, $29, $30, $31,
			$32, $33,
			$34, $35,
			$36, $37, $38, $39, $40,
			$41, $42)`),
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.Status, user.PhoneNumber,
		user.StreetAddress1, user.StreetAddress2, user.City, user.State, user.PostalCode,
		user.Latitude, user.Longitude,
		user.ReferredBy, user.ReasonForDenying, user.Website, user.OpenToReferrals,
		user.MailingStreetAddress1, user.MailingStreetAddress2, user.MailingCity, user.MailingState, user.MailingPostalCode,
		user.ClosestBase, user.AgreeToCriminalBackgroundCheck, user.SocialMedia,
		user.IsHomeStudio, user.PartOfHomeStudio, user.IsSeparateEntrance, user.AcknowledgeHomeStudioAgreement,
		user.IsStudioAdaAccessible, user.AgreeToVolunteerAgreement,
		marshalStrings(user.StudioSpaceImages), marshalStrings(user.ProofOfInsuranceImages),
		user.SeekingEmployment, user.LinkedinProfile, user.Eligibility, user.MilitaryBranch, user.MilitaryETSDate,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil && s.dialect.IsDuplicateError(err) {
		return storage.ErrDuplicate
	}
	return err
}

// GetUserByID 通过 ID 查找用户
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+userColumns+` FROM users WHERE id = $1`), id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	return u, err
}

// GetUserByEmail 通过邮箱查找用户（不区分大小写）
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+userColumns+` FROM users WHERE email = $1`),
		strings.ToLower(email)))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	return u, err
}

// UpdateUser 全量更新用户（密码与创建时间除外）
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET
		email = $1, first_name = $2, last_name = $3, role = $4, status = $5, phone_number = $6,
		street_address1 = $7, street_address2 = $8, city = $9, state = $10, postal_code = $11,
		latitude = $12, longitude = $13,
		referred_by = $14, reason_for_denying = $15, website = $16, open_to_referrals = $17,
		mailing_street_address1 = $18, mailing_street_address2 = $19, mailing_city = $20,
		mailing_state = $21, mailing_postal_code = $22,
		closest_base = $23, agree_to_criminal_background_check = $24, social_media = $25,
		is_home_studio = $26, part_of_home_studio = $27, is_separate_entrance = $28,
		acknowledge_home_studio_agreement = $29, is_studio_ada_accessible = $30,
		agree_to_volunteer_agreement = $31,
		studio_space_images = $32, proof_of_insurance_images = $33,
		seeking_employment = $34, linkedin_profile = $35, eligibility = $36,
		military_branch = $37, military_ets_date = $38,
		updated_at = $39
		WHERE id = $40`),
		strings.ToLower(user.Email), user.FirstName, user.LastName, user.Role, user.Status, user.PhoneNumber,
		user.StreetAddress1, user.StreetAddress2, user.City, user.State, user.PostalCode,
		user.Latitude, user.Longitude,
		user.ReferredBy, user.ReasonForDenying, user.Website, user.OpenToReferrals,
		user.MailingStreetAddress1, user.MailingStreetAddress2, user.MailingCity,
		user.MailingState, user.MailingPostalCode,
		user.ClosestBase, user.AgreeToCriminalBackgroundCheck, user.SocialMedia,
		user.IsHomeStudio, user.PartOfHomeStudio, user.IsSeparateEntrance,
		user.AcknowledgeHomeStudioAgreement, user.IsStudioAdaAccessible,
		user.AgreeToVolunteerAgreement,
		marshalStrings(user.StudioSpaceImages), marshalStrings(user.ProofOfInsuranceImages),
		user.SeekingEmployment, user.LinkedinProfile, user.Eligibility,
		user.MilitaryBranch, user.MilitaryETSDate,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if s.dialect.IsDuplicateError(err) {
			return storage.ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateUserPassword 更新用户密码
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`),
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser 删除用户
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = $1`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUsers 分页列出用户
func (s *Store) ListUsers(ctx context.Context, filter storage.UserFilter) (*storage.Page[*model.User], error) {
	var conditions []string
	var args []any
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}

	if filter.Role != "" {
		conditions = append(conditions, "role = "+next())
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+next())
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		p1, p2, p3 := next(), next(), next()
		conditions = append(conditions,
			"(LOWER(first_name) LIKE "+p1+" OR LOWER(last_name) LIKE "+p2+" OR LOWER(email) LIKE "+p3+")")
		like := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, like, like, like)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM users`+where), args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + next()
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET " + next()
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return &storage.Page[*model.User]{Items: users, Total: total}, rows.Err()
}

// SearchUsers 按姓名或邮箱前缀匹配
func (s *Store) SearchUsers(ctx context.Context, role model.UserRole, query string, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 10
	}
	like := strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users
		WHERE role = $1
		  AND (LOWER(first_name) LIKE $2 OR LOWER(last_name) LIKE $3 OR LOWER(email) LIKE $4)
		ORDER BY last_name, first_name LIMIT $5`),
		role, like, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const earthRadiusMiles = 3958.8

// haversineMiles 两点球面距离（英里）
func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NearbyPhotographers 返回半径内开放推荐的已审核摄影师，按距离升序
//
// SQL 侧用经纬度包围盒做粗筛（命中坐标索引），精确球面距离
// 在应用层计算后再过滤排序，避免依赖数据库三角函数。
func (s *Store) NearbyPhotographers(ctx context.Context, lat, lng, radiusMiles float64, limit int) ([]*model.NearbyPhotographer, error) {
	if limit <= 0 {
		limit = 20
	}
	latDelta := radiusMiles / 69.0 // 1 纬度约 69 英里
	lngDelta := latDelta
	if cosLat := math.Cos(lat * math.Pi / 180); cosLat > 0.01 {
		lngDelta = latDelta / cosLat
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
			id, first_name, last_name, email, phone_number,
			street_address1, street_address2, city, state, postal_code,
			latitude, longitude
		FROM users
		WHERE role = $1 AND status = $2
		  AND open_to_referrals = `+s.dialect.BooleanLiteral(true)+`
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN $3 AND $4
		  AND longitude BETWEEN $5 AND $6`),
		model.UserRolePhotographer, model.UserStatusApproved,
		lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*model.NearbyPhotographer
	for rows.Next() {
		p := &model.NearbyPhotographer{}
		if err := rows.Scan(
			&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber,
			&p.StreetAddress1, &p.StreetAddress2, &p.City, &p.State, &p.PostalCode,
			&p.Latitude, &p.Longitude,
		); err != nil {
			return nil, err
		}
		p.Distance = haversineMiles(lat, lng, p.Latitude, p.Longitude)
		if p.Distance <= radiusMiles {
			result = append(result, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Distance < result[j].Distance })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
