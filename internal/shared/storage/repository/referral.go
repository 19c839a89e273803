package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

const referralColumns = `id, photographer_id, veteran_id, status, created_at, updated_at`

// scanReferral 按 referralColumns 顺序扫描一行推荐
func scanReferral(row rowScanner) (*model.Referral, error) {
	r := &model.Referral{}
	err := row.Scan(&r.ID, &r.PhotographerID, &r.VeteranID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateReferral 创建推荐
func (s *Store) CreateReferral(ctx context.Context, r *model.Referral) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = model.ReferralStatusMatched
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO referrals (`+referralColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`),
		r.ID, r.PhotographerID, r.VeteranID, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// GetReferralByID 通过 ID 查找推荐（附带双方联系人摘要）
func (s *Store) GetReferralByID(ctx context.Context, id string) (*model.Referral, error) {
	r, err := scanReferral(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+referralColumns+` FROM referrals WHERE id = $1`), id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachReferralParties(ctx, []*model.Referral{r}); err != nil {
		return nil, err
	}
	return r, nil
}

// CancelReferral 取消推荐
func (s *Store) CancelReferral(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE referrals
		SET status = $1, updated_at = $2 WHERE id = $3`),
		model.ReferralStatusCanceled, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListReferrals 分页列出推荐
func (s *Store) ListReferrals(ctx context.Context, filter storage.ReferralFilter) (*storage.Page[*model.Referral], error) {
	var conditions []string
	var args []any
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}

	if filter.Status != "" {
		conditions = append(conditions, "status = "+next())
		args = append(args, filter.Status)
	}
	if filter.PhotographerID != "" {
		conditions = append(conditions, "photographer_id = "+next())
		args = append(args, filter.PhotographerID)
	}
	if filter.VeteranID != "" {
		conditions = append(conditions, "veteran_id = "+next())
		args = append(args, filter.VeteranID)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM referrals`+where), args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT ` + referralColumns + ` FROM referrals` + where + ` ORDER BY created_at DESC`
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

	referrals := []*model.Referral{}
	for rows.Next() {
		r, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachReferralParties(ctx, referrals); err != nil {
		return nil, err
	}
	return &storage.Page[*model.Referral]{Items: referrals, Total: total}, nil
}

// attachReferralParties 批量补全推荐双方的联系人摘要
func (s *Store) attachReferralParties(ctx context.Context, referrals []*model.Referral) error {
	if len(referrals) == 0 {
		return nil
	}
	ids := map[string]bool{}
	for _, r := range referrals {
		ids[r.PhotographerID] = true
		ids[r.VeteranID] = true
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	i := 0
	for id := range ids {
		i++
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
			id, first_name, last_name, email, phone_number,
			street_address1, street_address2, city, state, postal_code
		FROM users WHERE id IN (`+strings.Join(placeholders, ", ")+`)`), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	parties := map[string]*model.SessionParty{}
	for rows.Next() {
		p := &model.SessionParty{}
		if err := rows.Scan(
			&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber,
			&p.StreetAddress1, &p.StreetAddress2, &p.City, &p.State, &p.PostalCode,
		); err != nil {
			return err
		}
		parties[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range referrals {
		r.Photographer = parties[r.PhotographerID]
		r.Veteran = parties[r.VeteranID]
	}
	return nil
}
