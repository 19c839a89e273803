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

// sessionColumns 会话表全部列，与 scanSession 的扫描顺序严格一致
const sessionColumns = `id, name, note, status, date, expiration_date,
	outcome_photographer, other_outcome_photographer, rate_photographer, photographer_feedback,
	outcome_veteran, other_outcome_veteran, rate_veteran, veteran_feedback,
	photographer_id, veteran_id, created_at, updated_at`

// scanSession 按 sessionColumns 顺序扫描一行会话
func scanSession(row rowScanner) (*model.Session, error) {
	sess := &model.Session{}
	err := row.Scan(
		&sess.ID, &sess.Name, &sess.Note, &sess.Status, &sess.Date, &sess.ExpirationDate,
		&sess.OutcomePhotographer, &sess.OtherOutcomePhotographer, &sess.RatePhotographer, &sess.PhotographerFeedback,
		&sess.OutcomeVeteran, &sess.OtherOutcomeVeteran, &sess.RateVeteran, &sess.VeteranFeedback,
		&sess.PhotographerID, &sess.VeteranID, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateSession 创建会话
//
// requested 状态自动写入过期时间，超时未排期由
// ExpireRequestedSessions 批量取消。
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	if sess.Status == model.SessionStatusRequested && sess.ExpirationDate == nil {
		exp := now.Add(model.RequestedSessionTTL)
		sess.ExpirationDate = &exp
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18)`),
		sess.ID, sess.Name, sess.Note, sess.Status, sess.Date, sess.ExpirationDate,
		sess.OutcomePhotographer, sess.OtherOutcomePhotographer, sess.RatePhotographer, sess.PhotographerFeedback,
		sess.OutcomeVeteran, sess.OtherOutcomeVeteran, sess.RateVeteran, sess.VeteranFeedback,
		sess.PhotographerID, sess.VeteranID, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

// GetSessionByID 通过 ID 查找会话（附带双方联系人摘要）
func (s *Store) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`), id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachParties(ctx, []*model.Session{sess}); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateSession 更新会话
func (s *Store) UpdateSession(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE sessions SET
		name = $1, note = $2, status = $3, date = $4, expiration_date = $5,
		outcome_photographer = $6, other_outcome_photographer = $7,
		rate_photographer = $8, photographer_feedback = $9,
		outcome_veteran = $10, other_outcome_veteran = $11,
		rate_veteran = $12, veteran_feedback = $13,
		photographer_id = $14, veteran_id = $15, updated_at = $16
		WHERE id = $17`),
		sess.Name, sess.Note, sess.Status, sess.Date, sess.ExpirationDate,
		sess.OutcomePhotographer, sess.OtherOutcomePhotographer,
		sess.RatePhotographer, sess.PhotographerFeedback,
		sess.OutcomeVeteran, sess.OtherOutcomeVeteran,
		sess.RateVeteran, sess.VeteranFeedback,
		sess.PhotographerID, sess.VeteranID, sess.UpdatedAt,
		sess.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteSession 删除会话
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE id = $1`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSessions 分页列出会话
func (s *Store) ListSessions(ctx context.Context, filter storage.SessionFilter) (*storage.Page[*model.Session], error) {
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
	if filter.ParticipantID != "" {
		p1, p2 := next(), next()
		conditions = append(conditions, "(photographer_id = "+p1+" OR veteran_id = "+p2+")")
		args = append(args, filter.ParticipantID, filter.ParticipantID)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM sessions`+where), args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions` + where + ` ORDER BY date DESC`
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

	sessions := []*model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachParties(ctx, sessions); err != nil {
		return nil, err
	}
	return &storage.Page[*model.Session]{Items: sessions, Total: total}, nil
}

// RecentSessions 参与者最近更新的会话
func (s *Store) RecentSessions(ctx context.Context, participantID string, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+sessionColumns+` FROM sessions
		WHERE photographer_id = $1 OR veteran_id = $2
		ORDER BY updated_at DESC LIMIT $3`),
		participantID, participantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachParties(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ExpireRequestedSessions 取消超过有效期仍未排期的请求，返回取消数量
func (s *Store) ExpireRequestedSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE sessions
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expiration_date IS NOT NULL AND expiration_date < $4`),
		model.SessionStatusCanceled, time.Now().UTC(),
		model.SessionStatusRequested, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// attachParties 批量补全会话双方的联系人摘要
func (s *Store) attachParties(ctx context.Context, sessions []*model.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := map[string]bool{}
	for _, sess := range sessions {
		ids[sess.PhotographerID] = true
		ids[sess.VeteranID] = true
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

	for _, sess := range sessions {
		sess.Photographer = parties[sess.PhotographerID]
		sess.Veteran = parties[sess.VeteranID]
	}
	return nil
}
