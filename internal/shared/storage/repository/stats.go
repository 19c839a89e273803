package repository

import (
	"context"
	"time"

	"patriots-admin/internal/shared/model"
	"patriots-admin/internal/shared/storage"
)

// countBy 按列分组计数
func (s *Store) countBy(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}

// AdminStats 管理面板统计
func (s *Store) AdminStats(ctx context.Context) (*storage.AdminStats, error) {
	stats := &storage.AdminStats{}

	var err error
	if stats.UsersByRole, err = s.countBy(ctx,
		`SELECT role, COUNT(*) FROM users GROUP BY role`); err != nil {
		return nil, err
	}
	if stats.UsersByStatus, err = s.countBy(ctx,
		`SELECT status, COUNT(*) FROM users GROUP BY status`); err != nil {
		return nil, err
	}
	if stats.SessionsByStatus, err = s.countBy(ctx,
		`SELECT status, COUNT(*) FROM sessions GROUP BY status`); err != nil {
		return nil, err
	}

	for _, n := range stats.UsersByRole {
		stats.TotalUsers += n
	}

	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM users
		WHERE role = $1 AND status = $2`),
		model.UserRolePhotographer, model.UserStatusPending,
	).Scan(&stats.PendingPhotographers); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM referrals
		WHERE status = $1`), model.ReferralStatusMatched,
	).Scan(&stats.ActiveReferrals); err != nil {
		return nil, err
	}

	return stats, nil
}

// MemberStats 个人面板统计（摄影师 / 老兵视角）
func (s *Store) MemberStats(ctx context.Context, userID string) (*storage.MemberStats, error) {
	stats := &storage.MemberStats{}

	var err error
	if stats.SessionsByStatus, err = s.countBy(ctx, `SELECT status, COUNT(*) FROM sessions
		WHERE photographer_id = $1 OR veteran_id = $2 GROUP BY status`,
		userID, userID); err != nil {
		return nil, err
	}
	stats.CompletedTotal = stats.SessionsByStatus[string(model.SessionStatusCompleted)]

	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM sessions
		WHERE (photographer_id = $1 OR veteran_id = $2)
		  AND status = $3 AND date >= $4`),
		userID, userID, model.SessionStatusScheduled, time.Now().UTC(),
	).Scan(&stats.UpcomingTotal); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM referrals
		WHERE (photographer_id = $1 OR veteran_id = $2) AND status = $3`),
		userID, userID, model.ReferralStatusMatched,
	).Scan(&stats.ActiveReferrals); err != nil {
		return nil, err
	}

	return stats, nil
}
