// Package sqlite SQLite 数据库驱动
//
// 提供 SQLite 连接管理、方言实现和自动 Schema 迁移。
// 适用于开发、测试和轻量级部署场景。
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"patriots-admin/internal/shared/storage/dbutil"

	_ "modernc.org/sqlite"
)

// Dialect SQLite 方言实现
type Dialect struct{}

var _ dbutil.Dialect = (*Dialect)(nil)

func (d *Dialect) DriverType() dbutil.DriverType {
	return dbutil.DriverSQLite
}

func (d *Dialect) Rebind(query string) string {
	return dbutil.StripPgCasts(dbutil.RebindToQuestion(query))
}

func (d *Dialect) CurrentTimestamp() string {
	return "datetime('now')"
}

func (d *Dialect) BooleanLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d *Dialect) UpsertConflict(conflictColumn string, updateExprs []string) string {
	result := fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET ", conflictColumn)
	for i, expr := range updateExprs {
		if i > 0 {
			result += ", "
		}
		result += expr
	}
	return result
}

func (d *Dialect) IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (d *Dialect) AutoMigrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Open 创建 SQLite 数据库连接
// dsn 示例: "file:patriots.db?cache=shared&mode=rwc" 或 ":memory:"
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite 优化设置
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return db, nil
}

// NewDialect 创建 SQLite 方言
func NewDialect() *Dialect {
	return &Dialect{}
}

// schema SQLite 完整建表语句（等价于 PostgreSQL 迁移文件）
const schema = `
-- users
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(64) PRIMARY KEY,
    email VARCHAR(320) NOT NULL UNIQUE,
    password_hash VARCHAR(100) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    role VARCHAR(32) NOT NULL,
    status VARCHAR(32) NOT NULL DEFAULT 'pending',
    phone_number VARCHAR(32) DEFAULT '',

    street_address1 VARCHAR(200) DEFAULT '',
    street_address2 VARCHAR(200),
    city VARCHAR(100) DEFAULT '',
    state VARCHAR(32) DEFAULT '',
    postal_code VARCHAR(16) DEFAULT '',
    latitude REAL,
    longitude REAL,

    referred_by VARCHAR(200),
    reason_for_denying TEXT,

    website VARCHAR(500),
    open_to_referrals INTEGER NOT NULL DEFAULT 0,

    mailing_street_address1 VARCHAR(200),
    mailing_street_address2 VARCHAR(200),
    mailing_city VARCHAR(100),
    mailing_state VARCHAR(32),
    mailing_postal_code VARCHAR(16),
    closest_base VARCHAR(200),
    agree_to_criminal_background_check INTEGER,
    social_media VARCHAR(500),
    is_home_studio INTEGER,
    part_of_home_studio VARCHAR(200),
    is_separate_entrance INTEGER,
    acknowledge_home_studio_agreement INTEGER,
    is_studio_ada_accessible INTEGER,
    agree_to_volunteer_agreement INTEGER,
    studio_space_images TEXT,
    proof_of_insurance_images TEXT,

    seeking_employment INTEGER,
    linkedin_profile VARCHAR(500),
    eligibility VARCHAR(64),
    military_branch VARCHAR(64),
    military_ets_date VARCHAR(32),

    created_at DATETIME DEFAULT (datetime('now')),
    updated_at DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status);
CREATE INDEX IF NOT EXISTS idx_users_coords ON users(latitude, longitude);

-- sessions
CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    note TEXT,
    status VARCHAR(32) NOT NULL DEFAULT 'requested',
    date DATETIME NOT NULL,
    expiration_date DATETIME,

    outcome_photographer VARCHAR(64),
    other_outcome_photographer TEXT,
    rate_photographer INTEGER,
    photographer_feedback TEXT,
    outcome_veteran VARCHAR(64),
    other_outcome_veteran TEXT,
    rate_veteran INTEGER,
    veteran_feedback TEXT,

    photographer_id VARCHAR(64) NOT NULL REFERENCES users(id),
    veteran_id VARCHAR(64) NOT NULL REFERENCES users(id),

    created_at DATETIME DEFAULT (datetime('now')),
    updated_at DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_photographer ON sessions(photographer_id);
CREATE INDEX IF NOT EXISTS idx_sessions_veteran ON sessions(veteran_id);

-- referrals
CREATE TABLE IF NOT EXISTS referrals (
    id VARCHAR(64) PRIMARY KEY,
    photographer_id VARCHAR(64) NOT NULL REFERENCES users(id),
    veteran_id VARCHAR(64) NOT NULL REFERENCES users(id),
    status VARCHAR(32) NOT NULL DEFAULT 'matched',
    created_at DATETIME DEFAULT (datetime('now')),
    updated_at DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_referrals_photographer ON referrals(photographer_id);
CREATE INDEX IF NOT EXISTS idx_referrals_veteran ON referrals(veteran_id);
`
