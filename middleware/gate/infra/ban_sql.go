package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blog-edge/middleware/gate/domain"
)

const createBanTableSQL = `
CREATE TABLE IF NOT EXISTS edge_bans (
    ip VARCHAR(64) NOT NULL PRIMARY KEY,
    reason VARCHAR(512) NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

// SQLBanStore guarda os banimentos numa tabela relacional.
//
// Dialetos: "postgres" (lib/pq), "mysql" (go-sql-driver/mysql, DSN com parseTime=true)
// e "sqlite3" (mattn/go-sqlite3). O driver deve ser importado por quem abre o *sql.DB.
type SQLBanStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

func NewSQLBanStore(ctx context.Context, db *sql.DB, dialect string) (*SQLBanStore, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite3)", dialect)
	}

	s := &SQLBanStore{db: db, dialect: dialect, now: time.Now}
	if _, err := db.ExecContext(ctx, createBanTableSQL); err != nil {
		return nil, fmt.Errorf("create edge_bans table: %w", err)
	}
	return s, nil
}

func (s *SQLBanStore) UpsertBan(ctx context.Context, ip, reason string) error {
	var q string
	switch s.dialect {
	case "postgres":
		q = `INSERT INTO edge_bans (ip, reason, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (ip) DO UPDATE SET reason = EXCLUDED.reason`
	case "mysql":
		q = `INSERT INTO edge_bans (ip, reason, created_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE reason = VALUES(reason)`
	default:
		q = `INSERT INTO edge_bans (ip, reason, created_at) VALUES (?, ?, ?)
			ON CONFLICT (ip) DO UPDATE SET reason = excluded.reason`
	}

	if _, err := s.db.ExecContext(ctx, q, ip, reason, s.now().UTC()); err != nil {
		return fmt.Errorf("upsert ban %s: %w", ip, err)
	}
	return nil
}

func (s *SQLBanStore) ListBans(ctx context.Context) ([]domain.BanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ip, reason, created_at FROM edge_bans ORDER BY created_at, ip`)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	var out []domain.BanRecord
	for rows.Next() {
		var rec domain.BanRecord
		if err := rows.Scan(&rec.IP, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	return out, nil
}

func (s *SQLBanStore) DeleteBan(ctx context.Context, ip string) error {
	q := `DELETE FROM edge_bans WHERE ip = ?`
	if s.dialect == "postgres" {
		q = `DELETE FROM edge_bans WHERE ip = $1`
	}
	if _, err := s.db.ExecContext(ctx, q, ip); err != nil {
		return fmt.Errorf("delete ban %s: %w", ip, err)
	}
	return nil
}
