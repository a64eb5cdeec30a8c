// Package mysql implements store.Store on MySQL/MariaDB.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/campuskit/facemark/internal/config"
)

// Pool manages a MySQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool opens and pings a MySQL connection pool.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.DSN == "" {
		return nil, errors.New("MySQL DSN is required")
	}

	db, err := sql.Open("mysql", cfg.DSN+"?parseTime=true")
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &Pool{db: db}, nil
}

// Migrate creates the schema if missing. The unique key on
// (subject_id, date) is what makes concurrent attendance writes safe.
func (p *Pool) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			subject_id    VARCHAR(32) PRIMARY KEY,
			full_name     VARCHAR(100) NOT NULL,
			group_label   VARCHAR(50)  NOT NULL DEFAULT '',
			email         VARCHAR(100) NOT NULL DEFAULT '',
			phone         VARCHAR(20)  NOT NULL DEFAULT '',
			status        VARCHAR(10)  NOT NULL DEFAULT 'active',
			face_encoding MEDIUMBLOB   NULL,
			registered_at TIMESTAMP    DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id          BIGINT AUTO_INCREMENT PRIMARY KEY,
			subject_id  VARCHAR(32)  NOT NULL,
			full_name   VARCHAR(100) NOT NULL,
			group_label VARCHAR(50)  NOT NULL DEFAULT '',
			date        DATE         NOT NULL,
			time_in     TIME         NOT NULL,
			time_out    TIME         NULL,
			status      VARCHAR(10)  NOT NULL,
			UNIQUE KEY uq_subject_date (subject_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id         BIGINT AUTO_INCREMENT PRIMARY KEY,
			actor      VARCHAR(50)  NOT NULL,
			action     VARCHAR(50)  NOT NULL,
			detail     VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP    DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
