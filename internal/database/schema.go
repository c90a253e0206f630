package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the version written to the meta table by Migrate.
const SchemaVersion = 1

// Migrate creates the tables the service needs when the stored schema
// version is older than SchemaVersion.  It is safe to call on every start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	var metaDDL, upsert string
	var stmts []string
	switch d {
	case SQLite:
		metaDDL = `CREATE TABLE IF NOT EXISTS meta (meta_key TEXT PRIMARY KEY, meta_value TEXT)`
		upsert = `INSERT INTO meta(meta_key, meta_value) VALUES('schema_version', ?)
			ON CONFLICT(meta_key) DO UPDATE SET meta_value = excluded.meta_value`
		stmts = sqliteSchema
	case MySQL, "":
		metaDDL = `CREATE TABLE IF NOT EXISTS meta (meta_key VARCHAR(64) PRIMARY KEY, meta_value VARCHAR(255))`
		upsert = `INSERT INTO meta(meta_key, meta_value) VALUES('schema_version', ?)
			ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)`
		stmts = mysqlSchema
	default:
		return fmt.Errorf("unsupported dialect %q", d)
	}

	if _, err := db.ExecContext(ctx, metaDDL); err != nil {
		return fmt.Errorf("create meta: %w", err)
	}
	var current int
	_ = db.QueryRowContext(ctx, `SELECT meta_value FROM meta WHERE meta_key = 'schema_version'`).Scan(&current)
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, upsert, SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('member','trainer','admin')),
		membership_type TEXT NOT NULL DEFAULT 'standard' CHECK (membership_type IN ('standard','premium','elite')),
		membership_status TEXT NOT NULL DEFAULT 'active' CHECK (membership_status IN ('active','inactive','expired','pending')),
		guest_passes_remaining INTEGER NOT NULL DEFAULT 0 CHECK (guest_passes_remaining >= 0),
		personal_training_sessions_remaining INTEGER NOT NULL DEFAULT 0 CHECK (personal_training_sessions_remaining >= 0),
		is_active INTEGER NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('group','private-coach','private-session')),
		session_date DATE NOT NULL,
		start_time TEXT NOT NULL,
		start_minutes INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 60 CHECK (duration_minutes BETWEEN 15 AND 180),
		max_capacity INTEGER NOT NULL CHECK (max_capacity >= 1),
		current_bookings INTEGER NOT NULL DEFAULT 0 CHECK (current_bookings >= 0 AND current_bookings <= max_capacity),
		trainer_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		price_cents INTEGER NOT NULL DEFAULT 0 CHECK (price_cents >= 0),
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT 'Main Gym Area',
		difficulty TEXT NOT NULL DEFAULT 'beginner' CHECK (difficulty IN ('beginner','intermediate','advanced')),
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(session_date, is_active)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		booking_date DATETIME NOT NULL,
		is_paid INTEGER NOT NULL DEFAULT 0,
		payment_amount_cents INTEGER NOT NULL DEFAULT 0 CHECK (payment_amount_cents >= 0),
		training_session_used INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'confirmed' CHECK (status IN ('confirmed','pending','cancelled','completed')),
		attendance TEXT CHECK (attendance IS NULL OR attendance IN ('attended','no-show','cancelled')),
		notes TEXT NOT NULL DEFAULT '',
		cancellation_reason TEXT,
		cancelled_at DATETIME,
		cancelled_by INTEGER,
		check_in_time DATETIME,
		check_out_time DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_session ON reservations(session_id, status)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('member','trainer','admin') NOT NULL DEFAULT 'member',
		membership_type ENUM('standard','premium','elite') NOT NULL DEFAULT 'standard',
		membership_status ENUM('active','inactive','expired','pending') NOT NULL DEFAULT 'active',
		guest_passes_remaining INT UNSIGNED NOT NULL DEFAULT 0,
		personal_training_sessions_remaining INT UNSIGNED NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		last_login_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_rt_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		type ENUM('group','private-coach','private-session') NOT NULL,
		session_date DATE NOT NULL,
		start_time VARCHAR(16) NOT NULL,
		start_minutes SMALLINT UNSIGNED NOT NULL DEFAULT 0,
		duration_minutes INT NOT NULL DEFAULT 60,
		max_capacity INT UNSIGNED NOT NULL,
		current_bookings INT UNSIGNED NOT NULL DEFAULT 0,
		trainer_id BIGINT UNSIGNED NULL,
		price_cents INT UNSIGNED NOT NULL DEFAULT 0,
		description VARCHAR(1000) NOT NULL DEFAULT '',
		location VARCHAR(150) NOT NULL DEFAULT 'Main Gym Area',
		difficulty ENUM('beginner','intermediate','advanced') NOT NULL DEFAULT 'beginner',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_sessions_date (session_date, is_active),
		CONSTRAINT chk_sessions_duration CHECK (duration_minutes BETWEEN 15 AND 180),
		CONSTRAINT chk_sessions_capacity CHECK (max_capacity >= 1 AND current_bookings <= max_capacity),
		CONSTRAINT fk_sessions_trainer FOREIGN KEY (trainer_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		session_id BIGINT UNSIGNED NOT NULL,
		booking_date DATETIME NOT NULL,
		is_paid TINYINT(1) NOT NULL DEFAULT 0,
		payment_amount_cents INT UNSIGNED NOT NULL DEFAULT 0,
		training_session_used TINYINT(1) NOT NULL DEFAULT 0,
		status ENUM('confirmed','pending','cancelled','completed') NOT NULL DEFAULT 'confirmed',
		attendance ENUM('attended','no-show','cancelled') NULL,
		notes VARCHAR(500) NOT NULL DEFAULT '',
		cancellation_reason VARCHAR(200) NULL,
		cancelled_at DATETIME NULL,
		cancelled_by BIGINT UNSIGNED NULL,
		check_in_time DATETIME NULL,
		check_out_time DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_reservations_user_session (user_id, session_id),
		KEY idx_reservations_session (session_id, status),
		CONSTRAINT fk_res_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_res_session FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
