package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// DSN builds the driver connection string.
func DSN(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	// clientFoundRows=true -> RowsAffected counts matched rows, not changed ones
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, host, port, name)
}

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS trains (
		number          INT          NOT NULL PRIMARY KEY,
		name            VARCHAR(100) NOT NULL,
		source          VARCHAR(100) NOT NULL,
		destination     VARCHAR(100) NOT NULL,
		fare_cents      BIGINT       NOT NULL,
		total_seats     INT          NOT NULL,
		available_seats INT          NOT NULL,
		instance_id     CHAR(36)     NOT NULL DEFAULT '',
		CHECK (available_seats >= 0 AND available_seats <= total_seats)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		pnr               INT          NOT NULL PRIMARY KEY,
		owner             VARCHAR(64)  NOT NULL,
		train_number      INT          NOT NULL,
		train_name        VARCHAR(100) NOT NULL,
		source            VARCHAR(100) NOT NULL,
		destination       VARCHAR(100) NOT NULL,
		fare_cents        BIGINT       NOT NULL,
		train_instance_id CHAR(36)     NOT NULL DEFAULT '',
		created_at        DATETIME     NOT NULL,
		KEY idx_reservations_owner (owner)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservation_passengers (
		pnr      INT          NOT NULL,
		position INT          NOT NULL,
		name     VARCHAR(100) NOT NULL,
		age      INT          NOT NULL,
		gender   CHAR(1)      NOT NULL,
		PRIMARY KEY (pnr, position),
		CONSTRAINT fk_passengers_reservation FOREIGN KEY (pnr) REFERENCES reservations (pnr) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		username      VARCHAR(64)  NOT NULL PRIMARY KEY,
		password_hash VARCHAR(100) NOT NULL,
		role          VARCHAR(16)  NOT NULL,
		created_at    DATETIME     NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the MySQL backend needs.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
