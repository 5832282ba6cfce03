package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
        id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        name            VARCHAR(120)    NOT NULL,
        capacity        INT             NOT NULL,
        total_quantity  INT             NOT NULL,
        price_per_night DECIMAL(12,2)   NOT NULL,
        created_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        UNIQUE KEY uq_rooms_name (name),
        CHECK (capacity >= 1),
        CHECK (total_quantity >= 0)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
        id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        room_id           BIGINT UNSIGNED NOT NULL,
        arrival_date      DATE            NOT NULL,
        departure_date    DATE            NOT NULL,
        number_of_guests  INT             NOT NULL,
        total_price       DECIMAL(12,2)   NOT NULL,
        guest_name        VARCHAR(200)    NOT NULL,
        guest_email       VARCHAR(255)    NOT NULL,
        payment_reference VARCHAR(128)    NULL,
        payment_id        VARCHAR(128)    NULL,
        payment_status    ENUM('PENDING','PAID','FAILED','CANCELLED') NOT NULL DEFAULT 'PENDING',
        hold_expires_at   DATETIME        NULL,
        created_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        UNIQUE KEY uq_bookings_payment_reference (payment_reference),
        KEY idx_bookings_room_dates (room_id, arrival_date, departure_date),
        KEY idx_bookings_status (payment_status),
        CONSTRAINT fk_bookings_room FOREIGN KEY (room_id) REFERENCES rooms (id),
        CHECK (arrival_date < departure_date),
        CHECK (number_of_guests >= 1)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the rooms and bookings tables when they are absent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
