package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------

// withConn acquires a dedicated connection for one operation and always releases it.
func withConn(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) error {
	if db == nil {
		return fmt.Errorf("store is not initialized")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// -----------------------------------------------------------------------------

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
