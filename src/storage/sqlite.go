package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"market-gateway/src/utils"
	"time"

	_ "modernc.org/sqlite"
)

var _ interfaces.IDocumentStore = (*SQLiteStore)(nil)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	// One writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	for _, table := range utils.KnownTables {
		// SQLite types: TEXT for payload, INTEGER unix milliseconds for expiration
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %q (
				id TEXT PRIMARY KEY,
				data TEXT NOT NULL,
				expiration INTEGER
			);
		`, table)
		if _, err := d.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create %s: %w", table, err)
		}
	}

	d.Logger.Info("SQLiteStore initialized successfully (Path: %s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Get(ctx context.Context, table, id string) ([]byte, bool, error) {
	if !utils.IsKnownTable(table) {
		return nil, false, fmt.Errorf("unknown table %q", table)
	}

	var data string
	err := withConn(ctx, d.DB, func(conn *sql.Conn) error {
		query := fmt.Sprintf(`SELECT data FROM %q WHERE id = ? AND (expiration IS NULL OR expiration > ?)`, table)
		return conn.QueryRowContext(ctx, query, id, time.Now().UnixMilli()).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(data), true, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Upsert(ctx context.Context, table, id string, payload []byte, expiration *time.Time) error {
	if !utils.IsKnownTable(table) {
		return fmt.Errorf("unknown table %q", table)
	}

	var exp interface{}
	if expiration != nil {
		exp = expiration.UnixMilli()
	}

	return withConn(ctx, d.DB, func(conn *sql.Conn) error {
		query := fmt.Sprintf(`
			INSERT INTO %q (id, data, expiration)
			VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				data = excluded.data,
				expiration = excluded.expiration
		`, table)
		_, err := conn.ExecContext(ctx, query, id, string(payload), exp)
		return err
	})
}

// -----------------------------------------------------------------------------

// PurgeExpired deletes rows whose expiration has passed. Reads already hide them.
func (d *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	var total int64
	now := time.Now().UnixMilli()
	for _, table := range utils.KnownTables {
		err := withConn(ctx, d.DB, func(conn *sql.Conn) error {
			res, err := conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q WHERE expiration IS NOT NULL AND expiration <= ?`, table), now)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			total += n
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", table, err)
		}
	}
	return total, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
