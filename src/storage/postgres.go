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

	"github.com/lib/pq"
)

var _ interfaces.IDocumentStore = (*PostgresStore)(nil)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) *PostgresStore {
	schema := cfg.Storage.Schema
	if schema == "" {
		schema = "public"
	}
	return &PostgresStore{
		Config: cfg,
		Schema: schema,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(ctx); err != nil {
		return err
	}

	d.Logger.Info("PostgresStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) createTables(ctx context.Context) error {
	for _, table := range utils.KnownTables {
		name, _ := d.tableName(table)
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				data TEXT NOT NULL,
				expiration TIMESTAMPTZ
			);
		`, name)
		if _, err := d.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) tableName(table string) (string, error) {
	if !utils.IsKnownTable(table) {
		return "", fmt.Errorf("unknown table %q", table)
	}
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier(table), nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Get(ctx context.Context, table, id string) ([]byte, bool, error) {
	name, err := d.tableName(table)
	if err != nil {
		return nil, false, err
	}

	var data string
	err = withConn(ctx, d.DB, func(conn *sql.Conn) error {
		query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1 AND (expiration IS NULL OR expiration > NOW())`, name)
		return conn.QueryRowContext(ctx, query, id).Scan(&data)
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

func (d *PostgresStore) Upsert(ctx context.Context, table, id string, payload []byte, expiration *time.Time) error {
	name, err := d.tableName(table)
	if err != nil {
		return err
	}

	return withConn(ctx, d.DB, func(conn *sql.Conn) error {
		query := fmt.Sprintf(`
			INSERT INTO %s (id, data, expiration)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				data = EXCLUDED.data,
				expiration = EXCLUDED.expiration
		`, name)
		_, err := conn.ExecContext(ctx, query, id, string(payload), nullableTime(expiration))
		return err
	})
}

// -----------------------------------------------------------------------------

// PurgeExpired deletes rows whose expiration has passed. Reads already hide them.
func (d *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range utils.KnownTables {
		name, _ := d.tableName(table)
		err := withConn(ctx, d.DB, func(conn *sql.Conn) error {
			res, err := conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expiration IS NOT NULL AND expiration <= NOW()`, name))
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			total += n
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", name, err)
		}
	}
	return total, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
