package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"localeditor/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	DSN string

	// Debug mode
	Debug bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Client wraps the PostgreSQL connection pool.
type Client struct {
	db     *sql.DB
	config *Config
}

// GetConfigFromEnv creates config from environment variables. DATABASE_URL
// wins over the individual DB_* variables.
func GetConfigFromEnv() *Config {
	dsn := utils.GetEnv("DATABASE_URL", "")
	if dsn == "" {
		user := utils.GetEnv("DB_USER", "postgres")
		password := utils.GetEnv("DB_PASSWORD", "")
		host := utils.GetEnv("DB_HOST", "localhost")
		port := utils.GetEnv("DB_PORT", "5432")
		dbName := utils.GetEnv("DB_NAME", "postgres")
		sslMode := utils.GetEnv("DB_SSLMODE", "disable")
		schema := utils.GetEnv("DB_SCHEMA", "public")

		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, password),
			Host:     host + ":" + port,
			Path:     "/" + dbName,
			RawQuery: url.Values{"sslmode": {sslMode}, "search_path": {schema}}.Encode(),
		}
		dsn = u.String()
	}

	debug, _ := strconv.ParseBool(utils.GetEnv("DEBUG_DB", "false"))

	return &Config{
		DSN:             dsn,
		Debug:           debug,
		MaxOpenConns:    utils.GetEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    utils.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: utils.GetEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: utils.GetEnvDuration("DB_CONN_MAX_IDLE_TIME", time.Minute),
	}
}

// NewClient opens the pool through the pgx stdlib driver and pings it.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		config = GetConfigFromEnv()
	}

	connConfig, err := pgx.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)

	// Pool settings for PgBouncer-style proxies
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	utils.Logger.Info("Database client created successfully",
		zap.String("database", connConfig.Database),
		zap.String("host", connConfig.Host),
		zap.Uint16("port", connConfig.Port),
		zap.Bool("debug", config.Debug),
	)

	return &Client{db: db, config: config}, nil
}

// DB returns the underlying pool.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Debug reports whether statements should be logged.
func (c *Client) Debug() bool {
	return c.config != nil && c.config.Debug
}

// Close closes the pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	utils.Logger.Info("Database client closed successfully")
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
