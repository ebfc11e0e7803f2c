package database

import (
	"context"
	"fmt"

	"ledger/src/config"
	aws_handler "ledger/src/utils/aws"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SecretReader resolves secrets by id, e.g. AWS Secrets Manager.
type SecretReader interface {
	GetSecretValue(ctx context.Context, secretId string) (string, error)
}

// DSN builds the connection string. When PasswordSecretID is set the password
// is read from secrets instead of the config file.
func DSN(ctx context.Context, cfg *config.Config, secrets SecretReader) (string, error) {
	sql := cfg.Databases.SQL
	if sql.ConnectionString != "" {
		return sql.ConnectionString, nil
	}
	password := sql.Password
	if sql.PasswordSecretID != "" {
		if secrets == nil {
			return "", fmt.Errorf("password secret %s configured without a secret reader", sql.PasswordSecretID)
		}
		secret, err := secrets.GetSecretValue(ctx, sql.PasswordSecretID)
		if err != nil {
			return "", fmt.Errorf("reading database password: %w", err)
		}
		password = secret
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		sql.Host,
		sql.Username,
		password,
		sql.Database,
		sql.Port), nil
}

func SetupDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	var secrets SecretReader
	if cfg.Databases.SQL.PasswordSecretID != "" {
		handler, err := aws_handler.NewAWSHandler(cfg.AWS)
		if err != nil {
			return nil, err
		}
		secrets = handler.SecretManager
	}
	dsn, err := DSN(ctx, cfg, secrets)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.Databases.SQL.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Databases.SQL.MaxConns
	}
	if cfg.Databases.SQL.MinConns > 0 {
		poolConfig.MinConns = cfg.Databases.SQL.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
