package database_test

import (
	"context"
	"errors"
	"testing"

	"ledger/src/config"
	"ledger/src/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
}

func (f fakeSecrets) GetSecretValue(_ context.Context, id string) (string, error) {
	v, ok := f.values[id]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func sqlConfig(sql config.SQLConfig) *config.Config {
	return &config.Config{Databases: config.DatabasesConfig{SQL: sql}}
}

func TestDSN(t *testing.T) {
	ctx := context.Background()
	base := config.SQLConfig{Host: "db", Port: "5432", Username: "ledger", Password: "plain", Database: "ledger"}

	t.Run("should prefer an explicit connection string", func(t *testing.T) {
		sql := base
		sql.ConnectionString = "postgres://x"
		dsn, err := database.DSN(ctx, sqlConfig(sql), nil)
		require.NoError(t, err)
		assert.Equal(t, "postgres://x", dsn)
	})

	t.Run("should build the dsn from fields", func(t *testing.T) {
		dsn, err := database.DSN(ctx, sqlConfig(base), nil)
		require.NoError(t, err)
		assert.Equal(t, "host=db user=ledger password=plain dbname=ledger port=5432 sslmode=disable", dsn)
	})

	t.Run("should read the password from the secret store", func(t *testing.T) {
		sql := base
		sql.PasswordSecretID = "ledger/db"
		dsn, err := database.DSN(ctx, sqlConfig(sql), fakeSecrets{values: map[string]string{"ledger/db": "s3cret"}})
		require.NoError(t, err)
		assert.Contains(t, dsn, "password=s3cret")

		_, err = database.DSN(ctx, sqlConfig(sql), fakeSecrets{})
		require.Error(t, err)

		_, err = database.DSN(ctx, sqlConfig(sql), nil)
		require.Error(t, err)
	})
}
