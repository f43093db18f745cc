package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/db"
)

func TestRegisteredDBTypes(t *testing.T) {
	types := db.GetRegisteredDBTypes()
	assert.Contains(t, types, configs.SQLite)
	assert.Contains(t, types, configs.PostgreSQL)
	assert.Contains(t, types, configs.Pg)
	assert.Contains(t, types, configs.MySQL)
	assert.Contains(t, types, configs.MariaDB)
}

func TestNewSQLiteMemory(t *testing.T) {
	cfg := &configs.DBConfig{
		Type:         configs.SQLite,
		Database:     ":memory:",
		MaxIdleConns: 1,
		BatchSize:    100,
		LogLevel:     "silent",
	}

	client, err := db.New(context.Background(), cfg)
	require.NoError(t, err)

	defer client.Close()

	require.NoError(t, client.HealthCheck(context.Background()))

	var one int
	require.NoError(t, client.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := db.New(context.Background(), &configs.DBConfig{Type: "oracle", Database: "x"})
	require.Error(t, err)
}
