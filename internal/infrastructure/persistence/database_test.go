package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/connector/internal/infrastructure/config"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMock(t, true)
	return &Database{DB: db}, mock
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	assert.ErrorIs(t, db.Ping(context.Background()), assert.AnError)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	db, mock := newMockDatabase(t)
	sqlDB, err := db.sqlDB()
	require.NoError(t, err)

	configurePool(sqlDB, &config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: 5, ConnMaxIdleTime: 1})
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)

	mock.ExpectClose()
	require.NoError(t, db.Close())
}
