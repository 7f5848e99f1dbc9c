package database

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rozgar-signup/internal/common/config"
)

// ==========================================================================
// Postgres
// ==========================================================================

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestMigrate_AppliesInOneTransaction(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, p.Migrate(context.Background(), "CREATE TABLE a", "CREATE INDEX b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX b").WillReturnError(fmt.Errorf("permission denied"))
	mock.ExpectRollback()

	err := p.Migrate(context.Background(), "CREATE TABLE a", "CREATE INDEX b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2 failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReady(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectPing().WillReturnError(fmt.Errorf("connection refused"))

	err := p.Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres unreachable")
}

// ==========================================================================
// Redis
// ==========================================================================

func TestConnectRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	rdb, err := ConnectRedis(context.Background(), config.RedisConfig{Address: srv.Addr()}, time.Second)
	require.NoError(t, err)
	defer rdb.Close()

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, _ := srv.Get("k")
	assert.Equal(t, "v", got)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := ConnectRedis(context.Background(), config.RedisConfig{Address: addr}, 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}
