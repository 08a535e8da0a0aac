package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLease_AcquireFresh(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLease(rdb, "", "poller-a", 15*time.Second)

	mock.ExpectSetNX(DefaultLeaseKey, "poller-a", 15*time.Second).SetVal(true)
	held, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, held)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLease_RenewOwnLease(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLease(rdb, "orders:poller", "poller-a", 15*time.Second)

	mock.ExpectSetNX("orders:poller", "poller-a", 15*time.Second).SetVal(false)
	mock.ExpectGet("orders:poller").SetVal("poller-a")
	mock.ExpectExpire("orders:poller", 15*time.Second).SetVal(true)
	held, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, held)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLease_HeldByOther(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLease(rdb, "", "poller-b", 15*time.Second)

	mock.ExpectSetNX(DefaultLeaseKey, "poller-b", 15*time.Second).SetVal(false)
	mock.ExpectGet(DefaultLeaseKey).SetVal("poller-a")
	held, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, held)

	mock.ExpectSetNX(DefaultLeaseKey, "poller-b", 15*time.Second).SetErr(errors.New("connection refused"))
	_, err = l.Acquire(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLease_Release(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLease(rdb, "", "poller-a", 15*time.Second)

	mock.ExpectEvalSha(releaseScript.Hash(), []string{DefaultLeaseKey}, "poller-a").SetVal(int64(1))
	require.NoError(t, l.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
