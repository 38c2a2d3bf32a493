package rediscache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/store/rediscache"
)

func TestCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet(rediscache.DefaultKey).RedisNil()
	cache := rediscache.New(db, "", time.Hour)

	_, ok, err := cache.Get(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SetThenGet(t *testing.T) {
	// GIVEN: A custom configuration
	// WHEN: Storing it and reading the stored document back
	// THEN: The same configuration is returned

	cfg := factory.DefaultConfig()
	cfg.TaxRate = 0.03
	cfg.DeductionItemCatalog = cfg.DeductionItemCatalog[:2]
	doc, err := factory.NewConfigFactory().ToJSON(cfg)
	require.NoError(t, err)

	db, mock := redismock.NewClientMock()
	mock.ExpectSet("payroll", doc, 24*time.Hour).SetVal("OK")
	mock.ExpectGet("payroll").SetVal(doc)
	cache := rediscache.New(db, "payroll", 24*time.Hour)

	require.NoError(t, cache.Set(context.Background(), cfg))
	got, ok, err := cache.Get(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cfg, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	db, mock := redismock.NewClientMock()
	mock.ExpectGet(rediscache.DefaultKey).SetErr(boom)
	mock.ExpectGet(rediscache.DefaultKey).SetVal(`{"tax_rate": 7}`)
	cache := rediscache.New(db, rediscache.DefaultKey, 0)

	_, _, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, boom)

	_, ok, err := cache.Get(context.Background())
	assert.Error(t, err, "a stored document with an invalid rate is rejected")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
