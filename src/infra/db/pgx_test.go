package db

import (
	"log/slog"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id.String(), normalizeValue([16]byte(id)))

	n := pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}
	got, ok := normalizeValue(n).(decimal.Decimal)
	if assert.True(t, ok) {
		assert.True(t, decimal.RequireFromString("123.45").Equal(got))
	}

	assert.Nil(t, normalizeValue(pgtype.Numeric{}))
	assert.Equal(t, "plain", normalizeValue("plain"))
	assert.Equal(t, int64(3), normalizeValue(int64(3)))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, slogLevel(tracelog.LogLevelError))
	assert.Equal(t, slog.LevelWarn, slogLevel(tracelog.LogLevelWarn))
	assert.Equal(t, slog.LevelInfo, slogLevel(tracelog.LogLevelInfo))
	assert.Equal(t, slog.LevelDebug, slogLevel(tracelog.LogLevelTrace))
}
