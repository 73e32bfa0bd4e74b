package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "retail",
		Password: "pw",
		DBName:   "pos",
		SSLMode:  "disable",
	})

	assert.Equal(t, "host=db port=5432 user=retail password=pw dbname=pos sslmode=disable", dsn)
}

func TestBoundedAppliesQueryTimeout(t *testing.T) {
	db := Wrap(nil, 2*time.Second)

	ctx, cancel := db.bounded(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, 500*time.Millisecond)

	unbounded := Wrap(nil, 0)
	ctx2, cancel2 := unbounded.bounded(context.Background())
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}
