package redis

import (
	"context"
	"testing"
	"time"

	"fitness-tracker/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReady(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	defer Close(client)

	require.NoError(t, WaitReady(context.Background(), client, 3, 10*time.Millisecond))
}

func TestWaitReady_GivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	defer Close(client)
	mr.Close()

	err := WaitReady(context.Background(), client, 2, 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
