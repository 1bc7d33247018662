package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestPublishToStream_ConvertsValues(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	id, err := PublishToStream(ctx, client, "s1", map[string]interface{}{
		"str":   "a",
		"int":   7,
		"float": 1.5,
		"bool":  true,
		"obj":   map[string]int{"k": 1},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "s1", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].Values["str"])
	assert.Equal(t, "7", msgs[0].Values["int"])
	assert.Equal(t, "1.500000", msgs[0].Values["float"])
	assert.Equal(t, "true", msgs[0].Values["bool"])
	assert.Equal(t, `{"k":1}`, msgs[0].Values["obj"])
}

func TestConsumerGroup_ReadAndAck(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "motion:test", "g1"))
	// 已存在的组不报错
	require.NoError(t, CreateConsumerGroup(ctx, client, "motion:test", "g1"))

	_, err := PublishJSONToStream(ctx, client, "motion:test", map[string]string{"device_id": "d1"})
	require.NoError(t, err)

	msgs, err := ReadFromStream(ctx, client, "motion:test", "g1", "c1", 10, NoBlock)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "motion:test", msgs[0].Stream)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &payload))
	assert.Equal(t, "d1", payload["device_id"])

	require.NoError(t, AckMessages(ctx, client, "motion:test", "g1", msgs[0].ID))
	pending, err := client.XPending(ctx, "motion:test", "g1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	// 没有新消息时返回空列表
	msgs, err = ReadFromStream(ctx, client, "motion:test", "g1", "c1", 10, NoBlock)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
