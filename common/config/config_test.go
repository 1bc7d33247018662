package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "fitness", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=fitness sslmode=disable", c.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TDB_HOST", "pg")
	t.Setenv("TDB_PORT", "6543")
	t.Setenv("TDB_NAME", "motion")
	t.Setenv("TDB_MAX_CONNS", "20")

	c := DatabaseConfig{Host: "localhost", Port: 5432, Database: "x"}
	c.LoadFromEnv("TDB")

	assert.Equal(t, "pg", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, "motion", c.Database)
	assert.Equal(t, 20, c.MaxConns)
}

func TestMQTTConfig_LoadFromEnv_QoS(t *testing.T) {
	t.Setenv("TMQ_QOS", "2")
	c := MQTTConfig{QoS: 1}
	c.LoadFromEnv("TMQ")
	assert.Equal(t, byte(2), c.QoS)

	// 非法值保持原值
	t.Setenv("TMQ_QOS", "7")
	c.LoadFromEnv("TMQ")
	assert.Equal(t, byte(2), c.QoS)
}

func TestNotifyConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TN_URL", "http://push.local/v1/notify")
	t.Setenv("TN_TIMEOUT", "3s")
	t.Setenv("TN_RETRIES", "5")

	c := NotifyConfig{Title: "Fitness"}
	c.LoadFromEnv("TN")

	assert.Equal(t, "http://push.local/v1/notify", c.URL)
	assert.Equal(t, "Fitness", c.Title)
	assert.Equal(t, 3*time.Second, c.Timeout)
	assert.Equal(t, 5, c.Retries)
}

func TestHTTPConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TH_ADDR", ":9090")
	t.Setenv("TH_READ_TIMEOUT", "bad")

	c := HTTPConfig{Addr: ":8080", ReadTimeout: time.Second}
	c.LoadFromEnv("TH")

	assert.Equal(t, ":9090", c.Addr)
	assert.Equal(t, time.Second, c.ReadTimeout)
}
