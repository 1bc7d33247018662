package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fitness-tracker/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotification_Normalize(t *testing.T) {
	n := Notification{}.Normalize()
	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, "", n.Body)
	assert.Equal(t, PriorityHigh, n.Priority)

	n = Notification{Title: "t", Priority: PriorityDefault}.Normalize()
	assert.Equal(t, "t", n.Title)
	assert.Equal(t, PriorityDefault, n.Priority)
}

func TestFallNotification(t *testing.T) {
	n := FallNotification("", "dev-1", "tenant-1", 27.25)
	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, "dev-1", n.DeviceID)
	assert.Contains(t, n.Body, "27.2")
}

func TestRestNotifier_Notify(t *testing.T) {
	var got Notification
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewRestNotifier(config.NotifyConfig{URL: srv.URL, Token: "secret", Timeout: time.Second}, zap.NewNop())
	err := n.Notify(context.Background(), Notification{Body: "hello", DeviceID: "dev-1"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, DefaultTitle, got.Title)
	assert.Equal(t, "hello", got.Body)
	assert.Equal(t, "dev-1", got.DeviceID)
	assert.Equal(t, PriorityHigh, got.Priority)
}

func TestRestNotifier_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewRestNotifier(config.NotifyConfig{URL: srv.URL, Retries: 3, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, n.Notify(context.Background(), Notification{Title: "x"}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRestNotifier_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewRestNotifier(config.NotifyConfig{URL: srv.URL, Retries: 3, Timeout: time.Second}, zap.NewNop())
	err := n.Notify(context.Background(), Notification{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(topic string, _ byte, _ bool, payload []byte) error {
	f.topic = topic
	f.payload = payload
	return f.err
}

func alertTopic(deviceID string) string { return "motion/" + deviceID + "/alert" }

func TestMQTTNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := NewMQTTNotifier(pub, alertTopic, 1, zap.NewNop())

	require.NoError(t, n.Notify(context.Background(), Notification{Title: "Fall", DeviceID: "dev-1"}))
	assert.Equal(t, "motion/dev-1/alert", pub.topic)

	var got Notification
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, "Fall", got.Title)
	assert.Equal(t, PriorityHigh, got.Priority)
}

func TestMQTTNotifier_SkipsWithoutDevice(t *testing.T) {
	pub := &fakePublisher{}
	n := NewMQTTNotifier(pub, alertTopic, 1, zap.NewNop())

	require.NoError(t, n.Notify(context.Background(), Notification{Title: "x"}))
	assert.Empty(t, pub.topic)
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &fakePublisher{}
	bad := &fakePublisher{err: errors.New("broker down")}

	m := Multi{
		NewMQTTNotifier(ok, alertTopic, 0, zap.NewNop()),
		nil,
		NewMQTTNotifier(bad, alertTopic, 0, zap.NewNop()),
	}
	err := m.Notify(context.Background(), Notification{DeviceID: "dev-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	// 前一个通道不受影响
	assert.Equal(t, "motion/dev-1/alert", ok.topic)

	assert.NoError(t, Multi{Nop{}}.Notify(context.Background(), Notification{}))
}
