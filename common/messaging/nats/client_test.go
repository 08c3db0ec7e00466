package nats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, "ddpay-console", cfg.Name)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestNewClient_ConnectionRefused(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond

	client, err := NewClient(cfg)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestClient_ZeroValue(t *testing.T) {
	c := &Client{}
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close())
}

func TestPublishJSON_MarshalError(t *testing.T) {
	c := &Client{}
	err := c.PublishJSON(context.Background(), "ddpay.session.login", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal message")
}
