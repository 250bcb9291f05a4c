package mqtt

import (
	"errors"
	"strings"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flokli/monitor-agent/config"
	"github.com/flokli/monitor-agent/mqtt/mqtttest"
)

func TestBuildClientOptions(t *testing.T) {
	opts := buildClientOptions(config.MQTT{
		Broker:   "tcp://broker.example:1883",
		ClientID: "desk",
		Username: "agent",
		Password: "secret",
	}, nil)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker.example:1883", opts.Servers[0].Host)
	assert.Equal(t, "desk", opts.ClientID)
	assert.Equal(t, "agent", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.ResumeSubs)
	assert.False(t, opts.CleanSession)
}

func TestBuildClientOptionsGeneratesClientID(t *testing.T) {
	a := buildClientOptions(config.MQTT{Broker: "tcp://localhost:1883"}, nil)
	b := buildClientOptions(config.MQTT{Broker: "tcp://localhost:1883"}, nil)

	assert.True(t, strings.HasPrefix(a.ClientID, clientIDPrefix))
	assert.NotEqual(t, a.ClientID, b.ClientID)
	assert.Empty(t, a.Username)
	// no session is left behind on the broker for a one-off id
	assert.True(t, a.CleanSession)
}

func TestBuildClientOptionsOnConnect(t *testing.T) {
	var connected mqtt.Client
	opts := buildClientOptions(config.MQTT{Broker: "tcp://localhost:1883"}, func(c mqtt.Client) {
		connected = c
	})

	c := mqtttest.New()
	opts.OnConnect(c)
	assert.Same(t, c, connected)
}

func TestPublishPayloads(t *testing.T) {
	c := mqtttest.New()

	require.NoError(t, Publish(c, "a", 0, false, "text"))
	require.NoError(t, Publish(c, "b", 0, true, []byte("{}")))
	require.NoError(t, Publish(c, "c", 0, false, 42))

	assert.Equal(t, []mqtttest.Message{
		{Topic: "a", Payload: "text"},
		{Topic: "b", Payload: "{}", Retained: true},
		{Topic: "c", Payload: "42"},
	}, c.Published())
}

func TestSubscribeUnsubscribe(t *testing.T) {
	c := mqtttest.New()

	require.NoError(t, Subscribe(c, "x/set", 0, nil))
	assert.True(t, c.Subscribed("x/set"))

	require.NoError(t, Unsubscribe(c, []string{"x/set"}))
	assert.False(t, c.Subscribed("x/set"))

	c.Err = errors.New("not authorized")
	assert.ErrorIs(t, Subscribe(c, "y/set", 0, nil), c.Err)
	assert.ErrorIs(t, Publish(c, "y/state", 0, false, "{}"), c.Err)
}
