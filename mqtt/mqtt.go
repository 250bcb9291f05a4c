package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/flokli/monitor-agent/config"
)

const (
	timeout = 10 * time.Second

	clientIDPrefix = "monitor-agent-"
)

// buildClientOptions translates the config into paho options.
// Subscriptions are resumed after a reconnect, as they are only made once
// per output. A persistent broker session is only asked for with a
// configured client id, a generated one never comes back after a restart.
// onConnect, if set, is called after every (re)connect.
func buildClientOptions(cfg config.MQTT, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = clientIDPrefix + uuid.NewString()
	}
	opts.SetClientID(clientID)
	opts.SetCleanSession(cfg.ClientID == "")

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetResumeSubs(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(timeout)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("lost connection to mqtt")
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.WithField("broker", cfg.Broker).Info("connected to mqtt")
		if onConnect != nil {
			onConnect(c)
		}
	})

	return opts
}

// Connect connects to the broker. Clean sessions drop subscriptions on the
// broker side, onConnect is the place to (re)subscribe.
func Connect(cfg config.MQTT, onConnect mqtt.OnConnectHandler) (mqtt.Client, error) {
	opts := buildClientOptions(cfg, onConnect)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	completed := token.WaitTimeout(timeout)
	if !completed {
		return nil, fmt.Errorf("timeout connecting to mqtt")
	} else {
		return client, token.Error()
	}
}

// Publishes a given value to the the broker at the given topic.
// Strings and byte slices are sent as-is, other values are converted to
// their string representations.
func Publish(mqttClient mqtt.Client, topic string, qos byte, retained bool, value interface{}) error {
	var payload string
	switch v := value.(type) {
	case string:
		payload = v
	case []byte:
		payload = string(v)
	default:
		payload = fmt.Sprintf("%v", value)
	}

	l := log.WithFields(log.Fields{
		"topic":    topic,
		"qos":      qos,
		"retained": retained,
		"payload":  payload,
	})

	token := mqttClient.Publish(topic, qos, retained, payload)
	completed := token.WaitTimeout(timeout)

	if !completed {
		return fmt.Errorf("timeout publishing to mqtt")
	} else {
		if token.Error() == nil {
			l.Trace("published message")
		}
		return token.Error()
	}
}

func Subscribe(mqttClient mqtt.Client, topic string, qos byte, cb mqtt.MessageHandler) error {
	l := log.WithFields(log.Fields{
		"topic": topic,
		"qos":   qos,
	})

	token := mqttClient.Subscribe(topic, qos, cb)
	completed := token.WaitTimeout(timeout)
	if !completed {
		return fmt.Errorf("timeout subscribing to mqtt")
	} else {
		if token.Error() == nil {
			l.Debug("subscribed")
		}
		return token.Error()
	}
}

func Unsubscribe(mqttClient mqtt.Client, topics []string) error {
	l := log.WithFields(log.Fields{
		"topics": topics,
	})

	token := mqttClient.Unsubscribe(topics...)
	completed := token.WaitTimeout(timeout)
	if !completed {
		return fmt.Errorf("timeout unsubscribing from mqtt")
	} else {
		if token.Error() == nil {
			l.Debug("unsubscribed")
		}
		return token.Error()
	}
}
