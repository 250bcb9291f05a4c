package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/flokli/monitor-agent/config"
	"github.com/flokli/monitor-agent/ddc"
	"github.com/flokli/monitor-agent/mqtt"
	"github.com/flokli/monitor-agent/outputs"
	"github.com/flokli/monitor-agent/outputs/monitors"
	"github.com/flokli/monitor-agent/vcp"
	log "github.com/sirupsen/logrus"

	"github.com/coreos/go-systemd/daemon"
)

// Backend reports outputs appearing, changing and disappearing.
type Backend interface {
	RegisterOutputAdd(func(outputs.Output))
	RegisterOutputUpdate(func(outputs.Output))
	RegisterOutputRemove(func(outputs.Output))
	Close()
}

type Server struct {
	MachineID   string
	TopicPrefix string

	// mu guards mqttClient and backend, which Run sets while main may
	// already be closing.
	mu         sync.Mutex
	mqttClient pahomqtt.Client
	backend    Backend

	muNumOutputs sync.Mutex
	numOutputs   uint

	// set topic handlers, to subscribe again after a reconnect
	muSubscriptions sync.Mutex
	subscriptions   map[string]pahomqtt.MessageHandler
}

func New(machineID string, topicPrefix string) *Server {
	return &Server{
		MachineID:     machineID,
		TopicPrefix:   topicPrefix,
		numOutputs:    0,
		subscriptions: make(map[string]pahomqtt.MessageHandler),
	}
}

func (s *Server) Close() {
	s.mu.Lock()
	backend, mqttClient := s.backend, s.mqttClient
	s.mu.Unlock()

	if backend != nil {
		log.Debug("closing backend")
		backend.Close()
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}

func (s *Server) client() pahomqtt.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mqttClient
}

// Run connects to MQTT and starts watching the monitors. Feature codes of
// registry must be registered before, features are the additional ones to
// publish.
func (s *Server) Run(ctx context.Context, cfg *config.Config, registry *vcp.Registry, features []vcp.FeatureCode) error {
	// setup mqtt
	mqttClient, err := mqtt.Connect(cfg.MQTT, s.resubscribe)
	if err != nil {
		log.Error("unable to connect to MQTT")
		return fmt.Errorf("unable to connect to mqtt: %w", err)
	}

	log.WithFields(log.Fields{
		"machineID":   s.MachineID,
		"topicPrefix": s.TopicPrefix,
	}).Info("Server started")

	backend := monitors.New(monitors.Config{
		RefreshInterval: cfg.RefreshInterval,
		Registry:        registry,
		Features:        features,
		Discover:        ddc.ListSessions,
	})
	s.attach(mqttClient, backend)
	backend.Start(ctx)

	log.Info("server.Run() finished")

	return nil
}

// attach registers the MQTT handlers with the backend, which must not be
// started yet.
func (s *Server) attach(mqttClient pahomqtt.Client, backend Backend) {
	s.mu.Lock()
	s.mqttClient = mqttClient
	s.backend = backend
	s.mu.Unlock()

	// what to do if there's a new output.
	backend.RegisterOutputAdd(func(output outputs.Output) {
		firstNewOutput := false
		s.muNumOutputs.Lock()
		// If we previously had no outputs and now have one, mark as ready.
		if s.numOutputs == 0 {
			firstNewOutput = true
		}
		s.numOutputs = s.numOutputs + 1
		s.muNumOutputs.Unlock()

		outputName := *output.GetInfo().Name
		l := log.WithField("outputName", outputName)

		// subscribe to the MQTT set topic
		topic := s.getTopicPrefixForOutputName(outputName) + "/set"
		handler := func(c pahomqtt.Client, m pahomqtt.Message) {
			l := l.WithFields(log.Fields{
				"message_id": m.MessageID(),
				"payload":    string(m.Payload()),
				"topic":      topic,
			})
			l.Debug("received message")

			if m.Topic() != topic {
				// This should only happen if the broker sends us unsolicited messages,
				// and/or the client doesn't properly route them to the right callbacks.
				l.Warn("discarded unrelated message")
				return
			}

			if err := s.handleSetCmd(m.Payload(), output); err != nil {
				l.WithError(err).Error("unable to handle setCmd")
			}
		}
		s.muSubscriptions.Lock()
		s.subscriptions[topic] = handler
		s.muSubscriptions.Unlock()

		err := mqtt.Subscribe(s.client(), topic, 0, handler)
		if err != nil {
			l.WithField("topic", topic).WithError(err).Error("unable to subscribe to set topic")
		}

		// mark as ready if this was the first output for which we published state, info
		// and subscribed to the set topic.
		if firstNewOutput {
			daemon.SdNotify(false, daemon.SdNotifyReady)
		}

		if err := s.publishOutputData(output); err != nil {
			l.WithError(err).Warn("unable to publish output data")
		} else {
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	})

	backend.RegisterOutputUpdate(func(output outputs.Output) {
		if err := s.publishOutputData(output); err != nil {
			log.WithError(err).Warn("unable to publish output data")
		} else {
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	})

	// what to do if the output is removed
	backend.RegisterOutputRemove(func(output outputs.Output) {
		s.muNumOutputs.Lock()
		s.numOutputs = s.numOutputs - 1
		s.muNumOutputs.Unlock()

		outputName := *output.GetInfo().Name
		l := log.WithField("outputName", outputName)
		// unsubscribe from the MQTT set topic
		topic := s.getTopicPrefixForOutputName(outputName) + "/set"
		s.muSubscriptions.Lock()
		delete(s.subscriptions, topic)
		s.muSubscriptions.Unlock()

		err := mqtt.Unsubscribe(s.client(), []string{topic})
		if err != nil {
			l.WithError(err).Warn("unable to unsubscribe")
		}

		// publish an empty object to the topics state and info
		if err := mqtt.Publish(s.client(), s.getTopicPrefixForOutputName(outputName)+"/state", 0, false, "{}"); err != nil {
			l.WithError(err).Warn("unable to publish empty state")
		}
		if err := mqtt.Publish(s.client(), s.getTopicPrefixForOutputName(outputName)+"/info", 0, false, "{}"); err != nil {
			l.WithError(err).Warn("unable to publish empty info")
		}
	})
}

// resubscribe subscribes to the set topics of all known outputs again.
// It runs on every connect, the broker forgets subscriptions of clean
// sessions.
func (s *Server) resubscribe(c pahomqtt.Client) {
	s.muSubscriptions.Lock()
	subscriptions := make(map[string]pahomqtt.MessageHandler, len(s.subscriptions))
	for topic, handler := range s.subscriptions {
		subscriptions[topic] = handler
	}
	s.muSubscriptions.Unlock()

	for topic, handler := range subscriptions {
		if err := mqtt.Subscribe(c, topic, 0, handler); err != nil {
			log.WithField("topic", topic).WithError(err).Error("unable to subscribe to set topic")
		}
	}
}

// publishOutputData publishes all info about a given output to the mqtt broker.
func (s *Server) publishOutputData(output outputs.Output) error {
	state := output.GetState()
	info := output.GetInfo()

	topicPrefix := s.getTopicPrefixForOutputName(*info.Name)

	stateJSON, err := json.Marshal(&state)
	if err != nil {
		return fmt.Errorf("unable to marshal state json: %w", err)
	}

	infoJSON, err := json.Marshal(&info)
	if err != nil {
		return fmt.Errorf("unable to marshal info json: %w", err)
	}

	if err := mqtt.Publish(s.client(), topicPrefix+"/state", 0, false, string(stateJSON)); err != nil {
		return fmt.Errorf("unable to publish state: %w", err)
	}
	if err := mqtt.Publish(s.client(), topicPrefix+"/info", 0, false, string(infoJSON)); err != nil {
		return fmt.Errorf("unable to publish info: %w", err)
	}

	return nil
}

// decode the mqtt set command, update the output and publish the result.
func (s *Server) handleSetCmd(payload []byte, output outputs.Output) error {
	// Parse payload into (sparse) state
	var setState *outputs.State
	if err := json.Unmarshal(payload, &setState); err != nil {
		return fmt.Errorf("failed to parse set payload: %w", err)
	}
	if setState == nil {
		return fmt.Errorf("empty set payload")
	}

	dedupState(setState, output.GetState())
	if isEmpty(setState) {
		log.WithField("outputName", *output.GetInfo().Name).Debug("nothing to set")
		return nil
	}

	_, setErr := output.SetState(setState)

	// publish whatever the output ended up with, even after a partial failure
	if err := s.publishOutputData(output); err != nil {
		log.WithError(err).Warn("unable to publish output data")
	}

	if setErr != nil {
		return fmt.Errorf("failed to set state: %w", setErr)
	}
	return nil
}

// dedupState drops settings that are already set the way they should be.
func dedupState(setState, currentState *outputs.State) {
	if setState.Luminance != nil && currentState.Luminance != nil && *setState.Luminance == *currentState.Luminance {
		setState.Luminance = nil
	}
	if setState.Contrast != nil && currentState.Contrast != nil && *setState.Contrast == *currentState.Contrast {
		setState.Contrast = nil
	}
	if setState.ColorPreset != nil && currentState.ColorPreset != nil && currentState.ColorPreset.Matches(*setState.ColorPreset) {
		setState.ColorPreset = nil
	}
	if setState.PowerMode != nil && currentState.PowerMode != nil && currentState.PowerMode.Matches(*setState.PowerMode) {
		setState.PowerMode = nil
	}
	if setState.InputSource != nil && currentState.InputSource != nil && currentState.InputSource.Matches(*setState.InputSource) {
		setState.InputSource = nil
	}
	for name, v := range setState.Features {
		if current, ok := currentState.Features[name]; ok && current == v {
			delete(setState.Features, name)
		}
	}
}

func isEmpty(s *outputs.State) bool {
	return s.Luminance == nil && s.Contrast == nil &&
		s.ColorPreset == nil && s.PowerMode == nil && s.InputSource == nil &&
		len(s.Features) == 0
}

func (s *Server) getTopicPrefixForOutputName(name string) string {
	return s.TopicPrefix + "/" + name + "@" + s.MachineID
}
