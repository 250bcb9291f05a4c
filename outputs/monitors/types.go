package monitors

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flokli/monitor-agent/monitor"
	"github.com/flokli/monitor-agent/outputs"
	"github.com/flokli/monitor-agent/vcp"
)

// Config configures the monitors backend.
type Config struct {
	RefreshInterval time.Duration
	Registry        *vcp.Registry
	// Features are additional codes reported in State.Features.
	Features []vcp.FeatureCode
	// Discover lists the displays, usually ddc.ListSessions.
	Discover func() ([]*vcp.Session, error)
}

// Monitors contains all backend-wide state.
type Monitors struct {
	cfg Config

	// outputsMu guards outputs and serializes all access to the displays.
	outputs   map[string]*Output
	outputsMu sync.Mutex

	refreshTicker *time.Ticker

	// Called when the output appeared
	onAddFns []func(outputs.Output)
	// Called when the output was updated
	onUpdateFns []func(outputs.Output)
	// Called when the output was removed
	onRemoveFns []func(outputs.Output)
}

// New creates the backend. Handlers are registered before Start.
func New(cfg Config) *Monitors {
	return &Monitors{
		cfg:           cfg,
		outputs:       make(map[string]*Output),
		refreshTicker: time.NewTicker(cfg.RefreshInterval),
	}
}

// Start refreshes every cfg.RefreshInterval, until ctx is done. All outputs
// are removed then.
func (m *Monitors) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-m.refreshTicker.C:
				if err := m.refreshOutputs(); err != nil {
					log.WithError(err).Error("Failed to refresh outputs")
				}
			case <-ctx.Done():
				m.removeAll()
				return
			}
		}
	}()
}

func (m *Monitors) Close() {
	log.Debug("stopping refresh ticker")
	m.refreshTicker.Stop()
}

// Register a new handler for when an output was added
func (m *Monitors) RegisterOutputAdd(fn func(outputs.Output)) {
	m.onAddFns = append(m.onAddFns, fn)
}

// Register a new handler for when an output was updated
func (m *Monitors) RegisterOutputUpdate(fn func(outputs.Output)) {
	m.onUpdateFns = append(m.onUpdateFns, fn)
}

// Register a new handler for when an output was removed
func (m *Monitors) RegisterOutputRemove(fn func(outputs.Output)) {
	m.onRemoveFns = append(m.onRemoveFns, fn)
}

// Enumerate the displays and read each one's settings, then sync that with
// the known outputs, calling the add/update/remove handlers.
func (m *Monitors) refreshOutputs() error {
	l := log.WithField("f", "refreshOutputs")
	l.Debug("refreshing outputs")
	m.outputsMu.Lock()
	defer m.outputsMu.Unlock()

	sessions, err := m.cfg.Discover()
	if err != nil {
		return fmt.Errorf("failed to list displays: %w", err)
	}

	seenOutputNames := make(map[string]struct{}, len(sessions))

	for _, session := range sessions {
		outputName := session.Name()
		l := log.WithField("outputName", outputName)

		mon := monitor.New(session, m.cfg.Registry)
		var state *outputs.State
		var info *outputs.Info
		err := mon.Do(func() error {
			state, info = readState(mon, m.cfg.Features)
			return nil
		})

		oldOutput, old := m.outputs[outputName]
		if err != nil {
			l.WithError(err).Warn("unable to read display")
			if old {
				// keep it, it may be busy
				seenOutputNames[outputName] = struct{}{}
			}
			continue
		}
		info.Name = &outputName
		seenOutputNames[outputName] = struct{}{}

		if old {
			changed := oldOutput.update(mon, state, info)
			if !changed {
				continue
			}
			l.Debug("calling update fns")
			for _, updateFn := range m.onUpdateFns {
				updateFn(oldOutput)
			}
		} else {
			newOutput := &Output{
				monitors: m,
				Name:     outputName,
				monitor:  mon,
				state:    *state,
				info:     *info,
			}
			m.outputs[outputName] = newOutput

			l.Debug("calling add fns")
			for _, addFn := range m.onAddFns {
				addFn(newOutput)
			}
		}
	}

	for prevOutputName, prevOutput := range m.outputs {
		if _, found := seenOutputNames[prevOutputName]; !found {
			delete(m.outputs, prevOutputName)

			log.WithField("outputName", prevOutputName).Debug("calling remove fns")
			for _, removeFn := range m.onRemoveFns {
				removeFn(prevOutput)
			}
		}
	}

	return nil
}

// removeAll forgets all outputs, calling the remove handlers.
func (m *Monitors) removeAll() {
	m.outputsMu.Lock()
	defer m.outputsMu.Unlock()

	for outputName, output := range m.outputs {
		log.WithField("outputName", outputName).Debug("calling cleanup handlers")
		delete(m.outputs, outputName)
		for _, removeFn := range m.onRemoveFns {
			removeFn(output)
		}
	}
}

// Output is one monitor seen by the backend.
type Output struct {
	// A handle to the backend, whose lock serializes display access.
	monitors *Monitors

	Name string

	mu      sync.RWMutex
	monitor *monitor.Monitor
	state   outputs.State
	info    outputs.Info
}

// update replaces the session and the last read settings, and reports
// whether the settings changed.
func (o *Output) update(mon *monitor.Monitor, state *outputs.State, info *outputs.Info) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	changed := !sameJSON(o.state, *state) || !sameJSON(o.info, *info)
	o.monitor = mon
	o.state = *state
	o.info = *info
	return changed
}

// GetInfo implements Output.
func (o *Output) GetInfo() *outputs.Info {
	o.mu.RLock()
	defer o.mu.RUnlock()
	info := o.info
	return &info
}

// GetState implements Output.
func (o *Output) GetState() *outputs.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	state := o.state
	return &state
}

// SetState implements Output. Settings are applied in one session, power
// first so a display being switched on accepts the rest; the settings are
// read back afterwards.
func (o *Output) SetState(newState *outputs.State) (*outputs.State, error) {
	o.monitors.outputsMu.Lock()
	defer o.monitors.outputsMu.Unlock()

	o.mu.RLock()
	mon := o.monitor
	o.mu.RUnlock()

	applyErr := mon.Do(func() error {
		return applyState(mon, newState)
	})

	var state *outputs.State
	var info *outputs.Info
	readErr := mon.Do(func() error {
		state, info = readState(mon, o.monitors.cfg.Features)
		return nil
	})
	if readErr == nil {
		info.Name = &o.Name
		o.update(mon, state, info)
	} else {
		log.WithError(readErr).WithField("outputName", o.Name).Warn("unable to read back display state")
	}

	return o.GetState(), applyErr
}
