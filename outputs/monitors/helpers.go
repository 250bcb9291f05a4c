package monitors

import (
	"encoding/json"
	"fmt"
	"reflect"

	log "github.com/sirupsen/logrus"

	"github.com/flokli/monitor-agent/monitor"
	"github.com/flokli/monitor-agent/outputs"
	"github.com/flokli/monitor-agent/vcp"
)

// readState reads all settings of an opened monitor.
// Settings the display refuses to report are logged and left nil, many
// displays only implement a subset.
func readState(m *monitor.Monitor, features []vcp.FeatureCode) (*outputs.State, *outputs.Info) {
	l := log.WithField("outputName", m.Name())
	state := &outputs.State{}
	info := &outputs.Info{}

	if v, err := m.GetLuminance(); err != nil {
		l.WithError(err).Debug("unable to read luminance")
	} else {
		state.Luminance = &v
	}
	if v, err := m.GetContrast(); err != nil {
		l.WithError(err).Debug("unable to read contrast")
	} else {
		state.Contrast = &v
	}
	if v, err := m.GetColorPreset(); err != nil {
		l.WithError(err).Debug("unable to read color preset")
	} else {
		value := monitor.ColorPreset(v).Value()
		if v < 0 || v > 0xFF {
			value = monitor.Int(v)
		}
		state.ColorPreset = &value
	}
	if v, err := m.GetPowerMode(); err != nil {
		l.WithError(err).Debug("unable to read power mode")
	} else {
		value := v.Value()
		state.PowerMode = &value
	}
	if v, err := m.GetInputSource(); err != nil {
		l.WithError(err).Debug("unable to read input source")
	} else {
		if !v.Defined() {
			l.WithField("value", uint8(v)).Debug("input source outside of MCCS")
		}
		value := v.Value()
		state.InputSource = &value
	}

	for _, code := range features {
		if !code.Readable() {
			continue
		}
		v, err := m.GetFeature(vcp.ByValue(int(code.Value)))
		if err != nil {
			l.WithError(err).WithField("code", code.Name).Debug("unable to read feature")
			continue
		}
		if state.Features == nil {
			state.Features = make(map[string]int)
		}
		state.Features[code.Name] = v
	}

	if v, err := m.Maximum(vcp.ImageLuminance); err == nil {
		info.LuminanceMax = &v
	}
	if v, err := m.Maximum(vcp.ImageContrast); err == nil {
		info.ContrastMax = &v
	}

	return state, info
}

// applyState writes all set fields of a (sparse) state to an opened monitor.
func applyState(m *monitor.Monitor, s *outputs.State) error {
	if s.PowerMode != nil {
		if err := m.SetPowerMode(*s.PowerMode); err != nil {
			return fmt.Errorf("failed to set power mode: %w", err)
		}
	}
	if s.InputSource != nil {
		if err := m.SetInputSource(*s.InputSource); err != nil {
			return fmt.Errorf("failed to set input source: %w", err)
		}
	}
	if s.ColorPreset != nil {
		if err := m.SetColorPreset(*s.ColorPreset); err != nil {
			return fmt.Errorf("failed to set color preset: %w", err)
		}
	}
	if s.Luminance != nil {
		if err := m.SetLuminance(*s.Luminance); err != nil {
			return fmt.Errorf("failed to set luminance: %w", err)
		}
	}
	if s.Contrast != nil {
		if err := m.SetContrast(*s.Contrast); err != nil {
			return fmt.Errorf("failed to set contrast: %w", err)
		}
	}
	for name, v := range s.Features {
		if err := m.SetFeature(vcp.ByName(name), v); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	return nil
}

// sameJSON compares two values by their JSON encoding, which is what gets
// published.
func sameJSON(a, b any) bool {
	aJSON, aErr := json.Marshal(a)
	bJSON, bErr := json.Marshal(b)
	if aErr != nil || bErr != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(aJSON) == string(bJSON)
}
