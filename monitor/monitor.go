// Package monitor offers typed access to the common VCP settings of a display.
//
// All getters and setters must be called inside an open session:
//
//	monitors, err := monitor.All(vcp.NewRegistry())
//	...
//	for _, m := range monitors {
//		err := m.Do(func() error {
//			return m.SetPowerMode(monitor.Name("standby"))
//		})
//		...
//	}
package monitor

import (
	"fmt"
	"math"

	"github.com/flokli/monitor-agent/ddc"
	"github.com/flokli/monitor-agent/vcp"
)

// Monitor is a display reached through a VCP session.
type Monitor struct {
	session  *vcp.Session
	registry *vcp.Registry
}

// New returns a Monitor using session for transport and registry for code
// lookups.
func New(session *vcp.Session, registry *vcp.Registry) *Monitor {
	return &Monitor{session: session, registry: registry}
}

// All discovers the displays of the current platform and returns them as
// closed Monitors.
func All(registry *vcp.Registry) ([]*Monitor, error) {
	sessions, err := ddc.ListSessions()
	if err != nil {
		return nil, err
	}
	monitors := make([]*Monitor, 0, len(sessions))
	for _, s := range sessions {
		monitors = append(monitors, New(s, registry))
	}
	return monitors, nil
}

// Name identifies the display.
func (m *Monitor) Name() string {
	return m.session.Name()
}

// Open enters the underlying session.
func (m *Monitor) Open() error {
	return m.session.Enter()
}

// Close exits the underlying session.
func (m *Monitor) Close() error {
	return m.session.Exit()
}

// Do runs fn with the session open and closes it afterwards.
func (m *Monitor) Do(fn func() error) error {
	return m.session.Do(fn)
}

func (m *Monitor) code(name string) (vcp.FeatureCode, error) {
	code, err := m.registry.LookupName(name)
	if err != nil {
		return vcp.FeatureCode{}, fmt.Errorf("unable to look up %s: %w", name, err)
	}
	return code, nil
}

func (m *Monitor) get(name string) (int, error) {
	code, err := m.code(name)
	if err != nil {
		return 0, err
	}
	current, _, err := m.session.ReadFeature(code)
	return current, err
}

func (m *Monitor) set(name string, value int) error {
	code, err := m.code(name)
	if err != nil {
		return err
	}
	return m.session.WriteFeature(code, value)
}

// GetLuminance returns the backlight luminance in device units, usually 0-100.
func (m *Monitor) GetLuminance() (int, error) {
	return m.get(vcp.ImageLuminance)
}

// SetLuminance sets the backlight luminance in device units.
func (m *Monitor) SetLuminance(value int) error {
	return m.set(vcp.ImageLuminance, value)
}

// GetContrast returns the contrast in device units.
func (m *Monitor) GetContrast() (int, error) {
	return m.get(vcp.ImageContrast)
}

// SetContrast sets the contrast in device units.
func (m *Monitor) SetContrast(value int) error {
	return m.set(vcp.ImageContrast, value)
}

// GetColorPreset returns the raw color preset. Known values are listed as
// ColorPreset constants.
func (m *Monitor) GetColorPreset() (int, error) {
	return m.get(vcp.ImageColorPreset)
}

// SetColorPreset sets the color preset. Integers must be one of the
// ColorPreset values; names are matched case-sensitively ("COLOR_TEMP_5000K").
func (m *Monitor) SetColorPreset(value Value) error {
	wire, err := value.wire(colorPresets)
	if err != nil {
		return err
	}
	return m.set(vcp.ImageColorPreset, wire)
}

// GetPowerMode returns the power mode. A value outside the MCCS table fails
// with ErrInvalidValue.
func (m *Monitor) GetPowerMode() (PowerMode, error) {
	current, err := m.get(vcp.DisplayPowerMode)
	if err != nil {
		return 0, err
	}
	if !powerModes.validWire(current) {
		return 0, fmt.Errorf("%w: display reported power mode %d", ErrInvalidValue, current)
	}
	return PowerMode(current), nil
}

// SetPowerMode sets the power mode. Names are matched case-sensitively
// ("on", "standby", "suspend", "off_soft", "off_hard").
func (m *Monitor) SetPowerMode(value Value) error {
	wire, err := value.wire(powerModes)
	if err != nil {
		return err
	}
	return m.set(vcp.DisplayPowerMode, wire)
}

// GetInputSource returns the selected input. Values outside the MCCS table
// are returned as is rather than as an error; use InputSource.Defined to
// tell them apart.
func (m *Monitor) GetInputSource() (InputSource, error) {
	current, err := m.get(vcp.InputSelect)
	if err != nil {
		return 0, err
	}
	return InputSource(current & 0xFF), nil
}

// SetInputSource selects an input. Names are matched case-insensitively.
// Integers may be any byte, to reach inputs the MCCS table does not list.
func (m *Monitor) SetInputSource(value Value) error {
	wire, err := value.wire(inputSources)
	if err != nil {
		return err
	}
	return m.set(vcp.InputSelect, wire)
}

// ResetFactoryDefaults restores the factory image settings.
func (m *Monitor) ResetFactoryDefaults() error {
	return m.set(vcp.ImageFactoryDefault, 1)
}

// GetFeature reads the current value of any registered feature.
func (m *Monitor) GetFeature(key vcp.Key) (int, error) {
	code, err := m.registry.Lookup(key)
	if err != nil {
		return 0, err
	}
	current, _, err := m.session.ReadFeature(code)
	return current, err
}

// SetFeature writes any registered feature.
func (m *Monitor) SetFeature(key vcp.Key, value int) error {
	code, err := m.registry.Lookup(key)
	if err != nil {
		return err
	}
	return m.session.WriteFeature(code, value)
}

// Maximum returns the maximum the display reports for a continuous feature,
// read once per session.
func (m *Monitor) Maximum(name string) (int, error) {
	code, err := m.code(name)
	if err != nil {
		return 0, err
	}
	return m.session.CachedMaximum(code)
}

// GetLuminancePercent returns the luminance relative to its maximum, 0-100.
func (m *Monitor) GetLuminancePercent() (float64, error) {
	return m.getPercent(vcp.ImageLuminance)
}

// SetLuminancePercent sets the luminance relative to its maximum.
func (m *Monitor) SetLuminancePercent(percent float64) error {
	return m.setPercent(vcp.ImageLuminance, percent)
}

// GetContrastPercent returns the contrast relative to its maximum, 0-100.
func (m *Monitor) GetContrastPercent() (float64, error) {
	return m.getPercent(vcp.ImageContrast)
}

// SetContrastPercent sets the contrast relative to its maximum.
func (m *Monitor) SetContrastPercent(percent float64) error {
	return m.setPercent(vcp.ImageContrast, percent)
}

func (m *Monitor) getPercent(name string) (float64, error) {
	maximum, err := m.Maximum(name)
	if err != nil {
		return 0, err
	}
	if maximum <= 0 {
		return 0, fmt.Errorf("%w: display reported maximum %d for %s", ErrInvalidValue, maximum, name)
	}
	current, err := m.get(name)
	if err != nil {
		return 0, err
	}
	return float64(current) * 100 / float64(maximum), nil
}

func (m *Monitor) setPercent(name string, percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %v%% for %s", ErrInvalidValue, percent, name)
	}
	maximum, err := m.Maximum(name)
	if err != nil {
		return err
	}
	if maximum <= 0 {
		return fmt.Errorf("%w: display reported maximum %d for %s", ErrInvalidValue, maximum, name)
	}
	return m.set(name, int(math.Round(percent*float64(maximum)/100)))
}
