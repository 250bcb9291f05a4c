package monitor

import (
	"fmt"
	"strings"
)

// ColorPreset is a value of the image color preset feature.
type ColorPreset uint8

const (
	ColorTemp4000K  ColorPreset = 0x03
	ColorTemp5000K  ColorPreset = 0x04
	ColorTemp6500K  ColorPreset = 0x05
	ColorTemp7500K  ColorPreset = 0x06
	ColorTemp8200K  ColorPreset = 0x07
	ColorTemp9300K  ColorPreset = 0x08
	ColorTemp10000K ColorPreset = 0x09
	ColorTemp11500K ColorPreset = 0x0A
	ColorTempUser1  ColorPreset = 0x0B
	ColorTempUser2  ColorPreset = 0x0C
	ColorTempUser3  ColorPreset = 0x0D
)

var colorPresetNames = map[ColorPreset]string{
	ColorTemp4000K:  "COLOR_TEMP_4000K",
	ColorTemp5000K:  "COLOR_TEMP_5000K",
	ColorTemp6500K:  "COLOR_TEMP_6500K",
	ColorTemp7500K:  "COLOR_TEMP_7500K",
	ColorTemp8200K:  "COLOR_TEMP_8200K",
	ColorTemp9300K:  "COLOR_TEMP_9300K",
	ColorTemp10000K: "COLOR_TEMP_10000K",
	ColorTemp11500K: "COLOR_TEMP_11500K",
	ColorTempUser1:  "COLOR_TEMP_USER1",
	ColorTempUser2:  "COLOR_TEMP_USER2",
	ColorTempUser3:  "COLOR_TEMP_USER3",
}

// Defined reports whether c is one of the MCCS color presets.
func (c ColorPreset) Defined() bool {
	_, ok := colorPresetNames[c]
	return ok
}

func (c ColorPreset) String() string {
	if name, ok := colorPresetNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", uint8(c))
}

// PowerMode is a value of the display power mode feature.
type PowerMode uint8

const (
	PowerOn      PowerMode = 0x01
	PowerStandby PowerMode = 0x02
	PowerSuspend PowerMode = 0x03
	// PowerOffSoft is a software power off.
	PowerOffSoft PowerMode = 0x04
	// PowerOffHard is a hardware power off.
	PowerOffHard PowerMode = 0x05
)

var powerModeNames = map[PowerMode]string{
	PowerOn:      "on",
	PowerStandby: "standby",
	PowerSuspend: "suspend",
	PowerOffSoft: "off_soft",
	PowerOffHard: "off_hard",
}

// Defined reports whether p is one of the MCCS power modes.
func (p PowerMode) Defined() bool {
	_, ok := powerModeNames[p]
	return ok
}

func (p PowerMode) String() string {
	if name, ok := powerModeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", uint8(p))
}

// InputSource is a value of the input select feature.
//
// Monitors report values outside the MCCS table, notably for USB type-C
// inputs. Such values are still valid InputSources; check Defined before
// relying on a name.
type InputSource uint8

const (
	InputOff        InputSource = 0x00
	InputAnalog1    InputSource = 0x01
	InputAnalog2    InputSource = 0x02
	InputDVI1       InputSource = 0x03
	InputDVI2       InputSource = 0x04
	InputComposite1 InputSource = 0x05
	InputComposite2 InputSource = 0x06
	InputSVideo1    InputSource = 0x07
	InputSVideo2    InputSource = 0x08
	InputTuner1     InputSource = 0x09
	InputTuner2     InputSource = 0x0A
	InputTuner3     InputSource = 0x0B
	InputComponent1 InputSource = 0x0C
	InputComponent2 InputSource = 0x0D
	InputComponent3 InputSource = 0x0E
	InputDP1        InputSource = 0x0F
	InputDP2        InputSource = 0x10
	InputHDMI1      InputSource = 0x11
	InputHDMI2      InputSource = 0x12
)

var inputSourceNames = map[InputSource]string{
	InputOff:        "OFF",
	InputAnalog1:    "ANALOG1",
	InputAnalog2:    "ANALOG2",
	InputDVI1:       "DVI1",
	InputDVI2:       "DVI2",
	InputComposite1: "COMPOSITE1",
	InputComposite2: "COMPOSITE2",
	InputSVideo1:    "SVIDEO1",
	InputSVideo2:    "SVIDEO2",
	InputTuner1:     "TUNER1",
	InputTuner2:     "TUNER2",
	InputTuner3:     "TUNER3",
	InputComponent1: "COMPONENT1",
	InputComponent2: "COMPONENT2",
	InputComponent3: "COMPONENT3",
	InputDP1:        "DP1",
	InputDP2:        "DP2",
	InputHDMI1:      "HDMI1",
	InputHDMI2:      "HDMI2",
}

// Defined reports whether s is one of the MCCS input sources.
func (s InputSource) Defined() bool {
	_, ok := inputSourceNames[s]
	return ok
}

func (s InputSource) String() string {
	if name, ok := inputSourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", uint8(s))
}

// enumeration describes one of the closed value sets above, for Value
// normalization.
type enumeration struct {
	kind      string
	names     map[string]int
	foldCase  bool
	validWire func(int) bool
}

func (e *enumeration) lookup(name string) (int, bool) {
	if e.foldCase {
		name = strings.ToUpper(name)
	}
	v, ok := e.names[name]
	return v, ok
}

func invert[T ~uint8](m map[T]string) map[string]int {
	out := make(map[string]int, len(m))
	for v, name := range m {
		out[name] = int(v)
	}
	return out
}

var (
	colorPresets = &enumeration{
		kind:      "color preset",
		names:     invert(colorPresetNames),
		validWire: func(v int) bool { return v >= 0 && v <= 0xFF && ColorPreset(v).Defined() },
	}
	powerModes = &enumeration{
		kind:      "power mode",
		names:     invert(powerModeNames),
		validWire: func(v int) bool { return v >= 0 && v <= 0xFF && PowerMode(v).Defined() },
	}
	inputSources = &enumeration{
		kind:      "input source",
		names:     invert(inputSourceNames),
		foldCase:  true,
		validWire: func(v int) bool { return v >= 0 && v <= 0xFF },
	}
)
