package vcp

import "fmt"

// AccessMode describes whether a feature can be read, written or both.
type AccessMode uint8

const (
	ReadOnly AccessMode = iota
	WriteOnly
	ReadWrite
)

// String returns the MCCS short form of the access mode.
func (a AccessMode) String() string {
	switch a {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	case ReadWrite:
		return "rw"
	default:
		return "unknown"
	}
}

// ParseAccessMode parses the MCCS short form ("ro", "wo", "rw").
func ParseAccessMode(s string) (AccessMode, error) {
	switch s {
	case "ro":
		return ReadOnly, nil
	case "wo":
		return WriteOnly, nil
	case "rw":
		return ReadWrite, nil
	default:
		return 0, fmt.Errorf("invalid access mode: %q", s)
	}
}

// Continuity tells whether a feature has a numeric range bounded by a
// device-reported maximum, or selects among a fixed set of states.
type Continuity uint8

const (
	Continuous Continuity = iota
	NonContinuous
)

// String returns the MCCS short form of the continuity.
func (c Continuity) String() string {
	switch c {
	case Continuous:
		return "c"
	case NonContinuous:
		return "nc"
	default:
		return "unknown"
	}
}

// ParseContinuity parses the MCCS short form ("c", "nc").
func ParseContinuity(s string) (Continuity, error) {
	switch s {
	case "c":
		return Continuous, nil
	case "nc":
		return NonContinuous, nil
	default:
		return 0, fmt.Errorf("invalid continuity: %q", s)
	}
}

// FeatureCode describes one addressable VCP setting.
type FeatureCode struct {
	Name        string
	Description string
	Value       uint8
	Access      AccessMode
	Continuity  Continuity
}

// Readable reports whether the feature can be read.
func (c FeatureCode) Readable() bool {
	return c.Access == ReadOnly || c.Access == ReadWrite
}

// Writable reports whether the feature can be written.
func (c FeatureCode) Writable() bool {
	return c.Access == WriteOnly || c.Access == ReadWrite
}

func (c FeatureCode) String() string {
	return fmt.Sprintf("%s (0x%02x)", c.Name, c.Value)
}

// Names of the preloaded feature codes.
const (
	ImageFactoryDefault = "image_factory_default"
	ImageLuminance      = "image_luminance"
	ImageContrast       = "image_contrast"
	ImageColorPreset    = "image_color_preset"
	ActiveControl       = "active_control"
	InputSelect         = "input_select"
	ImageOrientation    = "image_orientation"
	DisplayPowerMode    = "display_power_mode"
)

// standardCodes is the subset of the MCCS code table every registry starts with.
var standardCodes = []FeatureCode{
	{Name: ImageFactoryDefault, Description: "restore factory default image", Value: 0x04, Access: WriteOnly, Continuity: NonContinuous},
	{Name: ImageLuminance, Description: "image luminance", Value: 0x10, Access: ReadWrite, Continuity: Continuous},
	{Name: ImageContrast, Description: "image contrast", Value: 0x12, Access: ReadWrite, Continuity: Continuous},
	{Name: ImageColorPreset, Description: "image color preset", Value: 0x14, Access: ReadWrite, Continuity: Continuous},
	{Name: ActiveControl, Description: "active control", Value: 0x52, Access: ReadOnly, Continuity: NonContinuous},
	{Name: InputSelect, Description: "input select", Value: 0x60, Access: ReadWrite, Continuity: NonContinuous},
	{Name: ImageOrientation, Description: "image orientation", Value: 0xAA, Access: ReadOnly, Continuity: NonContinuous},
	{Name: DisplayPowerMode, Description: "display power mode", Value: 0xD6, Access: ReadWrite, Continuity: NonContinuous},
}
