package outputs

import "github.com/flokli/monitor-agent/monitor"

// State describes the current settings of a monitor.
// It is also used to change (some) settings, in a /set request: fields left
// nil are not touched.
type State struct {
	Luminance   *int           `json:"luminance"`
	Contrast    *int           `json:"contrast"`
	ColorPreset *monitor.Value `json:"color_preset"`
	PowerMode   *monitor.Value `json:"power_mode"`
	InputSource *monitor.Value `json:"input_source"`

	// Features holds additional (configured) feature codes by name.
	Features map[string]int `json:"features,omitempty"`
}

// Info describes some (fairly static) info about a monitor, such as its
// name and the ranges of its continuous settings.
type Info struct {
	Name         *string `json:"name"`
	LuminanceMax *int    `json:"luminance_max"`
	ContrastMax  *int    `json:"contrast_max"`
}

type Output interface {
	// Getters
	GetInfo() *Info
	GetState() *State

	// Accepts a (partially populated) state object, and updates the underlying output.
	SetState(*State) (*State, error)
}
