package ddc

import (
	"fmt"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/flokli/monitor-agent/vcp"
)

func init() {
	Register("linux", enumerateI2C)
}

// enumerateI2C returns a transport for every I²C bus with a display attached.
// Graphics drivers expose one bus per connector.
func enumerateI2C() ([]vcp.Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("unable to initialize host drivers: %w", err)
	}

	var refs []busRef
	for _, ref := range i2creg.All() {
		refs = append(refs, busRef{name: ref.Name, open: BusOpener(ref.Open)})
	}
	return findDisplays(refs)
}
